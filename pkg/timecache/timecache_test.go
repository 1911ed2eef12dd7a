package timecache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)

	now := c.Now()
	require.False(t, now.IsZero())

	nsec := c.NowUnixNano()
	require.NotEqual(t, 0, nsec)

	sec := c.NowUnix()
	require.NotEqual(t, 0, sec)
}

func TestRunStop(t *testing.T) {
	c := New()
	require.NotNil(t, c)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(1 * time.Second)
	}()

	c.Stop()

	wg.Wait()
}

func TestMultipleStop(t *testing.T) {
	c := New()
	require.NotNil(t, c)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(1 * time.Second)
	}()

	c.Stop()
	c.Stop()

	wg.Wait()
}

func TestGlobalClock(t *testing.T) {
	sec := NowUnix()
	require.InDelta(t, time.Now().Unix(), sec, 2, "the global cached clock should track the system clock")
}
