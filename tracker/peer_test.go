package tracker

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetCompleted(t *testing.T) {
	p := &Peer{ID: "p1", IP: net.ParseIP("192.168.0.1"), Port: 6881, Left: 512}

	p.SetCompleted()
	require.True(t, p.Completed)
	require.Equal(t, uint64(0), p.Left)

	// Idempotent.
	p.SetCompleted()
	require.True(t, p.Completed)
	require.Equal(t, uint64(0), p.Left)
}

func TestUpdateTransferStats(t *testing.T) {
	p := &Peer{ID: "p1", Left: 1000}

	p.UpdateTransferStats(10, 20, 970)
	require.Equal(t, uint64(10), p.Uploaded)
	require.Equal(t, uint64(20), p.Downloaded)
	require.Equal(t, uint64(970), p.Left)
	require.False(t, p.Completed)

	// The reported amounts accumulate; left is overwritten.
	p.UpdateTransferStats(5, 30, 940)
	require.Equal(t, uint64(15), p.Uploaded)
	require.Equal(t, uint64(50), p.Downloaded)
	require.Equal(t, uint64(940), p.Left)

	p.UpdateTransferStats(0, 940, 0)
	require.True(t, p.Completed, "a peer reporting zero bytes left graduates to completed")
}

func TestCompletionNotReverted(t *testing.T) {
	p := &Peer{ID: "p1"}

	p.UpdateTransferStats(0, 100, 0)
	require.True(t, p.Completed)

	p.UpdateTransferStats(0, 0, 100)
	require.True(t, p.Completed, "a later left > 0 report should not revert completion")
	require.Equal(t, uint64(100), p.Left)
}
