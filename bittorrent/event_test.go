package bittorrent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	var table = []struct {
		data     string
		expected Event
	}{
		{"", None},
		{"none", None},
		{"started", Started},
		{"stopped", Stopped},
		{"completed", Completed},
		{"notAnEvent", None},
	}

	for _, tt := range table {
		t.Run(tt.data, func(t *testing.T) {
			got := NewEvent(tt.data)
			require.Equal(t, tt.expected, got, "NewEvent should map announce strings onto events")
		})
	}
}

func TestEventString(t *testing.T) {
	for s, e := range map[string]Event{
		"none":      None,
		"started":   Started,
		"stopped":   Stopped,
		"completed": Completed,
	} {
		require.Equal(t, s, e.String())
	}
}
