package tracker

import (
	"net"

	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/pkg/log"
)

// Peer is one client's participation in one swarm: its network location as
// of the last announce, its running transfer counters, and whether it has
// finished downloading.
type Peer struct {
	ID         bittorrent.PeerID
	IP         net.IP
	Port       uint16
	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	Completed  bool

	// LastActive is the unix time in seconds of the most recent announce.
	LastActive int64
}

// SetCompleted marks the peer as having finished its download.
// It is idempotent.
func (p *Peer) SetCompleted() {
	p.Left = 0
	p.Completed = true
}

// UpdateTransferStats adds the reported uploaded and downloaded amounts to
// the peer's running totals and overwrites the number of bytes left. A peer
// reporting zero bytes left graduates to completed.
//
// Completion is not reverted when a later report shows left > 0 again; the
// peer keeps counting as a seed.
func (p *Peer) UpdateTransferStats(uploaded, downloaded, left uint64) {
	p.Uploaded += uploaded
	p.Downloaded += downloaded
	p.Left = left

	if left == 0 {
		p.SetCompleted()
	}
}

// ResponsePeer returns the connection info handed out in announce responses.
func (p *Peer) ResponsePeer() bittorrent.ResponsePeer {
	return bittorrent.ResponsePeer{
		ID:   p.ID,
		IP:   p.IP,
		Port: p.Port,
	}
}

// LogFields renders the current peer as a set of log fields.
func (p *Peer) LogFields() log.Fields {
	return log.Fields{
		"id":         p.ID,
		"ip":         p.IP,
		"port":       p.Port,
		"uploaded":   p.Uploaded,
		"downloaded": p.Downloaded,
		"left":       p.Left,
		"completed":  p.Completed,
		"lastActive": p.LastActive,
	}
}
