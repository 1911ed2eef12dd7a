package tracker

import (
	"math/rand"
	"sync"
	"time"

	"github.com/kotori/kotori/bittorrent"
)

// Swarm owns the set of peers participating in one torrent, keyed by peer
// ID. All exported methods lock internally; announce handling instead takes
// the lock once for its whole read-modify-write sequence so concurrent
// announces for the same peer cannot interleave.
type Swarm struct {
	sync.RWMutex

	infoHash bittorrent.InfoHash
	name     string
	peers    map[bittorrent.PeerID]*Peer
}

func newSwarm(ih bittorrent.InfoHash) *Swarm {
	return &Swarm{
		infoHash: ih,
		peers:    make(map[bittorrent.PeerID]*Peer),
	}
}

// InfoHash returns the infohash keying this swarm.
func (s *Swarm) InfoHash() bittorrent.InfoHash {
	return s.infoHash
}

// Name returns the display name supplied by the tracker's NameResolver, or
// the empty string when none was supplied.
func (s *Swarm) Name() string {
	s.RLock()
	defer s.RUnlock()
	return s.name
}

// AddPeer inserts or replaces a peer by its ID.
func (s *Swarm) AddPeer(p *Peer) {
	s.Lock()
	s.peers[p.ID] = p
	s.Unlock()
}

// Peer looks up a peer by ID.
func (s *Swarm) Peer(id bittorrent.PeerID) (*Peer, bool) {
	s.RLock()
	p, ok := s.peers[id]
	s.RUnlock()
	return p, ok
}

// RemovePeer deletes a peer by ID. Removing an unknown ID is a no-op.
func (s *Swarm) RemovePeer(id bittorrent.PeerID) {
	s.Lock()
	delete(s.peers, id)
	s.Unlock()
}

// Len returns the number of peers in the swarm.
func (s *Swarm) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.peers)
}

// CleanupStale removes every peer whose last announce is at least lifetime
// old at the given unix time. A peer exactly at the boundary is removed.
// It returns the number of peers removed.
func (s *Swarm) CleanupStale(now int64, lifetime time.Duration) int {
	threshold := int64(lifetime / time.Second)

	s.Lock()
	removed := 0
	for id, p := range s.peers {
		if now-p.LastActive >= threshold {
			delete(s.peers, id)
			removed++
		}
	}
	s.Unlock()

	return removed
}

// Classify partitions the swarm's peers, minus the excluded peer ID, into
// seeds and leechers.
func (s *Swarm) Classify(exclude bittorrent.PeerID) (seeds, leechers []*Peer) {
	s.RLock()
	defer s.RUnlock()
	return s.classify(exclude)
}

// classify must be called with at least a read lock held.
func (s *Swarm) classify(exclude bittorrent.PeerID) (seeds, leechers []*Peer) {
	for id, p := range s.peers {
		if id == exclude {
			continue
		}
		if p.Completed {
			seeds = append(seeds, p)
		} else {
			leechers = append(leechers, p)
		}
	}
	return seeds, leechers
}

// counts must be called with at least a read lock held. Unlike peer
// selection, the swarm-wide counts do not exclude the requesting peer.
func (s *Swarm) counts() (complete, incomplete uint32) {
	for _, p := range s.peers {
		if p.Completed {
			complete++
		} else {
			incomplete++
		}
	}
	return complete, incomplete
}

// Scrape reports the swarm's aggregate counts.
//
// Cumulative completed-download totals are not tracked, so Downloaded is
// always zero.
func (s *Swarm) Scrape() bittorrent.Scrape {
	s.RLock()
	defer s.RUnlock()

	complete, incomplete := s.counts()
	return bittorrent.Scrape{
		InfoHash:   s.infoHash,
		Complete:   complete,
		Incomplete: incomplete,
		Downloaded: 0,
		Name:       s.name,
	}
}

// SelectPeers picks up to numWant peers to hand to the requesting peer:
// seeds first, then leechers to fill the remainder, each sampled uniformly
// at random without replacement. The requesting peer is always excluded.
func (s *Swarm) SelectPeers(requesting bittorrent.PeerID, numWant int) []bittorrent.ResponsePeer {
	s.RLock()
	defer s.RUnlock()
	return s.selectPeers(requesting, numWant)
}

// selectPeers must be called with at least a read lock held.
func (s *Swarm) selectPeers(requesting bittorrent.PeerID, numWant int) []bittorrent.ResponsePeer {
	if numWant < 0 {
		numWant = 0
	}

	seeds, leechers := s.classify(requesting)

	// The allocation is bounded by the candidate count, not numWant, so an
	// unclamped request cannot drive an oversized make.
	capacity := numWant
	if n := len(seeds) + len(leechers); capacity > n {
		capacity = n
	}

	selected := make([]bittorrent.ResponsePeer, 0, capacity)
	for _, p := range sample(seeds, numWant) {
		selected = append(selected, p.ResponsePeer())
	}
	for _, p := range sample(leechers, numWant-len(selected)) {
		selected = append(selected, p.ResponsePeer())
	}

	return selected
}

// sample picks n elements from candidates uniformly at random without
// replacement using a partial Fisher-Yates shuffle. The candidates slice is
// reordered in place; it must be a snapshot, not live state.
func sample(candidates []*Peer, n int) []*Peer {
	if n <= 0 {
		return nil
	}
	if n >= len(candidates) {
		return candidates
	}

	for i := 0; i < n; i++ {
		j := i + rand.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:n]
}
