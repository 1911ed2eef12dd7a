package tracker

import (
	"context"

	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/pkg/log"
	"github.com/kotori/kotori/pkg/timecache"
)

// HandleAnnounce applies an announce to the swarm state and generates the
// response for it.
//
// The swarm lock is held for the whole lookup-or-create, transition, and
// selection sequence, so two concurrent announces for the same peer ID
// cannot interleave and lose an update.
func (t *Tracker) HandleAnnounce(ctx context.Context, req *bittorrent.AnnounceRequest) (*bittorrent.AnnounceResponse, error) {
	s := t.swarmFor(req.InfoHash)

	s.Lock()
	p, ok := s.peers[req.PeerID]
	if !ok {
		p = &Peer{ID: req.PeerID, IP: req.IP, Port: req.Port}
		s.peers[req.PeerID] = p
	}
	p.IP = req.IP
	p.Port = req.Port
	p.LastActive = timecache.NowUnix()

	switch req.Event {
	case bittorrent.Stopped:
		// The response below reflects the swarm without this peer.
		delete(s.peers, req.PeerID)

	case bittorrent.Completed:
		// The stats update runs first so the reported left value cannot
		// linger on a peer that just declared completion.
		p.UpdateTransferStats(req.Uploaded, req.Downloaded, req.Left)
		p.SetCompleted()

	default:
		p.UpdateTransferStats(req.Uploaded, req.Downloaded, req.Left)
	}

	complete, incomplete := s.counts()
	peers := s.selectPeers(req.PeerID, int(req.NumWant))
	s.Unlock()

	resp := &bittorrent.AnnounceResponse{
		Compact:    req.Compact,
		Complete:   complete,
		Incomplete: incomplete,
		Interval:   t.cfg.AnnounceInterval,
		TrackerID:  t.cfg.TrackerID,
		Peers:      peers,
	}

	log.Debug("tracker: generated announce response", resp)
	return resp, nil
}
