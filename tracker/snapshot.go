package tracker

import (
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/kotori/kotori/bencode"
	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/pkg/log"
)

// Snapshot dictionary keys.
const (
	snapshotName       = "name"
	snapshotPeers      = "peers"
	snapshotIP         = "ip"
	snapshotPort       = "port"
	snapshotUploaded   = "uploaded"
	snapshotDownloaded = "downloaded"
	snapshotLeft       = "left"
	snapshotCompleted  = "completed"
	snapshotLastActive = "last active"
)

// WriteSnapshot bencodes the registry's full state to w. This is the export
// half of the session-store contract: an external persistence collaborator
// decides when to call it and where the bytes go.
func (t *Tracker) WriteSnapshot(w io.Writer) error {
	t.mu.RLock()
	swarms := make([]*Swarm, 0, len(t.swarms))
	for _, s := range t.swarms {
		swarms = append(swarms, s)
	}
	t.mu.RUnlock()

	root := bencode.NewDict()
	for _, s := range swarms {
		s.RLock()
		peers := bencode.NewDict()
		for id, p := range s.peers {
			completed := int64(0)
			if p.Completed {
				completed = 1
			}
			peers[string(id)] = bencode.Dict{
				snapshotIP:         p.IP.String(),
				snapshotPort:       p.Port,
				snapshotUploaded:   p.Uploaded,
				snapshotDownloaded: p.Downloaded,
				snapshotLeft:       p.Left,
				snapshotCompleted:  completed,
				snapshotLastActive: p.LastActive,
			}
		}
		entry := bencode.Dict{snapshotPeers: peers}
		if s.name != "" {
			entry[snapshotName] = s.name
		}
		s.RUnlock()

		root[s.infoHash.RawString()] = entry
	}

	return bencode.NewEncoder(w).Encode(root)
}

// ReadSnapshot decodes a snapshot produced by WriteSnapshot and replaces
// the registry's contents with it. Corrupt input surfaces as an error
// rooted in bencode.ErrMalformed; the caller owns the decision of what to
// do with a snapshot that no longer loads.
func (t *Tracker) ReadSnapshot(r io.Reader) error {
	v, err := bencode.NewDecoder(r).Decode()
	if err != nil {
		return err
	}

	root, ok := v.(bencode.Dict)
	if !ok {
		return errors.Wrap(bencode.ErrMalformed, "snapshot root is not a dictionary")
	}

	swarms := make(map[bittorrent.InfoHash]*Swarm, len(root))
	for rawHash, rawEntry := range root {
		if len(rawHash) != 20 {
			return errors.Wrap(bencode.ErrMalformed, "snapshot infohash is not 20 bytes")
		}
		ih := bittorrent.InfoHashFromString(rawHash)

		entry, ok := rawEntry.(bencode.Dict)
		if !ok {
			return errors.Wrap(bencode.ErrMalformed, "snapshot swarm entry is not a dictionary")
		}

		s := newSwarm(ih)
		if name, ok := entry[snapshotName].(string); ok {
			s.name = name
		}

		rawPeers, ok := entry[snapshotPeers].(bencode.Dict)
		if !ok {
			return errors.Wrap(bencode.ErrMalformed, "snapshot swarm has no peer dictionary")
		}

		for rawID, rawPeer := range rawPeers {
			p, err := decodeSnapshotPeer(bittorrent.PeerID(rawID), rawPeer)
			if err != nil {
				return err
			}
			s.peers[p.ID] = p
		}

		swarms[ih] = s
	}

	t.mu.Lock()
	t.swarms = swarms
	t.mu.Unlock()
	promInfohashesCount.Set(float64(len(swarms)))

	log.Info("tracker: restored registry snapshot", log.Fields{"swarms": len(swarms)})
	return nil
}

func decodeSnapshotPeer(id bittorrent.PeerID, v interface{}) (*Peer, error) {
	d, ok := v.(bencode.Dict)
	if !ok {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer entry is not a dictionary")
	}

	ipStr, ok := d[snapshotIP].(string)
	if !ok {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer has no ip")
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer ip does not parse")
	}

	port, ok := d[snapshotPort].(int64)
	if !ok || port < 0 || port > 65535 {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer port out of range")
	}

	// Counters are unsigned in memory; a negative bencoded integer would
	// wrap on conversion, so it is rejected as corrupt.
	uploaded, ok := d[snapshotUploaded].(int64)
	if !ok || uploaded < 0 {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer uploaded count out of range")
	}
	downloaded, ok := d[snapshotDownloaded].(int64)
	if !ok || downloaded < 0 {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer downloaded count out of range")
	}
	left, ok := d[snapshotLeft].(int64)
	if !ok || left < 0 {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer left count out of range")
	}
	completed, ok := d[snapshotCompleted].(int64)
	if !ok {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer has no completed flag")
	}
	lastActive, ok := d[snapshotLastActive].(int64)
	if !ok {
		return nil, errors.Wrap(bencode.ErrMalformed, "snapshot peer has no last active time")
	}

	return &Peer{
		ID:         id,
		IP:         ip,
		Port:       uint16(port),
		Uploaded:   uint64(uploaded),
		Downloaded: uint64(downloaded),
		Left:       uint64(left),
		Completed:  completed != 0,
		LastActive: lastActive,
	}, nil
}
