package http

import (
	"net/http"

	"github.com/kotori/kotori/bencode"
	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/pkg/log"
)

// WriteError communicates an error to a BitTorrent client over HTTP.
//
// There is no HTTP-status-based signaling: malformed requests still get a
// 200 with a bencoded error payload.
func WriteError(w http.ResponseWriter, err error) error {
	message := "internal server error"
	if _, clientErr := err.(bittorrent.ClientError); clientErr {
		message = err.Error()
	} else {
		log.Error("http: internal error", log.Err(err))
	}

	w.WriteHeader(http.StatusOK)
	return bencode.NewEncoder(w).Encode(bencode.Dict{
		"error": message,
	})
}

// WriteAnnounceResponse communicates the results of an Announce to a
// BitTorrent client over HTTP.
//
// The compact format can only carry IPv4 addresses, so a selected peer
// without one is omitted from the compact payload and the value may be
// shorter than 6 bytes per selected peer. Non-compact responses carry every
// selected peer.
func WriteAnnounceResponse(w http.ResponseWriter, resp *bittorrent.AnnounceResponse) error {
	bdict := bencode.Dict{
		"complete":   resp.Complete,
		"incomplete": resp.Incomplete,
		"interval":   resp.Interval,
	}
	if resp.TrackerID != "" {
		bdict["tracker id"] = resp.TrackerID
	}

	if resp.Compact {
		// 6 bytes per selected peer: 4 big-endian IPv4 octets, 2 big-endian
		// port bytes, concatenated in selection order. The key is present
		// even when no peers were selected.
		compact := make([]byte, 0, 6*len(resp.Peers))
		for _, peer := range resp.Peers {
			// Peers without an IPv4 address cannot be packed and are skipped.
			if packed := compact4(peer); packed != nil {
				compact = append(compact, packed...)
			}
		}
		bdict["peers"] = compact

		return bencode.NewEncoder(w).Encode(bdict)
	}

	peers := make([]bencode.Dict, 0, len(resp.Peers))
	for _, peer := range resp.Peers {
		peers = append(peers, dict(peer))
	}
	bdict["peers"] = peers

	return bencode.NewEncoder(w).Encode(bdict)
}

// WriteScrapeResponse communicates the results of a Scrape to a BitTorrent
// client over HTTP.
func WriteScrapeResponse(w http.ResponseWriter, resp *bittorrent.ScrapeResponse) error {
	filesDict := bencode.NewDict()
	for _, scrape := range resp.Files {
		entry := bencode.Dict{
			"complete":   scrape.Complete,
			"incomplete": scrape.Incomplete,
			"downloaded": scrape.Downloaded,
		}
		if scrape.Name != "" {
			entry["name"] = scrape.Name
		}
		filesDict[scrape.InfoHash.RawString()] = entry
	}

	return bencode.NewEncoder(w).Encode(bencode.Dict{
		"files": filesDict,
	})
}

func compact4(peer bittorrent.ResponsePeer) []byte {
	ip := peer.IP.To4()
	if ip == nil {
		return nil
	}

	buf := make([]byte, 0, 6)
	buf = append(buf, ip...)
	buf = append(buf, byte(peer.Port>>8), byte(peer.Port&0xff))
	return buf
}

func dict(peer bittorrent.ResponsePeer) bencode.Dict {
	return bencode.Dict{
		"peer id": string(peer.ID),
		"ip":      peer.IP.String(),
		"port":    peer.Port,
	}
}
