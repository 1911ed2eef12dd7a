package http

import (
	"net"
	"net/http"

	"github.com/kotori/kotori/bittorrent"
)

// ParseOptions is the configuration used to parse an Announce Request.
//
// If RealIPHeader is not empty string, the value of the first HTTP Header
// with that name will be used as the peer IP when the client did not supply
// one.
type ParseOptions struct {
	RealIPHeader   string `yaml:"real_ip_header"`
	DefaultNumWant uint32 `yaml:"default_numwant"`
	MaxNumWant     uint32 `yaml:"max_numwant"`
}

const (
	defaultNumWant    uint32 = 30
	defaultMaxNumWant uint32 = 100
)

// Validation failures surfaced to clients as bencoded error dictionaries.
var (
	ErrNoInfoHash        = bittorrent.ClientError("Malformed request; no info_hash")
	ErrMultipleInfoHash  = bittorrent.ClientError("Malformed request; multiple info_hash parameters supplied")
	ErrNoPeerID          = bittorrent.ClientError("Malformed request; no peer_id")
	ErrInvalidPort       = bittorrent.ClientError("Malformed request; invalid port")
	ErrUnparsableRequest = bittorrent.ClientError("Malformed request; failed to parse query")
)

// ParseAnnounce parses a bittorrent.AnnounceRequest from an http.Request.
//
// Only info_hash, peer_id and port are mandatory. The transfer counters and
// numwant fall back to defaults when absent or unparsable, and an
// unrecognized event string is treated as a plain periodic announce.
// The no_peer_id parameter is accepted for protocol compatibility but does
// not alter the response shape.
func ParseAnnounce(r *http.Request, opts ParseOptions) (*bittorrent.AnnounceRequest, error) {
	qp, err := bittorrent.ParseURLData(r.RequestURI)
	if err != nil {
		if clientErr, ok := err.(bittorrent.ClientError); ok {
			return nil, clientErr
		}
		return nil, ErrUnparsableRequest
	}

	infoHashes := qp.InfoHashes()
	if len(infoHashes) < 1 {
		return nil, ErrNoInfoHash
	}
	if len(infoHashes) > 1 {
		return nil, ErrMultipleInfoHash
	}

	request := &bittorrent.AnnounceRequest{InfoHash: infoHashes[0]}

	peerID, ok := qp.String("peer_id")
	if !ok || peerID == "" {
		return nil, ErrNoPeerID
	}
	request.PeerID = bittorrent.PeerID(peerID)

	// Port 0 is not a listening port; it stays rejected.
	port, err := qp.Uint64("port")
	if err != nil || port == 0 || port > 65535 {
		return nil, ErrInvalidPort
	}
	request.Port = uint16(port)

	eventStr, _ := qp.String("event")
	request.Event = bittorrent.NewEvent(eventStr)

	// Anything but the literal "0" means a compact response, absence
	// included.
	compactStr, _ := qp.String("compact")
	request.Compact = compactStr != "0"

	request.Uploaded, _ = qp.Uint64("uploaded")
	request.Downloaded, _ = qp.Uint64("downloaded")
	request.Left, _ = qp.Uint64("left")

	// numwant is client-controlled and bounds the peer selection's
	// allocation, so it is always clamped to the configured maximum.
	maxNumWant := opts.MaxNumWant
	if maxNumWant == 0 {
		maxNumWant = defaultMaxNumWant
	}
	if numWant, err := qp.Uint64("numwant"); err == nil {
		if numWant > uint64(maxNumWant) {
			numWant = uint64(maxNumWant)
		}
		request.NumWant = uint32(numWant)
	} else {
		request.NumWant = opts.DefaultNumWant
	}

	request.IP, request.IPProvided = requestedIP(r, qp, opts)
	if request.IP == nil {
		return nil, bittorrent.ClientError("Malformed request; failed to parse peer IP address")
	}

	return request, nil
}

// ParseScrape parses a bittorrent.ScrapeRequest from an http.Request.
//
// A scrape without any info_hash parameters is not an error; it simply
// yields an empty files dictionary.
func ParseScrape(r *http.Request) (*bittorrent.ScrapeRequest, error) {
	qp, err := bittorrent.ParseURLData(r.RequestURI)
	if err != nil {
		if clientErr, ok := err.(bittorrent.ClientError); ok {
			return nil, clientErr
		}
		return nil, ErrUnparsableRequest
	}

	return &bittorrent.ScrapeRequest{InfoHashes: qp.InfoHashes()}, nil
}

// requestedIP determines the IP address for a BitTorrent client request.
func requestedIP(r *http.Request, p bittorrent.Params, opts ParseOptions) (ip net.IP, provided bool) {
	if ipStr, ok := p.String("ip"); ok {
		if ip := net.ParseIP(ipStr); ip != nil {
			return ip, true
		}
	}

	if opts.RealIPHeader != "" {
		if ipStr := r.Header.Get(opts.RealIPHeader); ipStr != "" {
			if ip := net.ParseIP(ipStr); ip != nil {
				return ip, false
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return nil, false
	}
	return net.ParseIP(host), false
}
