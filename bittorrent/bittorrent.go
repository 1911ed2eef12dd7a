// Package bittorrent implements all of the abstractions used to decouple the
// protocol of a BitTorrent tracker from the logic of handling Announces and
// Scrapes.
package bittorrent

import (
	"fmt"
	"net"
	"time"

	"github.com/kotori/kotori/pkg/log"
)

// InfoHash represents an infohash.
type InfoHash [20]byte

// InfoHashFromBytes creates an InfoHash from a byte slice.
//
// It panics if b is not 20 bytes long.
func InfoHashFromBytes(b []byte) InfoHash {
	if len(b) != 20 {
		panic("infohash must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], b)
	return InfoHash(buf)
}

// InfoHashFromString creates an InfoHash from a string.
//
// It panics if s is not 20 bytes long.
func InfoHashFromString(s string) InfoHash {
	if len(s) != 20 {
		panic("infohash must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], s)
	return InfoHash(buf)
}

// String implements fmt.Stringer, returning the base16 encoded InfoHash.
func (i InfoHash) String() string {
	return fmt.Sprintf("%x", i[:])
}

// RawString returns a 20-byte string of the raw bytes of the InfoHash.
func (i InfoHash) RawString() string {
	return string(i[:])
}

// PeerID represents a peer ID.
//
// Peer IDs are opaque byte strings chosen by the client. They are unique
// within one swarm but carry no structure this tracker relies on, so they
// are kept as-is rather than forced into a fixed-width array.
type PeerID string

// String implements fmt.Stringer, returning the base16 encoded PeerID.
func (p PeerID) String() string {
	return fmt.Sprintf("%x", string(p))
}

// AnnounceRequest represents the parsed parameters from an announce request.
type AnnounceRequest struct {
	InfoHash   InfoHash
	PeerID     PeerID
	Event      Event
	IP         net.IP
	Port       uint16
	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	NumWant    uint32
	Compact    bool
	IPProvided bool
}

// LogFields renders the current request as a set of log fields.
func (r AnnounceRequest) LogFields() log.Fields {
	return log.Fields{
		"infoHash":   r.InfoHash,
		"peerID":     r.PeerID,
		"event":      r.Event,
		"ip":         r.IP,
		"port":       r.Port,
		"uploaded":   r.Uploaded,
		"downloaded": r.Downloaded,
		"left":       r.Left,
		"numWant":    r.NumWant,
		"compact":    r.Compact,
	}
}

// AnnounceResponse represents the parameters used to create an announce
// response.
type AnnounceResponse struct {
	Compact    bool
	Complete   uint32
	Incomplete uint32
	Interval   time.Duration
	TrackerID  string
	Peers      []ResponsePeer
}

// LogFields renders the current response as a set of log fields.
func (r AnnounceResponse) LogFields() log.Fields {
	return log.Fields{
		"compact":    r.Compact,
		"complete":   r.Complete,
		"incomplete": r.Incomplete,
		"interval":   r.Interval,
		"trackerID":  r.TrackerID,
		"peers":      r.Peers,
	}
}

// ResponsePeer is the connection info for one peer returned in an announce
// response.
type ResponsePeer struct {
	ID   PeerID
	IP   net.IP
	Port uint16
}

// LogFields renders the current peer as a set of log fields.
func (p ResponsePeer) LogFields() log.Fields {
	return log.Fields{
		"id":   p.ID,
		"ip":   p.IP,
		"port": p.Port,
	}
}

// ScrapeRequest represents the parsed parameters from a scrape request.
type ScrapeRequest struct {
	InfoHashes []InfoHash
}

// LogFields renders the current request as a set of log fields.
func (r ScrapeRequest) LogFields() log.Fields {
	return log.Fields{
		"infoHashes": r.InfoHashes,
	}
}

// ScrapeResponse represents the parameters used to create a scrape response.
//
// Files only contains entries for infohashes the tracker has seen; unknown
// infohashes are omitted entirely.
type ScrapeResponse struct {
	Files []Scrape
}

// LogFields renders the current response as a set of log fields.
func (r ScrapeResponse) LogFields() log.Fields {
	return log.Fields{
		"files": r.Files,
	}
}

// Scrape represents the state of a swarm that is returned in a scrape
// response.
type Scrape struct {
	InfoHash   InfoHash
	Complete   uint32
	Incomplete uint32
	Downloaded uint32
	Name       string
}

// ClientError represents an error that should be exposed to the client over
// the BitTorrent protocol implementation.
type ClientError string

// Error implements the error interface for ClientError.
func (c ClientError) Error() string { return string(c) }
