package http

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kotori/kotori/bittorrent"
)

var (
	testHash   = "HHHHHHHHHHHHHHHHHHHH"
	testPeerID = "-KT0001-123456789012"
)

func announceURL(params url.Values) string {
	return "http://tracker.example/announce?" + params.Encode()
}

func baseParams() url.Values {
	return url.Values{
		"info_hash": {testHash},
		"peer_id":   {testPeerID},
		"port":      {"6881"},
		"left":      {"100"},
	}
}

func parse(t *testing.T, params url.Values) (*bittorrent.AnnounceRequest, error) {
	r := httptest.NewRequest("GET", announceURL(params), nil)
	return ParseAnnounce(r, ParseOptions{DefaultNumWant: defaultNumWant})
}

func TestParseAnnounceDefaults(t *testing.T) {
	req, err := parse(t, baseParams())
	require.Nil(t, err)

	require.Equal(t, bittorrent.InfoHashFromString(testHash), req.InfoHash)
	require.Equal(t, bittorrent.PeerID(testPeerID), req.PeerID)
	require.Equal(t, uint16(6881), req.Port)
	require.Equal(t, uint64(100), req.Left)
	require.Equal(t, bittorrent.None, req.Event)
	require.True(t, req.Compact, "compact defaults to true when absent")
	require.Equal(t, uint32(30), req.NumWant)
	require.Equal(t, uint64(0), req.Uploaded)
	require.Equal(t, uint64(0), req.Downloaded)
	require.False(t, req.IPProvided)
	require.Equal(t, "192.0.2.1", req.IP.String(), "the transport-observed address is the default peer IP")
}

func TestParseAnnounceMissingInfoHash(t *testing.T) {
	params := baseParams()
	params.Del("info_hash")

	_, err := parse(t, params)
	require.Equal(t, ErrNoInfoHash, err)
}

func TestParseAnnounceMissingPeerID(t *testing.T) {
	params := baseParams()
	params.Del("peer_id")

	_, err := parse(t, params)
	require.Equal(t, ErrNoPeerID, err)
	require.Equal(t, "Malformed request; no peer_id", err.Error())
}

func TestParseAnnounceInvalidPort(t *testing.T) {
	for _, port := range []string{"", "0", "65536", "notaport"} {
		params := baseParams()
		if port == "" {
			params.Del("port")
		} else {
			params.Set("port", port)
		}

		_, err := parse(t, params)
		require.Equal(t, ErrInvalidPort, err, "port %q should be rejected", port)
	}
}

func TestParseAnnounceEvents(t *testing.T) {
	var table = []struct {
		event    string
		expected bittorrent.Event
	}{
		{"started", bittorrent.Started},
		{"stopped", bittorrent.Stopped},
		{"completed", bittorrent.Completed},
		{"paused", bittorrent.None},
	}

	for _, tt := range table {
		params := baseParams()
		params.Set("event", tt.event)

		req, err := parse(t, params)
		require.Nil(t, err)
		require.Equal(t, tt.expected, req.Event)
	}
}

func TestParseAnnounceNonCompact(t *testing.T) {
	params := baseParams()
	params.Set("compact", "0")

	req, err := parse(t, params)
	require.Nil(t, err)
	require.False(t, req.Compact)

	params.Set("compact", "1")
	req, err = parse(t, params)
	require.Nil(t, err)
	require.True(t, req.Compact)
}

func TestParseAnnounceUnparsableCounters(t *testing.T) {
	params := baseParams()
	params.Set("left", "lots")
	params.Set("uploaded", "-3")

	req, err := parse(t, params)
	require.Nil(t, err)
	require.Equal(t, uint64(0), req.Left, "unparsable counters fall back to zero")
	require.Equal(t, uint64(0), req.Uploaded)
}

func TestParseAnnounceNumWantClamped(t *testing.T) {
	params := baseParams()
	params.Set("numwant", "4294967295")

	req, err := parse(t, params)
	require.Nil(t, err)
	require.Equal(t, defaultMaxNumWant, req.NumWant)

	r := httptest.NewRequest("GET", announceURL(params), nil)
	req, err = ParseAnnounce(r, ParseOptions{DefaultNumWant: defaultNumWant, MaxNumWant: 50})
	require.Nil(t, err)
	require.Equal(t, uint32(50), req.NumWant)

	params.Set("numwant", "20")
	req, err = parse(t, params)
	require.Nil(t, err)
	require.Equal(t, uint32(20), req.NumWant, "values under the maximum pass through")
}

func TestParseAnnounceIPOverride(t *testing.T) {
	params := baseParams()
	params.Set("ip", "10.20.30.40")

	req, err := parse(t, params)
	require.Nil(t, err)
	require.True(t, req.IPProvided)
	require.Equal(t, "10.20.30.40", req.IP.String())
}

func TestParseAnnounceRealIPHeader(t *testing.T) {
	r := httptest.NewRequest("GET", announceURL(baseParams()), nil)
	r.Header.Set("X-Real-IP", "172.16.1.1")

	req, err := ParseAnnounce(r, ParseOptions{RealIPHeader: "X-Real-IP", DefaultNumWant: defaultNumWant})
	require.Nil(t, err)
	require.Equal(t, "172.16.1.1", req.IP.String())
}

func TestParseScrapeMultipleInfoHashes(t *testing.T) {
	target := "http://tracker.example/scrape?info_hash=" + url.QueryEscape(testHash) + "&info_hash=" + url.QueryEscape("XXXXXXXXXXXXXXXXXXXX")
	r := httptest.NewRequest("GET", target, nil)

	req, err := ParseScrape(r)
	require.Nil(t, err)
	require.Len(t, req.InfoHashes, 2)
}

func TestParseScrapeNoInfoHash(t *testing.T) {
	r := httptest.NewRequest("GET", "http://tracker.example/scrape", nil)

	req, err := ParseScrape(r)
	require.Nil(t, err)
	require.Empty(t, req.InfoHashes)
}
