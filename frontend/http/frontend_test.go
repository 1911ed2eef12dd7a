package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kotori/kotori/bencode"
	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/tracker"
)

func newTestFrontend(t *testing.T) (http.Handler, *tracker.Tracker) {
	tr, err := tracker.New(tracker.Config{
		AnnounceInterval: 30 * time.Minute,
		PeerLifetime:     45 * time.Minute,
		SweepInterval:    time.Hour,
		TrackerID:        "kotori-test",
	}, nil)
	require.Nil(t, err)
	t.Cleanup(func() { tr.Stop().Wait() })

	return NewFrontend(tr, Config{}).Handler(), tr
}

func get(handler http.Handler, path string, params url.Values) bencode.Dict {
	r := httptest.NewRequest("GET", "http://tracker.example"+path+"?"+params.Encode(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	v, err := bencode.Unmarshal(w.Body.Bytes())
	if err != nil {
		panic("response did not decode: " + err.Error())
	}
	return v.(bencode.Dict)
}

func TestAnnounceFirstPeer(t *testing.T) {
	handler, tr := newTestFrontend(t)

	d := get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"left":      {"100"},
		"event":     {"started"},
		"compact":   {"1"},
	})

	require.Equal(t, int64(1800), d["interval"])
	require.Equal(t, int64(0), d["complete"])
	require.Equal(t, int64(1), d["incomplete"])
	require.Equal(t, "", d["peers"], "a lone peer gets an empty selection")

	s, ok := tr.Swarm(bittorrent.InfoHashFromString(testHash))
	require.True(t, ok)
	require.Equal(t, 1, s.Len())
}

func TestAnnounceReturnsOtherPeers(t *testing.T) {
	handler, _ := newTestFrontend(t)

	get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"left":      {"100"},
		"event":     {"started"},
		"compact":   {"1"},
	})

	get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P2.................."},
		"ip":        {"10.1.2.3"},
		"port":      {"6882"},
		"left":      {"0"},
		"compact":   {"1"},
	})

	d := get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"left":      {"100"},
		"numwant":   {"10"},
		"compact":   {"1"},
	})

	require.Equal(t, int64(1), d["complete"])
	require.Equal(t, int64(1), d["incomplete"], "the swarm-wide leecher count includes the requester")
	require.Equal(t, "\x0a\x01\x02\x03\x1a\xe2", d["peers"], "the compact peer list should hold exactly P2")
}

func TestAnnounceOversizedNumWant(t *testing.T) {
	handler, _ := newTestFrontend(t)

	d := get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"left":      {"100"},
		"numwant":   {"4294967295"},
	})

	require.NotContains(t, d, "error", "an oversized numwant is clamped, not faulted")
	require.Equal(t, int64(1800), d["interval"])
}

func TestAnnounceStoppedThenScrape(t *testing.T) {
	handler, _ := newTestFrontend(t)

	get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"left":      {"100"},
		"event":     {"started"},
	})
	get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P2.................."},
		"port":      {"6882"},
		"left":      {"0"},
	})

	get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"event":     {"stopped"},
	})

	d := get(handler, "/scrape", url.Values{"info_hash": {testHash}})
	files := d["files"].(bencode.Dict)
	entry := files[testHash].(bencode.Dict)
	require.Equal(t, int64(1), entry["complete"])
	require.Equal(t, int64(0), entry["incomplete"])
}

func TestScrapeUnknownInfoHash(t *testing.T) {
	handler, _ := newTestFrontend(t)

	d := get(handler, "/scrape", url.Values{"info_hash": {"XXXXXXXXXXXXXXXXXXXX"}})
	files := d["files"].(bencode.Dict)
	require.Empty(t, files, "unknown infohashes are omitted, not errors")
}

func TestAnnounceMissingPeerIDCreatesNothing(t *testing.T) {
	handler, tr := newTestFrontend(t)

	d := get(handler, "/announce", url.Values{
		"info_hash": {testHash},
		"port":      {"6881"},
	})

	require.Equal(t, "Malformed request; no peer_id", d["error"])

	_, ok := tr.Swarm(bittorrent.InfoHashFromString(testHash))
	require.False(t, ok, "a rejected announce must not mutate state")
}

func TestConfiguredPaths(t *testing.T) {
	tr, err := tracker.New(tracker.Config{SweepInterval: time.Hour}, nil)
	require.Nil(t, err)
	t.Cleanup(func() { tr.Stop().Wait() })

	handler := NewFrontend(tr, Config{AnnouncePath: "/a", ScrapePath: "/s"}).Handler()

	d := get(handler, "/a", url.Values{
		"info_hash": {testHash},
		"peer_id":   {"P1.................."},
		"port":      {"6881"},
		"left":      {"100"},
	})
	require.Equal(t, int64(0), d["complete"])

	d = get(handler, "/s", url.Values{"info_hash": {testHash}})
	require.Contains(t, d, "files")
}
