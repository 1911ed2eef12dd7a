// Command kotori-e2e announces against a running tracker and sanity-checks
// the swarm state it reports.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/anacrolix/torrent/tracker"
	"github.com/pkg/errors"
)

func init() {
	flag.StringVar(&trackerURL, "http", "http://127.0.0.1:6969/announce", "the address of the HTTP tracker")
	flag.DurationVar(&delay, "delay", 1*time.Second, "the delay between announces")
}

var (
	trackerURL string
	delay      time.Duration
)

func main() {
	flag.Parse()

	fmt.Println("testing HTTP...")
	if err := testWithInfohash(generateInfohash(), trackerURL); err != nil {
		fmt.Println("failed:", err)
		os.Exit(1)
	}
	fmt.Println("success")
}

func generateInfohash() [20]byte {
	var ih [20]byte

	n, err := rand.Read(ih[:])
	if err != nil {
		panic(err)
	}
	if n != 20 {
		panic(fmt.Errorf("not enough randomness? Got %d bytes", n))
	}

	return ih
}

func testWithInfohash(infoHash [20]byte, url string) error {
	req := tracker.AnnounceRequest{
		InfoHash:   infoHash,
		PeerId:     [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
		Downloaded: 50,
		Left:       100,
		Uploaded:   50,
		Event:      tracker.Started,
		NumWant:    50,
		Port:       10001,
	}

	resp, err := tracker.Announce{
		TrackerUrl: url,
		Request:    req,
		UserAgent:  "kotori-e2e",
	}.Do()
	if err != nil {
		return errors.Wrap(err, "announce failed")
	}

	if len(resp.Peers) != 0 {
		return fmt.Errorf("expected no peers on a first announce, got %d", len(resp.Peers))
	}

	time.Sleep(delay)

	req = tracker.AnnounceRequest{
		InfoHash:   infoHash,
		PeerId:     [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 21},
		Downloaded: 50,
		Left:       100,
		Uploaded:   50,
		Event:      tracker.Started,
		NumWant:    50,
		Port:       10002,
	}

	resp, err = tracker.Announce{
		TrackerUrl: url,
		Request:    req,
		UserAgent:  "kotori-e2e",
	}.Do()
	if err != nil {
		return errors.Wrap(err, "announce failed")
	}

	if len(resp.Peers) != 1 {
		return fmt.Errorf("expected 1 peer, got %d", len(resp.Peers))
	}

	return nil
}
