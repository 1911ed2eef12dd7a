package tracker

import (
	"context"

	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/pkg/log"
)

// HandleScrape reports aggregate counts for the requested infohashes.
//
// Scrapes never mutate state: an infohash that was never announced is
// omitted from the response rather than creating a swarm or failing.
func (t *Tracker) HandleScrape(ctx context.Context, req *bittorrent.ScrapeRequest) (*bittorrent.ScrapeResponse, error) {
	resp := &bittorrent.ScrapeResponse{
		Files: make([]bittorrent.Scrape, 0, len(req.InfoHashes)),
	}

	for _, ih := range req.InfoHashes {
		s, ok := t.Swarm(ih)
		if !ok {
			continue
		}
		resp.Files = append(resp.Files, s.Scrape())
	}

	log.Debug("tracker: generated scrape response", resp)
	return resp, nil
}
