// Package frontend decouples transports from the logic of handling
// Announces and Scrapes.
package frontend

import (
	"context"

	"github.com/kotori/kotori/bittorrent"
)

// TrackerLogic is the interface used by a frontend to generate a response
// from a parsed request.
type TrackerLogic interface {
	// HandleAnnounce generates a response for an Announce.
	HandleAnnounce(context.Context, *bittorrent.AnnounceRequest) (*bittorrent.AnnounceResponse, error)

	// HandleScrape generates a response for a Scrape.
	HandleScrape(context.Context, *bittorrent.ScrapeRequest) (*bittorrent.ScrapeResponse, error)
}
