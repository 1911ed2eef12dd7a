// Package http implements a BitTorrent frontend via the HTTP protocol as
// described in BEP 3 and BEP 23.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kotori/kotori/frontend"
	"github.com/kotori/kotori/pkg/log"
	"github.com/kotori/kotori/pkg/stop"
)

func init() {
	prometheus.MustRegister(promResponseDurationMilliseconds)
}

var promResponseDurationMilliseconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kotori_http_response_duration_milliseconds",
		Help:    "The duration of time it takes to receive and write a response to an API request",
		Buckets: prometheus.ExponentialBuckets(9.375, 2, 10),
	},
	[]string{"action", "error"},
)

// recordResponseDuration records the duration of time to respond to a
// Request in milliseconds.
func recordResponseDuration(action string, err error, duration time.Duration) {
	var errString string
	if err != nil {
		errString = err.Error()
	}

	promResponseDurationMilliseconds.
		WithLabelValues(action, errString).
		Observe(float64(duration.Nanoseconds()) / float64(time.Millisecond))
}

// Config represents all of the configurable options for an HTTP BitTorrent
// Frontend.
type Config struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	AnnouncePath string        `yaml:"announce_path"`
	ScrapePath   string        `yaml:"scrape_path"`
	ParseOptions `yaml:",inline"`
}

// Frontend holds the state of an HTTP BitTorrent Frontend.
type Frontend struct {
	srv *http.Server

	logic frontend.TrackerLogic
	Config
}

// NewFrontend allocates a new instance of a Frontend.
func NewFrontend(logic frontend.TrackerLogic, cfg Config) *Frontend {
	if cfg.AnnouncePath == "" {
		cfg.AnnouncePath = "/announce"
	}
	if cfg.ScrapePath == "" {
		cfg.ScrapePath = "/scrape"
	}
	if cfg.DefaultNumWant == 0 {
		cfg.DefaultNumWant = defaultNumWant
	}
	if cfg.MaxNumWant == 0 {
		cfg.MaxNumWant = defaultMaxNumWant
	}

	return &Frontend{
		logic:  logic,
		Config: cfg,
	}
}

// Stop provides a thread-safe way to shutdown a currently running Frontend.
func (f *Frontend) Stop() stop.Result {
	if f.srv == nil {
		return stop.AlreadyStopped
	}

	c := make(stop.Channel)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Done(f.srv.Shutdown(ctx))
	}()
	return c.Result()
}

// Handler returns the router serving the announce and scrape endpoints.
func (f *Frontend) Handler() http.Handler {
	router := httprouter.New()
	router.GET(f.AnnouncePath, f.announceRoute)
	router.GET(f.ScrapePath, f.scrapeRoute)
	return router
}

// ListenAndServe listens on the TCP network address f.Addr and blocks
// serving BitTorrent requests until Stop() is called or an error is
// returned.
func (f *Frontend) ListenAndServe() error {
	f.srv = &http.Server{
		Addr:         f.Addr,
		Handler:      f.Handler(),
		ReadTimeout:  f.ReadTimeout,
		WriteTimeout: f.WriteTimeout,
	}
	f.srv.SetKeepAlivesEnabled(false)

	if err := f.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// announceRoute parses and responds to an Announce.
func (f *Frontend) announceRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("announce", err, time.Since(start)) }()

	req, err := ParseAnnounce(r, f.ParseOptions)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp, err := f.logic.HandleAnnounce(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err = WriteAnnounceResponse(w, resp); err != nil {
		log.Error("http: failed to write announce response", log.Err(err))
	}
}

// scrapeRoute parses and responds to a Scrape.
func (f *Frontend) scrapeRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("scrape", err, time.Since(start)) }()

	req, err := ParseScrape(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp, err := f.logic.HandleScrape(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err = WriteScrapeResponse(w, resp); err != nil {
		log.Error("http: failed to write scrape response", log.Err(err))
	}
}
