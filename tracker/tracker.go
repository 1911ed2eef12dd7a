// Package tracker implements the swarm state of a BitTorrent tracker: the
// registry of torrents, the peers participating in each of them, and the
// announce and scrape logic operating on that state.
package tracker

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kotori/kotori/bittorrent"
	"github.com/kotori/kotori/pkg/log"
	"github.com/kotori/kotori/pkg/stop"
	"github.com/kotori/kotori/pkg/timecache"
)

func init() {
	prometheus.MustRegister(promSweepDurationMilliseconds)
	prometheus.MustRegister(promInfohashesCount)
}

var promSweepDurationMilliseconds = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "kotori_tracker_sweep_duration_milliseconds",
	Help:    "The time it takes to sweep stale peers out of every swarm",
	Buckets: prometheus.ExponentialBuckets(9.375, 2, 10),
})

var promInfohashesCount = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "kotori_tracker_infohashes_count",
	Help: "The number of infohashes tracked",
})

// recordSweepDuration records the duration of a staleness sweep.
func recordSweepDuration(duration time.Duration) {
	promSweepDurationMilliseconds.Observe(float64(duration.Nanoseconds()) / float64(time.Millisecond))
}

// ErrInvalidSweepInterval is returned for a SweepInterval that is less than
// or equal to zero.
var ErrInvalidSweepInterval = errors.New("invalid sweep interval")

// Default configuration constants.
const (
	defaultAnnounceInterval = 30 * time.Minute
	defaultPeerLifetime     = 45 * time.Minute
)

// Config holds the configuration of a Tracker.
//
// AnnounceInterval is echoed to announcing clients as the response
// "interval"; PeerLifetime is the staleness threshold after which a silent
// peer is swept; SweepInterval is the cadence of the background sweep.
// PrivateMode and Secret are carried for an external whitelist collaborator
// and gate nothing inside this package.
type Config struct {
	AnnounceInterval time.Duration `yaml:"announce_time"`
	PeerLifetime     time.Duration `yaml:"peer_clean_time"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	TrackerID        string        `yaml:"tracker_id"`
	PrivateMode      bool          `yaml:"private_mode"`
	Secret           string        `yaml:"secret"`
}

// NameResolver supplies display names for torrents from an external
// metadata source, such as a private tracker's torrent whitelist. A swarm's
// name is resolved once, when the swarm is created.
type NameResolver interface {
	ResolveName(bittorrent.InfoHash) (name string, ok bool)
}

// Tracker is the process-wide registry mapping infohashes to swarms. It is
// initialized empty (or restored via ReadSnapshot) and lives for the
// process lifetime, sweeping stale peers on a background cadence.
//
// Swarms are created lazily on first announce and never destroyed, so a
// long-running tracker accumulates empty swarms for abandoned torrents.
type Tracker struct {
	cfg      Config
	resolver NameResolver

	mu     sync.RWMutex
	swarms map[bittorrent.InfoHash]*Swarm

	closing chan struct{}
	wg      sync.WaitGroup
}

// New creates a Tracker and starts its staleness sweep.
//
// resolver may be nil, in which case swarms stay unnamed.
func New(cfg Config, resolver NameResolver) (*Tracker, error) {
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = defaultAnnounceInterval
	}
	if cfg.PeerLifetime <= 0 {
		cfg.PeerLifetime = defaultPeerLifetime
	}
	if cfg.SweepInterval <= 0 {
		return nil, ErrInvalidSweepInterval
	}

	t := &Tracker{
		cfg:      cfg,
		resolver: resolver,
		swarms:   make(map[bittorrent.InfoHash]*Swarm),
		closing:  make(chan struct{}),
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.closing:
				return
			case <-time.After(cfg.SweepInterval):
				t.sweep()
			}
		}
	}()

	return t, nil
}

// Stop shuts down the background sweep. The registry contents remain
// readable, e.g. for a final snapshot.
func (t *Tracker) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		close(t.closing)
		t.wg.Wait()
		c.Done()
	}()
	return c.Result()
}

// Config returns the configuration the Tracker was created with.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Swarm looks up the swarm for an infohash without creating it.
func (t *Tracker) Swarm(ih bittorrent.InfoHash) (*Swarm, bool) {
	t.mu.RLock()
	s, ok := t.swarms[ih]
	t.mu.RUnlock()
	return s, ok
}

// swarmFor returns the swarm for an infohash, creating it if it has never
// been referenced. The registry lock serializes creation so two concurrent
// first announces cannot produce duplicate swarms.
func (t *Tracker) swarmFor(ih bittorrent.InfoHash) *Swarm {
	t.mu.RLock()
	s, ok := t.swarms[ih]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	s, ok = t.swarms[ih]
	if !ok {
		s = newSwarm(ih)
		if t.resolver != nil {
			if name, found := t.resolver.ResolveName(ih); found {
				s.name = name
			}
		}
		t.swarms[ih] = s
		promInfohashesCount.Inc()
		log.Debug("tracker: created swarm", log.Fields{"infoHash": ih})
	}
	t.mu.Unlock()

	return s
}

// sweep removes stale peers from every swarm. Swarms left empty are kept.
func (t *Tracker) sweep() {
	start := time.Now()
	now := timecache.NowUnix()

	t.mu.RLock()
	swarms := make([]*Swarm, 0, len(t.swarms))
	for _, s := range t.swarms {
		swarms = append(swarms, s)
	}
	t.mu.RUnlock()

	removed := 0
	for _, s := range swarms {
		removed += s.CleanupStale(now, t.cfg.PeerLifetime)
	}

	recordSweepDuration(time.Since(start))
	if removed > 0 {
		log.Debug("tracker: swept stale peers", log.Fields{"removed": removed})
	}
}
