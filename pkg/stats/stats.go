// Package stats keeps process-lifetime usage counters for the bot and
// mirrors them into Prometheus.
package stats

import (
	"fmt"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "awwbot"

// Stats counts commands, cache outcomes and failures since start (or the last Reset).
// It is safe for concurrent use.
type Stats struct {
	mu  sync.Mutex
	now func() time.Time

	startTime      time.Time
	totalCommands  uint64
	commandCounts  map[string]uint64
	cacheHits      uint64
	cacheMisses    uint64
	errors         uint64
	timeouts       uint64
	sourceRequests map[string]uint64

	commandsTotal *prometheus.CounterVec
	cacheTotal    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	sourceTotal   *prometheus.CounterVec
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartTime      time.Time         `json:"start_time"`
	Uptime         time.Duration     `json:"uptime"`
	TotalCommands  uint64            `json:"total_commands"`
	CommandCounts  map[string]uint64 `json:"command_counts"`
	CacheHits      uint64            `json:"cache_hits"`
	CacheMisses    uint64            `json:"cache_misses"`
	Errors         uint64            `json:"errors"`
	Timeouts       uint64            `json:"timeouts"`
	SourceRequests map[string]uint64 `json:"source_requests"`
}

// Option configures Stats.
type Option func(*Stats)

// WithClock replaces time.Now for uptime calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Stats) { s.now = now }
}

// New returns zeroed Stats. Its Prometheus collectors are registered on reg
// when reg is non-nil.
func New(reg prometheus.Registerer, opts ...Option) *Stats {
	s := &Stats{
		now: time.Now,
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of slash commands handled",
		}, []string{"command"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Content cache lookups by result",
		}, []string{"result"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Content fetch failures by kind",
		}, []string{"kind"}),
		sourceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Content requests per subreddit",
		}, []string{"source"}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if reg != nil {
		reg.MustRegister(s.commandsTotal, s.cacheTotal, s.errorsTotal, s.sourceTotal)
	}

	s.reset()
	return s
}

func (s *Stats) reset() {
	s.startTime = s.now()
	s.totalCommands = 0
	s.commandCounts = map[string]uint64{}
	s.cacheHits = 0
	s.cacheMisses = 0
	s.errors = 0
	s.timeouts = 0
	s.sourceRequests = map[string]uint64{}
}

// RecordCommand counts one invocation of the named command.
func (s *Stats) RecordCommand(name string) {
	s.mu.Lock()
	s.totalCommands++
	s.commandCounts[name]++
	s.mu.Unlock()

	s.commandsTotal.WithLabelValues(name).Inc()
}

// RecordCacheHit counts a content request served from the cache.
func (s *Stats) RecordCacheHit() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()

	s.cacheTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a content request that refreshed the cache from upstream.
func (s *Stats) RecordCacheMiss() {
	s.mu.Lock()
	s.cacheMisses++
	s.mu.Unlock()

	s.cacheTotal.WithLabelValues("miss").Inc()
}

// RecordError counts a failed content request. Timeouts count as errors too.
func (s *Stats) RecordError(timeout bool) {
	kind := "upstream"
	s.mu.Lock()
	s.errors++
	if timeout {
		s.timeouts++
		kind = "timeout"
	}
	s.mu.Unlock()

	s.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSourceRequest counts one content request for source.
func (s *Stats) RecordSourceRequest(source string) {
	s.mu.Lock()
	s.sourceRequests[source]++
	s.mu.Unlock()

	s.sourceTotal.WithLabelValues(source).Inc()
}

// Snapshot returns a copy of the counters with the current uptime.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		StartTime:      s.startTime,
		Uptime:         s.now().Sub(s.startTime),
		TotalCommands:  s.totalCommands,
		CommandCounts:  maps.Clone(s.commandCounts),
		CacheHits:      s.cacheHits,
		CacheMisses:    s.cacheMisses,
		Errors:         s.errors,
		Timeouts:       s.timeouts,
		SourceRequests: maps.Clone(s.sourceRequests),
	}
}

// HitRate returns the cache hit percentage rounded to one decimal place,
// or 0 before any lookup.
func (s Snapshot) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return math.Round(float64(s.CacheHits)/float64(total)*1000) / 10
}

// Reset zeroes the in-memory counters and restarts the uptime clock.
// Prometheus counters are monotonic and are left alone.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
}

// FormatUptime renders d as "1d 2h 3m", "2h 3m 4s", "3m 4s" or "4s".
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	mins := secs / 60
	hours := mins / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours%24, mins%60)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, mins%60, secs%60)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs%60)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
