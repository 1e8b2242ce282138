// Package guard implements the bounded tool-execution guard: a
// recursion-depth limiter over concurrently in-flight executions,
// combined with a TTL result cache keyed by canonical arguments and a
// set of execution counters. The task scheduler has no dependency on
// this package; the two compose only through an orchestrator.
package guard

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCacheTTL is applied when no TTL option is given.
const DefaultCacheTTL = 300 * time.Second

// Guard gates tool executions behind a configurable in-flight bound.
// The counter, the cache, and the stats each sit behind their own
// mutex; operations touching more than one acquire them in a fixed
// order (counter, then stats) and never hold two at once.
type Guard struct {
	maxDepth int
	ttl      time.Duration

	mu       sync.Mutex
	inFlight int

	cacheMu sync.Mutex
	cache   map[string]cacheEntry

	statsMu  sync.Mutex
	counters counters
}

type counters struct {
	totalExecutions    int64
	cacheHits          int64
	cacheMisses        int64
	validationFailures int64
}

// Option configures a Guard.
type Option func(*Guard)

// WithCacheTTL overrides the default cache entry time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		g.ttl = ttl
	}
}

// New creates a guard with the given in-flight bound. The bound is
// required and must be positive.
func New(maxRecursionDepth int, opts ...Option) (*Guard, error) {
	if maxRecursionDepth <= 0 {
		return nil, fmt.Errorf("max recursion depth must be positive, got %d", maxRecursionDepth)
	}
	g := &Guard{
		maxDepth: maxRecursionDepth,
		ttl:      DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CanExecute reports whether the in-flight count is below the bound.
// It is a pure query; a true result can be stale by the time the
// caller acts on it, so Begin re-checks under the lock.
func (g *Guard) CanExecute() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight < g.maxDepth
}

// InFlight returns the current in-flight count.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Begin atomically checks the bound and increments the in-flight
// counter. It returns an advisory execution handle built from the
// operation name and argument length; handles are not unique and must
// not be used as cache keys. On saturation it fails with
// ErrDepthExceeded and leaves both counters untouched.
func (g *Guard) Begin(name, args string) (string, error) {
	g.mu.Lock()
	if g.inFlight >= g.maxDepth {
		g.mu.Unlock()
		return "", ErrDepthExceeded
	}
	g.inFlight++
	g.mu.Unlock()

	g.statsMu.Lock()
	g.counters.totalExecutions++
	g.statsMu.Unlock()

	return fmt.Sprintf("%s:%d", name, len(args)), nil
}

// End decrements the in-flight counter. A decrement at zero is a
// silent no-op; mismatched Begin/End pairs from caller bugs must not
// underflow the counter.
func (g *Guard) End() {
	g.mu.Lock()
	if g.inFlight > 0 {
		g.inFlight--
	}
	g.mu.Unlock()
}

// Stats is a point-in-time snapshot of the guard counters.
// CacheHitRatePercent is present only once at least one cache lookup
// has occurred; reporting 0% before any lookup would be ambiguous.
type Stats struct {
	TotalExecutions     int64  `json:"total_executions"`
	CacheHits           int64  `json:"cache_hits"`
	CacheMisses         int64  `json:"cache_misses"`
	ValidationFailures  int64  `json:"validation_failures"`
	CacheHitRatePercent *int64 `json:"cache_hit_rate_percent,omitempty"`
}

// Stats returns a snapshot of the counters.
func (g *Guard) Stats() Stats {
	g.statsMu.Lock()
	c := g.counters
	g.statsMu.Unlock()

	s := Stats{
		TotalExecutions:    c.totalExecutions,
		CacheHits:          c.cacheHits,
		CacheMisses:        c.cacheMisses,
		ValidationFailures: c.validationFailures,
	}
	if lookups := c.cacheHits + c.cacheMisses; lookups > 0 {
		rate := c.cacheHits * 100 / lookups
		s.CacheHitRatePercent = &rate
	}
	return s
}
