package guard

import (
	"time"
)

type cacheEntry struct {
	result    string
	createdAt time.Time
}

// now is overridden in tests to exercise TTL expiry deterministically.
var now = time.Now

func cacheKey(name, canonicalArgs string) string {
	return name + ":" + canonicalArgs
}

// CachedResult looks up a cached result for the operation name and
// canonical argument string. An entry past its TTL is treated as
// absent; expiry is lazy and the stale entry stays until the next
// CacheResult under the same key overwrites it. Every lookup bumps
// exactly one of the hit or miss counters.
func (g *Guard) CachedResult(name, canonicalArgs string) (string, bool) {
	key := cacheKey(name, canonicalArgs)

	g.cacheMu.Lock()
	entry, ok := g.cache[key]
	g.cacheMu.Unlock()

	if ok && now().Sub(entry.createdAt) < g.ttl {
		g.statsMu.Lock()
		g.counters.cacheHits++
		g.statsMu.Unlock()
		return entry.result, true
	}

	g.statsMu.Lock()
	g.counters.cacheMisses++
	g.statsMu.Unlock()
	return "", false
}

// CacheResult stores a result under the operation name and canonical
// argument string, overwriting any prior entry for the same key.
func (g *Guard) CacheResult(name, canonicalArgs, result string) {
	key := cacheKey(name, canonicalArgs)

	g.cacheMu.Lock()
	g.cache[key] = cacheEntry{result: result, createdAt: now()}
	g.cacheMu.Unlock()
}

// ClearCache empties the cache and returns the number of entries
// removed. Hit and miss counters are unaffected.
func (g *Guard) ClearCache() int {
	g.cacheMu.Lock()
	n := len(g.cache)
	g.cache = make(map[string]cacheEntry)
	g.cacheMu.Unlock()
	return n
}

// CacheSize returns the number of entries currently held, expired or
// not.
func (g *Guard) CacheSize() int {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	return len(g.cache)
}
