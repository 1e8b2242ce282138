package guard

import (
	"testing"
	"time"
)

// setClock pins the package clock to a controllable instant and
// restores the real clock when the test ends.
func setClock(t *testing.T) *time.Time {
	t.Helper()
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return current }
	t.Cleanup(func() { now = time.Now })
	return &current
}

func TestCacheRoundTrip(t *testing.T) {
	g, err := New(5)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := g.CachedResult("search", `{"q":"go"}`); ok {
		t.Fatal("empty cache should miss")
	}

	g.CacheResult("search", `{"q":"go"}`, "ten results")
	got, ok := g.CachedResult("search", `{"q":"go"}`)
	if !ok {
		t.Fatal("expected a hit after CacheResult")
	}
	if got != "ten results" {
		t.Errorf("result = %q, want %q", got, "ten results")
	}

	// Same args under a different operation name is a distinct key.
	if _, ok := g.CachedResult("fetch", `{"q":"go"}`); ok {
		t.Error("different operation name should miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	clock := setClock(t)

	g, err := New(5, WithCacheTTL(10*time.Second))
	if err != nil {
		t.Fatal(err)
	}

	g.CacheResult("op", "{}", "fresh")

	*clock = clock.Add(9 * time.Second)
	if _, ok := g.CachedResult("op", "{}"); !ok {
		t.Fatal("entry inside the TTL should hit")
	}

	*clock = clock.Add(2 * time.Second)
	if _, ok := g.CachedResult("op", "{}"); ok {
		t.Fatal("entry past the TTL should miss")
	}

	// Expiry is lazy; the stale entry stays until overwritten.
	if g.CacheSize() != 1 {
		t.Errorf("CacheSize = %d, want 1", g.CacheSize())
	}

	// Re-caching under the same key revives it.
	g.CacheResult("op", "{}", "refreshed")
	got, ok := g.CachedResult("op", "{}")
	if !ok || got != "refreshed" {
		t.Errorf("after refresh: got %q, %v", got, ok)
	}
}

func TestCacheExpiredLookupCountsMiss(t *testing.T) {
	clock := setClock(t)

	g, err := New(5, WithCacheTTL(time.Second))
	if err != nil {
		t.Fatal(err)
	}

	g.CacheResult("op", "{}", "r")
	*clock = clock.Add(5 * time.Second)
	g.CachedResult("op", "{}")

	s := g.Stats()
	if s.CacheHits != 0 || s.CacheMisses != 1 {
		t.Errorf("hits=%d misses=%d, want 0/1 for an expired lookup", s.CacheHits, s.CacheMisses)
	}
}

func TestClearCache(t *testing.T) {
	g, err := New(5)
	if err != nil {
		t.Fatal(err)
	}

	g.CacheResult("a", "{}", "1")
	g.CacheResult("b", "{}", "2")
	g.CacheResult("b", "{}", "2-overwritten")

	if n := g.ClearCache(); n != 2 {
		t.Errorf("ClearCache = %d, want 2", n)
	}
	if g.CacheSize() != 0 {
		t.Errorf("CacheSize = %d, want 0", g.CacheSize())
	}
	if n := g.ClearCache(); n != 0 {
		t.Errorf("second ClearCache = %d, want 0", n)
	}
}

func TestClearCachePreservesCounters(t *testing.T) {
	g, err := New(5)
	if err != nil {
		t.Fatal(err)
	}

	g.CacheResult("op", "{}", "r")
	g.CachedResult("op", "{}")   // hit
	g.CachedResult("other", "x") // miss
	g.ClearCache()

	s := g.Stats()
	if s.CacheHits != 1 || s.CacheMisses != 1 {
		t.Errorf("hits=%d misses=%d, want counters to survive ClearCache", s.CacheHits, s.CacheMisses)
	}
}
