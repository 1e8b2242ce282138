package guard

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewRejectsNonPositiveDepth(t *testing.T) {
	for _, depth := range []int{0, -1, -100} {
		if _, err := New(depth); err == nil {
			t.Errorf("New(%d): expected error", depth)
		}
	}
	if _, err := New(1); err != nil {
		t.Fatalf("New(1): %v", err)
	}
}

func TestBeginEndLifecycle(t *testing.T) {
	g, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	if !g.CanExecute() {
		t.Fatal("fresh guard should allow execution")
	}

	handle, err := g.Begin("search", `{"q":"go"}`)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if handle != "search:10" {
		t.Errorf("handle = %q, want %q", handle, "search:10")
	}
	if g.InFlight() != 1 {
		t.Errorf("InFlight = %d, want 1", g.InFlight())
	}

	g.End()
	if g.InFlight() != 0 {
		t.Errorf("InFlight after End = %d, want 0", g.InFlight())
	}
}

func TestBeginSaturation(t *testing.T) {
	g, err := New(1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.Begin("a", "{}"); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if g.CanExecute() {
		t.Error("CanExecute should report false at the bound")
	}

	_, err = g.Begin("b", "{}")
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("second Begin err = %v, want ErrDepthExceeded", err)
	}

	// The rejected Begin must not count as an execution.
	if n := g.Stats().TotalExecutions; n != 1 {
		t.Errorf("TotalExecutions = %d, want 1", n)
	}

	g.End()
	if _, err := g.Begin("c", "{}"); err != nil {
		t.Fatalf("Begin after End: %v", err)
	}
}

func TestEndAtZeroIsNoOp(t *testing.T) {
	g, err := New(3)
	if err != nil {
		t.Fatal(err)
	}

	g.End()
	g.End()
	if g.InFlight() != 0 {
		t.Fatalf("InFlight = %d, want 0 after spurious Ends", g.InFlight())
	}

	// The counter must still behave after the no-ops.
	if _, err := g.Begin("x", ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if g.InFlight() != 1 {
		t.Errorf("InFlight = %d, want 1", g.InFlight())
	}
}

func TestBeginConcurrentRespectsBound(t *testing.T) {
	const (
		bound    = 4
		attempts = 64
	)
	g, err := New(bound)
	if err != nil {
		t.Fatal(err)
	}

	var admitted, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Begin("op", "{}"); err != nil {
				atomic.AddInt32(&rejected, 1)
				return
			}
			atomic.AddInt32(&admitted, 1)
		}()
	}
	wg.Wait()

	if admitted > bound {
		t.Errorf("admitted = %d, want <= %d", admitted, bound)
	}
	if int(admitted+rejected) != attempts {
		t.Errorf("admitted+rejected = %d, want %d", admitted+rejected, attempts)
	}
	if g.InFlight() != int(admitted) {
		t.Errorf("InFlight = %d, want %d", g.InFlight(), admitted)
	}
}

func TestStatsHitRateAbsentBeforeLookups(t *testing.T) {
	g, err := New(5)
	if err != nil {
		t.Fatal(err)
	}

	if s := g.Stats(); s.CacheHitRatePercent != nil {
		t.Errorf("CacheHitRatePercent = %d, want absent before any lookup", *s.CacheHitRatePercent)
	}

	g.CachedResult("op", "{}") // miss
	s := g.Stats()
	if s.CacheHitRatePercent == nil {
		t.Fatal("CacheHitRatePercent should be present after a lookup")
	}
	if *s.CacheHitRatePercent != 0 {
		t.Errorf("hit rate = %d, want 0", *s.CacheHitRatePercent)
	}

	g.CacheResult("op", "{}", "r")
	g.CachedResult("op", "{}") // hit
	s = g.Stats()
	if *s.CacheHitRatePercent != 50 {
		t.Errorf("hit rate = %d, want 50", *s.CacheHitRatePercent)
	}
}
