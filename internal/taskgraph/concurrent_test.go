package taskgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteConcurrentRunsAll(t *testing.T) {
	g := New(WithWorkers(4))
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("unit-%d", i)
	}

	var executed int32
	done, err := g.ExecuteConcurrent(context.Background(), ids, func(ctx context.Context, id string) error {
		atomic.AddInt32(&executed, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteConcurrent: %v", err)
	}

	if int(executed) != len(ids) {
		t.Errorf("executed = %d, want %d", executed, len(ids))
	}

	sort.Strings(done)
	want := append([]string(nil), ids...)
	sort.Strings(want)
	for i := range want {
		if done[i] != want[i] {
			t.Fatalf("completed set %v != dispatched set %v", done, ids)
		}
	}
}

func TestExecuteConcurrentNilBody(t *testing.T) {
	g := New()
	done, err := g.ExecuteConcurrent(context.Background(), []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("ExecuteConcurrent: %v", err)
	}
	if len(done) != 2 {
		t.Errorf("completed = %v, want both identifiers", done)
	}
}

func TestExecuteConcurrentFirstFailureAborts(t *testing.T) {
	g := New(WithWorkers(2))

	boom := errors.New("boom")
	_, err := g.ExecuteConcurrent(context.Background(), []string{"ok-1", "bad", "ok-2"}, func(ctx context.Context, id string) error {
		if id == "bad" {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestExecuteConcurrentRespectsPoolBound(t *testing.T) {
	const workers = 3
	g := New(WithWorkers(workers))

	var inFlight, peak int32
	var mu sync.Mutex

	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("unit-%d", i)
	}

	_, err := g.ExecuteConcurrent(context.Background(), ids, func(ctx context.Context, id string) error {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteConcurrent: %v", err)
	}

	if peak > workers {
		t.Errorf("peak concurrency = %d, want <= %d", peak, workers)
	}
}

func TestExecuteConcurrentCancellation(t *testing.T) {
	g := New(WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	_, err := g.ExecuteConcurrent(ctx, []string{"a", "b", "c"}, func(ctx context.Context, id string) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExecuteConcurrentAccumulatesTime(t *testing.T) {
	g := New()
	_, err := g.ExecuteConcurrent(context.Background(), []string{"a"}, func(ctx context.Context, id string) error {
		time.Sleep(15 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteConcurrent: %v", err)
	}

	if ms := g.Stats().TotalExecutionTimeMs; ms < 10 {
		t.Errorf("TotalExecutionTimeMs = %d, want >= 10", ms)
	}
}

func TestExecuteConcurrentEmptyBatch(t *testing.T) {
	g := New()
	done, err := g.ExecuteConcurrent(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ExecuteConcurrent(nil): %v", err)
	}
	if len(done) != 0 {
		t.Errorf("completed = %v, want empty", done)
	}
}
