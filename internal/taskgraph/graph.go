// Package taskgraph implements the dependency-aware task registry and
// scheduler at the heart of the control plane. An orchestrator registers
// tasks with declared dependencies, polls for ready work, and reports
// state transitions back; the graph answers readiness queries, computes
// topological execution orders, and fans batches of independent tasks
// out to a shared worker pool.
package taskgraph

import (
	"runtime"
	"sync"
)

// Stats holds cumulative scheduler counters. Counters survive Clear;
// the working set and the telemetry have separate lifecycles.
type Stats struct {
	TasksScheduled       int64 `json:"tasks_scheduled"`
	TasksCompleted       int64 `json:"tasks_completed"`
	TasksFailed          int64 `json:"tasks_failed"`
	TotalExecutionTimeMs int64 `json:"total_execution_time_ms"`
}

// Graph is a registry of tasks keyed by identifier, forming a directed
// graph over dependency edges. The task map and the stats counters are
// independently lock-protected; no atomicity is promised across
// separate calls.
type Graph struct {
	mu    sync.RWMutex
	tasks map[string]*Task

	statsMu sync.Mutex
	stats   Stats

	// sem bounds how many ExecuteConcurrent units run at once.
	sem chan struct{}
}

// Option configures a Graph.
type Option func(*Graph)

// WithWorkers sets the size of the shared execution pool. Zero or
// negative falls back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.sem = make(chan struct{}, n)
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		tasks: make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.sem == nil {
		size := runtime.GOMAXPROCS(0)
		if size < 1 {
			size = 1
		}
		g.sem = make(chan struct{}, size)
	}
	return g
}

// Register inserts a task in state Pending. Re-registering an existing
// identifier overwrites it and discards prior state. Dependencies are
// not validated here; registration order is unconstrained and dangling
// references surface at readiness or ordering queries.
func (g *Graph) Register(id string, dependencies []string) {
	g.mu.Lock()
	g.tasks[id] = &Task{
		ID:           id,
		Dependencies: append([]string(nil), dependencies...),
		State:        StatePending,
	}
	g.mu.Unlock()

	g.statsMu.Lock()
	g.stats.TasksScheduled++
	g.statsMu.Unlock()
}

// Get returns a copy of the task with the given identifier.
func (g *Graph) Get(id string) (Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.tasks[id]
	if !ok {
		return Task{}, &NotFoundError{Kind: "task", ID: id}
	}
	return t.clone(), nil
}

// Tasks returns a snapshot copy of every registered task. Order is
// unspecified.
func (g *Graph) Tasks() []Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t.clone())
	}
	return out
}

// Len returns the number of registered tasks.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// IsReady reports whether every dependency of the task is Completed.
// Unknown task identifiers and dangling dependencies are hard errors.
func (g *Graph) IsReady(id string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.tasks[id]
	if !ok {
		return false, &NotFoundError{Kind: "task", ID: id}
	}
	for _, dep := range t.Dependencies {
		depTask, ok := g.tasks[dep]
		if !ok {
			return false, &NotFoundError{Kind: "dependency", ID: dep}
		}
		if depTask.State != StateCompleted {
			return false, nil
		}
	}
	return true, nil
}

// ReadyTasks returns the identifiers of all Pending tasks whose
// dependencies are registered and Completed. A dangling dependency
// makes its task not ready rather than erroring; bulk polling is
// deliberately forgiving where IsReady is strict. The returned order
// is unspecified.
func (g *Graph) ReadyTasks() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for id, t := range g.tasks {
		if t.State != StatePending {
			continue
		}
		satisfied := true
		for _, dep := range t.Dependencies {
			depTask, ok := g.tasks[dep]
			if !ok || depTask.State != StateCompleted {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, id)
		}
	}
	return ready
}

// MarkStarted transitions a task to Running unconditionally.
func (g *Graph) MarkStarted(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok {
		return &NotFoundError{Kind: "task", ID: id}
	}
	t.State = StateRunning
	return nil
}

// Claim transitions a task from Pending to Running only if it is still
// Pending. Concurrent orchestrators racing on the same graph use Claim
// instead of MarkStarted so a task cannot be double-started.
func (g *Graph) Claim(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok {
		return &NotFoundError{Kind: "task", ID: id}
	}
	if t.State != StatePending {
		return ErrNotPending
	}
	t.State = StateRunning
	return nil
}

// MarkCompleted transitions a task to Completed and stores its result.
// Transition legality is not enforced beyond existence; completing an
// already-Completed task overwrites the result.
func (g *Graph) MarkCompleted(id, result string) error {
	g.mu.Lock()
	t, ok := g.tasks[id]
	if !ok {
		g.mu.Unlock()
		return &NotFoundError{Kind: "task", ID: id}
	}
	t.State = StateCompleted
	t.Result = result
	g.mu.Unlock()

	g.statsMu.Lock()
	g.stats.TasksCompleted++
	g.statsMu.Unlock()
	return nil
}

// MarkFailed transitions a task to Failed and stores the error message.
func (g *Graph) MarkFailed(id, errMsg string) error {
	g.mu.Lock()
	t, ok := g.tasks[id]
	if !ok {
		g.mu.Unlock()
		return &NotFoundError{Kind: "task", ID: id}
	}
	t.State = StateFailed
	t.Error = errMsg
	g.mu.Unlock()

	g.statsMu.Lock()
	g.stats.TasksFailed++
	g.statsMu.Unlock()
	return nil
}

// Result returns the stored result of a task. It is empty until the
// task completes.
func (g *Graph) Result(id string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.tasks[id]
	if !ok {
		return "", &NotFoundError{Kind: "task", ID: id}
	}
	return t.Result, nil
}

// Stats returns a snapshot of the cumulative counters.
func (g *Graph) Stats() Stats {
	g.statsMu.Lock()
	defer g.statsMu.Unlock()
	return g.stats
}

// Clear discards all registered tasks. Counters are cumulative across
// clears and are not reset.
func (g *Graph) Clear() {
	g.mu.Lock()
	g.tasks = make(map[string]*Task)
	g.mu.Unlock()
}

func (g *Graph) addExecutionTime(ms int64) {
	g.statsMu.Lock()
	g.stats.TotalExecutionTimeMs += ms
	g.statsMu.Unlock()
}
