// Package orchestrator drives the control plane end to end: it
// registers tasks into the scheduler, polls for ready work, gates each
// tool invocation through the bounded execution guard and its result
// cache, and reports completions and failures back into the graph.
// Completed results are optionally recorded into the short-term memory
// store and the long-term persistence layer.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joss/taskplane/internal/guard"
	"github.com/joss/taskplane/internal/logging"
	"github.com/joss/taskplane/internal/memory"
	"github.com/joss/taskplane/internal/persist"
	"github.com/joss/taskplane/internal/taskgraph"
)

// ToolFunc is an externally supplied tool body. Arguments arrive as the
// canonical JSON payload the task was registered with.
type ToolFunc func(ctx context.Context, args string) (string, error)

// invocation binds a task to the tool call it performs.
type invocation struct {
	tool string
	args string // canonical form
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Completed  []string
	Failed     []string
	GraphStats taskgraph.Stats
	GuardStats guard.Stats
}

// Orchestrator coordinates the scheduler and the execution guard. It
// is built for a single driving loop; the graph's Claim step keeps a
// second orchestrator on the same graph from double-starting tasks.
type Orchestrator struct {
	graph *taskgraph.Graph
	guard *guard.Guard
	log   *logging.Logger
	runID string

	mu          sync.Mutex
	tools       map[string]ToolFunc
	invocations map[string]invocation

	mem *memory.Store
	db  *persist.DB
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMemory attaches a short-term memory store; completed results are
// saved into it.
func WithMemory(store *memory.Store) Option {
	return func(o *Orchestrator) {
		o.mem = store
	}
}

// WithPersistence attaches the long-term store; completed results are
// inserted as memories.
func WithPersistence(db *persist.DB) Option {
	return func(o *Orchestrator) {
		o.db = db
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// New creates an orchestrator over the given graph and guard. Each
// orchestrator gets a ULID run identifier carried on its log events.
func New(g *taskgraph.Graph, gd *guard.Guard, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		graph:       g,
		guard:       gd,
		runID:       ulid.Make().String(),
		tools:       make(map[string]ToolFunc),
		invocations: make(map[string]invocation),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.New("orchestrator")
	}
	o.log = o.log.WithRun(o.runID)
	return o
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// RegisterTool binds a tool name to its body. Re-registration
// overwrites.
func (o *Orchestrator) RegisterTool(name string, fn ToolFunc) {
	o.mu.Lock()
	o.tools[name] = fn
	o.mu.Unlock()
}

// AddTask registers a task that invokes the named tool with the given
// JSON arguments once its dependencies complete. Arguments are
// validated and canonicalized up front so malformed payloads fail at
// registration, not mid-run.
func (o *Orchestrator) AddTask(id string, dependencies []string, tool, argsJSON string) error {
	if err := o.guard.ValidateArgs(argsJSON); err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	canon, err := o.guard.CanonicalArgs(argsJSON)
	if err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}

	o.mu.Lock()
	o.invocations[id] = invocation{tool: tool, args: canon}
	o.mu.Unlock()

	o.graph.Register(id, dependencies)
	return nil
}

// Run executes the registered tasks to quiescence: each pass collects
// the ready set and fans it out through the scheduler's worker pool.
// Tool failures mark their task Failed and do not abort the run;
// dependents of a failed task simply never become ready. The run ends
// when no task is ready, which covers both completion and starvation
// behind failures. A cyclic graph fails up front.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	if _, err := o.graph.ExecutionOrder(); err != nil {
		return o.summary(), err
	}

	for {
		ready := o.graph.ReadyTasks()
		if len(ready) == 0 {
			break
		}
		if _, err := o.graph.ExecuteConcurrent(ctx, ready, o.runTask); err != nil {
			return o.summary(), err
		}
	}

	s := o.summary()
	o.log.TimedEvent("run_finished", start, map[string]interface{}{
		"completed": len(s.Completed),
		"failed":    len(s.Failed),
	})
	return s, nil
}

// runTask executes one claimed task through the guard. Infrastructure
// errors (context cancellation) propagate and abort the batch; tool
// errors are recorded on the task and absorbed.
func (o *Orchestrator) runTask(ctx context.Context, id string) error {
	if err := o.graph.Claim(id); err != nil {
		if errors.Is(err, taskgraph.ErrNotPending) {
			// Another claimer won the race.
			return nil
		}
		return err
	}

	o.mu.Lock()
	inv, bound := o.invocations[id]
	fn := o.tools[inv.tool]
	o.mu.Unlock()

	if !bound {
		o.graph.MarkFailed(id, "no tool invocation bound to task")
		return nil
	}
	if fn == nil {
		o.graph.MarkFailed(id, fmt.Sprintf("unknown tool: %s", inv.tool))
		return nil
	}

	handle, err := o.beginWithBackoff(ctx, inv)
	if err != nil {
		return err
	}
	defer o.guard.End()

	log := o.log.WithTask(id)

	if cached, ok := o.guard.CachedResult(inv.tool, inv.args); ok {
		log.Debug("cache_hit", map[string]interface{}{"tool": inv.tool, "handle": handle})
		o.graph.MarkCompleted(id, cached)
		o.record(ctx, id, inv, cached)
		return nil
	}

	start := time.Now()
	result, err := fn(ctx, inv.args)
	if err != nil {
		log.Error("tool_failed", map[string]interface{}{"tool": inv.tool}, err)
		o.graph.MarkFailed(id, err.Error())
		return nil
	}

	o.guard.CacheResult(inv.tool, inv.args, result)
	o.graph.MarkCompleted(id, result)
	o.record(ctx, id, inv, result)
	log.TimedEvent("task_completed", start, map[string]interface{}{"tool": inv.tool})
	return nil
}

// beginWithBackoff waits for a guard slot. The guard itself never
// retries; waiting out saturation is an orchestrator policy.
func (o *Orchestrator) beginWithBackoff(ctx context.Context, inv invocation) (string, error) {
	for {
		handle, err := o.guard.Begin(inv.tool, inv.args)
		if err == nil {
			return handle, nil
		}
		if !guard.IsDepthExceeded(err) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// record propagates a completed result into the attached stores.
func (o *Orchestrator) record(ctx context.Context, id string, inv invocation, result string) {
	if o.mem != nil {
		if err := o.mem.Save(result, map[string]string{"task": id, "tool": inv.tool}); err != nil {
			o.log.Warn("memory_save_failed", map[string]interface{}{"task": id}, err)
		}
	}
	if o.db != nil {
		meta, _ := json.Marshal(map[string]string{"task": id, "tool": inv.tool, "run": o.runID})
		_, err := o.db.InsertMemory(ctx, result, string(meta), time.Now().UTC().Format(time.RFC3339), 1.0)
		if err != nil {
			o.log.Warn("persist_failed", map[string]interface{}{"task": id}, err)
		}
	}
}

func (o *Orchestrator) summary() Summary {
	s := Summary{
		RunID:      o.runID,
		GraphStats: o.graph.Stats(),
		GuardStats: o.guard.Stats(),
	}
	for _, t := range o.graph.Tasks() {
		switch t.State {
		case taskgraph.StateCompleted:
			s.Completed = append(s.Completed, t.ID)
		case taskgraph.StateFailed:
			s.Failed = append(s.Failed, t.ID)
		}
	}
	return s
}
