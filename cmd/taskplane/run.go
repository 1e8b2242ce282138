package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joss/taskplane/internal/config"
	"github.com/joss/taskplane/internal/guard"
	"github.com/joss/taskplane/internal/memory"
	"github.com/joss/taskplane/internal/message"
	"github.com/joss/taskplane/internal/orchestrator"
	"github.com/joss/taskplane/internal/persist"
	"github.com/joss/taskplane/internal/taskgraph"
)

// planTask is one entry in a plan file.
type planTask struct {
	ID   string          `json:"id"`
	Deps []string        `json:"deps,omitempty"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

func runCmd() *cobra.Command {
	var persistResults bool
	var emitEnvelopes bool

	cmd := &cobra.Command{
		Use:   "run <plan.json>",
		Short: "Execute a task plan",
		Long: `Execute a plan file: a JSON array of tasks, each with an id,
optional deps, a tool name, and JSON args.

Built-in tools:
  echo    returns its args verbatim
  upper   returns {"text": ...} uppercased
  sleep   waits {"ms": n} milliseconds`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read plan: %w", err)
			}
			var plan []planTask
			if err := json.Unmarshal(data, &plan); err != nil {
				return fmt.Errorf("parse plan: %w", err)
			}

			env := config.Load()
			gd, err := guard.New(env.MaxDepth,
				guard.WithCacheTTL(time.Duration(env.CacheTTLSecs)*time.Second))
			if err != nil {
				return err
			}
			g := taskgraph.New(taskgraph.WithWorkers(env.Workers))

			opts := []orchestrator.Option{
				orchestrator.WithMemory(memory.New(memory.WithMaxItems(env.MemoryMax))),
			}
			if persistResults {
				db, err := persist.Open(env.DBPath)
				if err != nil {
					return fmt.Errorf("open persistence: %w", err)
				}
				defer db.Close()
				opts = append(opts, orchestrator.WithPersistence(db))
			}

			o := orchestrator.New(g, gd, opts...)
			registerBuiltinTools(o)

			for _, t := range plan {
				if err := o.AddTask(t.ID, t.Deps, t.Tool, string(t.Args)); err != nil {
					return err
				}
			}

			s, err := o.Run(cmd.Context())
			if err != nil {
				return err
			}

			if emitEnvelopes {
				return printEnvelopes(o, g, s)
			}
			printSummary(s, g)
			return nil
		},
	}

	cmd.Flags().BoolVar(&persistResults, "persist", false, "record completed results into the sqlite store")
	cmd.Flags().BoolVar(&emitEnvelopes, "messages", false, "emit one agent message envelope per completed task")
	return cmd
}

func registerBuiltinTools(o *orchestrator.Orchestrator) {
	o.RegisterTool("echo", func(ctx context.Context, args string) (string, error) {
		return args, nil
	})
	o.RegisterTool("upper", func(ctx context.Context, args string) (string, error) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", err
		}
		return strings.ToUpper(in.Text), nil
	})
	o.RegisterTool("sleep", func(ctx context.Context, args string) (string, error) {
		var in struct {
			Ms int `json:"ms"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", err
		}
		select {
		case <-time.After(time.Duration(in.Ms) * time.Millisecond):
			return "slept " + strconv.Itoa(in.Ms) + "ms", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

// printEnvelopes emits each completed result as a routed agent message,
// one JSON line per task, for downstream consumers.
func printEnvelopes(o *orchestrator.Orchestrator, g *taskgraph.Graph, s orchestrator.Summary) error {
	for _, id := range s.Completed {
		result, err := g.Result(id)
		if err != nil {
			return err
		}
		m := message.New("", "orchestrator/"+o.RunID(), "task/"+id, result)
		line, err := m.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(line)
	}
	return nil
}

func printSummary(s orchestrator.Summary, g *taskgraph.Graph) {
	fmt.Println(color.CyanString("Run %s", s.RunID))
	fmt.Println(strings.Repeat("─", 40))

	for _, id := range s.Completed {
		result, _ := g.Result(id)
		fmt.Printf("%s %s: %s\n", color.GreenString("✓"), id, truncate(result, 60))
	}
	for _, id := range s.Failed {
		t, _ := g.Get(id)
		fmt.Printf("%s %s: %s\n", color.RedString("✗"), id, t.Error)
	}

	fmt.Println(strings.Repeat("─", 40))
	fmt.Printf("completed: %d, failed: %d, execution time: %dms\n",
		len(s.Completed), len(s.Failed), s.GraphStats.TotalExecutionTimeMs)
	if s.GuardStats.CacheHitRatePercent != nil {
		fmt.Printf("cache hit rate: %d%%\n", *s.GuardStats.CacheHitRatePercent)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
