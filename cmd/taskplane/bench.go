package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joss/taskplane/internal/guard"
	"github.com/joss/taskplane/internal/memory"
	"github.com/joss/taskplane/internal/taskgraph"
)

func benchCmd() *cobra.Command {
	var tasks int
	var lookups int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run component micro-benchmarks",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(color.CyanString("Taskplane Benchmarks"))
			fmt.Println(strings.Repeat("─", 40))

			benchScheduler(cmd.Context(), tasks)
			benchGuardCache(lookups)
			benchMemorySearch(lookups)
		},
	}

	cmd.Flags().IntVar(&tasks, "tasks", 1000, "tasks per scheduler benchmark")
	cmd.Flags().IntVar(&lookups, "lookups", 10000, "lookups per cache/memory benchmark")
	return cmd
}

// benchScheduler registers a linear chain, sorts it, and runs the
// independent-set fan-out.
func benchScheduler(ctx context.Context, n int) {
	g := taskgraph.New()

	start := time.Now()
	for i := 0; i < n; i++ {
		var deps []string
		if i > 0 {
			deps = []string{fmt.Sprintf("task-%d", i-1)}
		}
		g.Register(fmt.Sprintf("task-%d", i), deps)
	}
	registered := time.Since(start)

	start = time.Now()
	if _, err := g.ExecutionOrder(); err != nil {
		printBench("scheduler", err.Error())
		return
	}
	sorted := time.Since(start)

	// Independent batch through the worker pool.
	flat := taskgraph.New()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("unit-%d", i)
		flat.Register(ids[i], nil)
	}
	start = time.Now()
	flat.ExecuteConcurrent(ctx, ids, func(ctx context.Context, id string) error {
		return nil
	})
	dispatched := time.Since(start)

	printBench("scheduler", fmt.Sprintf("register %d: %v, sort: %v, fan-out: %v",
		n, registered, sorted, dispatched))
}

func benchGuardCache(n int) {
	g, err := guard.New(8)
	if err != nil {
		printBench("guard cache", err.Error())
		return
	}
	g.CacheResult("bench", `{"q":1}`, "result")

	start := time.Now()
	for i := 0; i < n; i++ {
		g.CachedResult("bench", `{"q":1}`)
	}
	printBench("guard cache", fmt.Sprintf("%d lookups: %v", n, time.Since(start)))
}

func benchMemorySearch(n int) {
	mem := memory.New()
	for i := 0; i < 500; i++ {
		mem.Save(fmt.Sprintf("memory item %d about task scheduling and execution", i), nil)
	}

	start := time.Now()
	for i := 0; i < n/100; i++ {
		mem.Search("task scheduling", 3)
	}
	printBench("memory search", fmt.Sprintf("%d searches over 500 items: %v", n/100, time.Since(start)))
}

func printBench(name, detail string) {
	fmt.Printf("%s %-14s %s\n", color.GreenString("•"), name, detail)
}
