package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joss/taskplane/internal/config"
	"github.com/joss/taskplane/internal/guard"
	"github.com/joss/taskplane/internal/memory"
	"github.com/joss/taskplane/internal/persist"
	"github.com/joss/taskplane/internal/taskgraph"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check component status",
		Run: func(cmd *cobra.Command, args []string) {
			env := config.Load()

			fmt.Println(color.CyanString("Taskplane Status"))
			fmt.Println(strings.Repeat("─", 40))

			// Scheduler and guard are in-process; constructing them is
			// the whole health check.
			g := taskgraph.New(taskgraph.WithWorkers(env.Workers))
			g.Register("probe", nil)
			_, orderErr := g.ExecutionOrder()
			printComponent("scheduler", orderErr)

			_, guardErr := guard.New(env.MaxDepth)
			printComponent("execution guard", guardErr)

			mem := memory.New(memory.WithMaxItems(env.MemoryMax))
			mem.Save("probe", nil)
			printComponent("memory store", nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			db, dbErr := persist.Open(env.DBPath)
			if dbErr == nil {
				dbErr = db.Ping(ctx)
				db.Close()
			}
			printComponent("persistence (sqlite)", dbErr)
		},
	}
}

func printComponent(name string, err error) {
	if err != nil {
		fmt.Printf("%s %s: %v\n", color.RedString("✗"), name, err)
		return
	}
	fmt.Printf("%s %s\n", color.GreenString("✓"), name)
}

func envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			env := config.Load()

			fmt.Println(color.CyanString("Taskplane Environment"))
			fmt.Println(strings.Repeat("─", 40))
			fmt.Printf("max depth:       %d\n", env.MaxDepth)
			fmt.Printf("cache ttl:       %ds\n", env.CacheTTLSecs)
			fmt.Printf("workers:         %s\n", workersLabel(env.Workers))
			fmt.Printf("db path:         %s\n", env.DBPath)
			fmt.Printf("memory max:      %d\n", env.MemoryMax)
		},
	}
}

func workersLabel(n int) string {
	if n <= 0 {
		return "GOMAXPROCS"
	}
	return fmt.Sprintf("%d", n)
}
