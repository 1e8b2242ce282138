// Package main provides the taskplane CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskplane",
		Short: "Execution control plane for agent task scheduling",
		Long: `taskplane: dependency-aware task scheduling with bounded,
cached tool execution.

Use 'taskplane run' to execute a task plan.
Use 'taskplane status' to show component status.
Use 'taskplane env' to show the effective configuration.
Use 'taskplane bench' to run component micro-benchmarks.`,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(envCmd())
	rootCmd.AddCommand(benchCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("taskplane " + version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
