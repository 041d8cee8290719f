package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alvmarrod/bfs-crawler/internal/version"
)

// NewRootCmd creates the crawler command
func NewRootCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Breadth-first, multi-worker crawler for a single site",
		Long: `crawler fetches pages breadth-first from a seed URL with a pool of workers,
following only links on the seed's scheme and host, under a depth ceiling and
a per-depth quota. Pages go to SQLite (and optionally to page_N.html files),
events to the log file, and a metrics summary is written on exit.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (.json, .yaml or .yml); defaults to ./config.json when present")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every extracted, admitted and rejected link")

	return cmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
