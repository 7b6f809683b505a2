package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "prready",
		Short: "Assess how ready GitHub pull requests are to merge",
		Long: `prready fuses the commits, reviews and comments of a pull request into one
timeline, analyzes the review conversation and scores merge readiness.

Run "prready serve" for the HTTP API or "prready assess <pr-url>" for a
one-off report. Configuration is read from PRREADY_* environment variables
and an optional config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(opts), newAssessCmd(opts), newVersionCmd())
	return cmd
}
