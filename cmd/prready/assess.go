package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/prready/internal/adapter/driven/github"
	"github.com/ericfisherdev/prready/internal/application"
	"github.com/ericfisherdev/prready/internal/config"
	"github.com/ericfisherdev/prready/internal/domain/model"
)

func newAssessCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assess <pr-url>",
		Short: "Print a readiness report for one pull request",
		Long: `Fetch a pull request and its activity from GitHub, compute its readiness
and print the result. Nothing is stored or cached.`,
		Example: "  prready assess https://github.com/octocat/hello-world/pull/42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return assess(cmd, opts, args[0])
		},
	}
}

func assess(cmd *cobra.Command, opts *rootOptions, prURL string) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}

	repo, number, err := application.ParsePRURL(prURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	ghClient := githubadapter.NewClient(cfg.GitHubToken, githubadapter.WithMaxItems(cfg.MaxItemsPerSource))

	pr, err := ghClient.FetchPullRequest(ctx, repo, number)
	if err != nil {
		return err
	}
	if pr == nil {
		return fmt.Errorf("%s#%d: %w", repo, number, model.ErrPRNotFound)
	}

	svc := application.NewReadinessService(ghClient, nil, nil)
	printAssessment(cmd.OutOrStdout(), *pr, svc.AssessPR(ctx, *pr))
	return nil
}
