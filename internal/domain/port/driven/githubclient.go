// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/paging"
)

// GitHubClient defines the driven port for reading pull request data from GitHub.
// Implementations wrap transport failures in model.ErrUpstreamUnavailable.
type GitHubClient interface {
	// FetchPullRequest returns the unit record for a pull request: detail,
	// check-run counts and the number of unresolved review threads.
	// Returns nil, nil if the pull request does not exist.
	FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error)

	// ListOpenPullRequests returns open pull requests of a repository, newest
	// first, collecting at most maxItems. Check counts and conversation counts
	// are not populated.
	ListOpenPullRequests(ctx context.Context, repoFullName string, maxItems int) (paging.Result[model.PullRequest], error)

	FetchCommits(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawCommit], error)
	FetchReviews(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawReview], error)
	FetchReviewComments(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawReviewComment], error)
	FetchIssueComments(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawIssueComment], error)
}
