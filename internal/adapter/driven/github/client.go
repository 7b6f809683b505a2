// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/paging"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
	"github.com/ericfisherdev/prready/internal/domain/readiness"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

const (
	perPage = 100

	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
	maxRetryDelay        = 10 * time.Second
)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh         *gh.Client
	token      string // Stored for GraphQL Authorization header.
	graphqlURL string // "https://api.github.com/graphql" in production; derived from baseURL in tests.

	maxItems      int // Per-collection item cap; 0 means uncapped.
	retryAttempts uint
	retryDelay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithMaxItems caps every activity collection at n items. n <= 0 disables the cap.
func WithMaxItems(n int) Option {
	return func(c *Client) { c.maxItems = n }
}

// WithRetry sets how many times a page fetch is attempted and the initial backoff.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = max(attempts, 1)
		c.retryDelay = delay
	}
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string, opts ...Option) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return newClient(client, token, "https://api.github.com/graphql", opts)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string, opts ...Option) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	graphqlU := *u
	graphqlU.Path = "/graphql"

	return newClient(client, token, graphqlU.String(), opts), nil
}

func newClient(client *gh.Client, token, graphqlURL string, opts []Option) *Client {
	c := &Client{
		gh:            client,
		token:         token,
		graphqlURL:    graphqlURL,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPullRequest retrieves the pull request detail, then its check runs,
// unresolved review threads and reviews concurrently. Only the detail is
// required; a failed secondary fetch is logged and leaves its fields at zero.
func (c *Client) FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var (
		ghPR *gh.PullRequest
		resp *gh.Response
	)
	err = c.withRetry(ctx, repoFullName+"/pr-detail", func() error {
		var err error
		ghPR, resp, err = c.gh.PullRequests.Get(ctx, owner, repo, number)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: fetching PR %s#%d: %w", model.ErrUpstreamUnavailable, repoFullName, number, err)
	}
	logRateLimit(resp, repoFullName+"/pr-detail", 0, 1)

	pr := mapPullRequest(ghPR, repoFullName)

	var (
		g       errgroup.Group
		counts  model.CheckCounts
		threads int
		status  model.ReviewStatus
	)

	g.Go(func() error {
		runs, err := c.fetchCheckRuns(ctx, owner, repo, repoFullName, pr.HeadSHA)
		if err != nil {
			slog.Warn("check runs unavailable", "repo", repoFullName, "number", number, "error", err)
			return nil
		}
		counts = model.CountChecks(runs)
		return nil
	})
	g.Go(func() error {
		n, err := c.fetchUnresolvedThreads(ctx, owner, repo, number)
		if err != nil {
			slog.Warn("review threads unavailable", "repo", repoFullName, "number", number, "error", err)
			return nil
		}
		threads = n
		return nil
	})
	g.Go(func() error {
		reviews, err := c.FetchReviews(ctx, repoFullName, number)
		if err != nil {
			slog.Warn("reviews unavailable", "repo", repoFullName, "number", number, "error", err)
			return nil
		}
		status = readiness.ReviewStatus(reviews.Items)
		return nil
	})

	_ = g.Wait()

	pr.ChecksPassed = counts.Passed
	pr.ChecksFailed = counts.Failed
	pr.ChecksSkipped = counts.Skipped
	pr.OpenConversations = threads
	pr.ReviewStatus = status

	return &pr, nil
}

// ListOpenPullRequests lists open pull requests, most recently created first.
func (c *Client) ListOpenPullRequests(ctx context.Context, repoFullName string, maxItems int) (paging.Result[model.PullRequest], error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return paging.Result[model.PullRequest]{}, err
	}

	list := func(ctx context.Context, page int) ([]*gh.PullRequest, *gh.Response, error) {
		return c.gh.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
			State:       "open",
			Sort:        "created",
			Direction:   "desc",
			ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
		})
	}
	toModel := func(pr *gh.PullRequest) model.PullRequest {
		out := mapPullRequest(pr, repoFullName)
		out.ReviewStatus = model.ReviewStatusPending
		return out
	}

	return listAll(ctx, c, repoFullName+"/pulls", list, toModel, paging.WithMaxItems(maxItems))
}

// FetchCommits retrieves the commits of a pull request.
func (c *Client) FetchCommits(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawCommit], error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return paging.Result[model.RawCommit]{}, err
	}

	list := func(ctx context.Context, page int) ([]*gh.RepositoryCommit, *gh.Response, error) {
		return c.gh.PullRequests.ListCommits(ctx, owner, repo, number, &gh.ListOptions{Page: page, PerPage: perPage})
	}
	return listAll(ctx, c, fmt.Sprintf("%s#%d/commits", repoFullName, number), list, mapCommit, c.capOptions()...)
}

// FetchReviews retrieves the formal reviews of a pull request.
func (c *Client) FetchReviews(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawReview], error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return paging.Result[model.RawReview]{}, err
	}

	list := func(ctx context.Context, page int) ([]*gh.PullRequestReview, *gh.Response, error) {
		return c.gh.PullRequests.ListReviews(ctx, owner, repo, number, &gh.ListOptions{Page: page, PerPage: perPage})
	}
	return listAll(ctx, c, fmt.Sprintf("%s#%d/reviews", repoFullName, number), list, mapReview, c.capOptions()...)
}

// FetchReviewComments retrieves the inline code comments of a pull request.
func (c *Client) FetchReviewComments(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawReviewComment], error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return paging.Result[model.RawReviewComment]{}, err
	}

	list := func(ctx context.Context, page int) ([]*gh.PullRequestComment, *gh.Response, error) {
		return c.gh.PullRequests.ListComments(ctx, owner, repo, number, &gh.PullRequestListCommentsOptions{
			ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
		})
	}
	return listAll(ctx, c, fmt.Sprintf("%s#%d/review-comments", repoFullName, number), list, mapReviewComment, c.capOptions()...)
}

// FetchIssueComments retrieves the general PR-level comments (from the Issues API).
func (c *Client) FetchIssueComments(ctx context.Context, repoFullName string, number int) (paging.Result[model.RawIssueComment], error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return paging.Result[model.RawIssueComment]{}, err
	}

	list := func(ctx context.Context, page int) ([]*gh.IssueComment, *gh.Response, error) {
		return c.gh.Issues.ListComments(ctx, owner, repo, number, &gh.IssueListCommentsOptions{
			ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
		})
	}
	return listAll(ctx, c, fmt.Sprintf("%s#%d/issue-comments", repoFullName, number), list, mapIssueComment, c.capOptions()...)
}

func (c *Client) fetchCheckRuns(ctx context.Context, owner, repo, repoFullName, ref string) ([]model.CheckRun, error) {
	if ref == "" {
		return nil, nil
	}

	list := func(ctx context.Context, page int) ([]*gh.CheckRun, *gh.Response, error) {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, &gh.ListCheckRunsOptions{
			ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
		})
		if err != nil || result == nil {
			return nil, resp, err
		}
		return result.CheckRuns, resp, nil
	}

	res, err := listAll(ctx, c, repoFullName+"/check-runs", list, mapCheckRun)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (c *Client) capOptions() []paging.Option {
	if c.maxItems <= 0 {
		return nil
	}
	return []paging.Option{paging.WithMaxItems(c.maxItems)}
}

// listAll drains a go-github list endpoint through the paging policy. The
// page number is the cursor; each page fetch is retried independently.
func listAll[S, T any](
	ctx context.Context,
	c *Client,
	endpoint string,
	list func(ctx context.Context, page int) ([]S, *gh.Response, error),
	toModel func(S) T,
	opts ...paging.Option,
) (paging.Result[T], error) {
	fetch := func(ctx context.Context, cursor string) (paging.Page[T], error) {
		page := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return paging.Page[T]{}, fmt.Errorf("invalid page cursor %q: %w", cursor, err)
			}
			page = n
		}

		var (
			items []S
			resp  *gh.Response
		)
		err := c.withRetry(ctx, endpoint, func() error {
			var err error
			items, resp, err = list(ctx, page)
			return err
		})
		if err != nil {
			return paging.Page[T]{}, err
		}
		logRateLimit(resp, endpoint, page, len(items))

		out := make([]T, 0, len(items))
		for _, item := range items {
			out = append(out, toModel(item))
		}

		next := 0
		if resp != nil {
			next = resp.NextPage
		}
		return paging.Page[T]{Items: out, Next: strconv.Itoa(next), HasNext: next != 0}, nil
	}

	res, err := paging.FetchAll(ctx, fetch, opts...)
	if err != nil {
		if errors.Is(err, model.ErrInvalidArgument) {
			return res, err
		}
		return res, fmt.Errorf("%w: listing %s: %w", model.ErrUpstreamUnavailable, endpoint, err)
	}
	if res.Truncated {
		slog.Warn("github listing truncated", "endpoint", endpoint, "items", res.TotalFetched)
	}
	return res, nil
}

// withRetry runs fn with exponential backoff and jitter. Client errors other
// than rate limiting are returned immediately.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(c.retryDelay/4+time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("retrying github call", "operation", operation, "attempt", n+1, "max_attempts", c.retryAttempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return retryableStatus(respErr.Response.StatusCode)
	}

	var gqlErr *graphqlStatusError
	if errors.As(err, &gqlErr) {
		return retryableStatus(gqlErr.StatusCode)
	}

	return true
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

func isNotFound(err error) bool {
	var respErr *gh.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo: %w", fullName, model.ErrInvalidArgument)
	}
	return parts[0], parts[1], nil
}
