package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
)

// MaxImportPRs bounds a whole-repository import.
const MaxImportPRs = 1000

const batchRefreshConcurrency = 4

// errGoneUpstream marks a pull request that GitHub no longer knows about,
// as opposed to one that is not tracked here.
var errGoneUpstream = fmt.Errorf("gone from GitHub: %w", model.ErrPRNotFound)

func isUpstreamMissing(err error) bool {
	return errors.Is(err, errGoneUpstream)
}

var (
	prURLPattern   = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)
	repoURLPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)$`)
)

// ParsePRURL extracts the repository full name and pull request number from a
// GitHub pull request URL. A single trailing slash is tolerated; anything else
// after the number is rejected.
func ParsePRURL(raw string) (string, int, error) {
	m := prURLPattern.FindStringSubmatch(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	if m == nil {
		return "", 0, fmt.Errorf("invalid GitHub PR URL %q: %w", raw, model.ErrInvalidArgument)
	}

	number, err := strconv.Atoi(m[3])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("invalid PR number in %q: %w", raw, model.ErrInvalidArgument)
	}

	return m[1] + "/" + m[2], number, nil
}

// ParseRepoURL extracts the repository full name from a GitHub repository URL.
func ParseRepoURL(raw string) (string, error) {
	m := repoURLPattern.FindStringSubmatch(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	if m == nil {
		return "", fmt.Errorf("invalid GitHub repository URL %q: %w", raw, model.ErrInvalidArgument)
	}
	return m[1] + "/" + m[2], nil
}

// RefreshResult is the outcome of refreshing one tracked pull request.
type RefreshResult struct {
	PR      model.PullRequest
	Removed bool
}

// ImportResult is the outcome of importing every open pull request of a repository.
type ImportResult struct {
	Repository string
	Imported   int
	Truncated  bool
}

// TrackingService manages the set of tracked pull requests.
type TrackingService struct {
	ghClient driven.GitHubClient
	prStore  driven.PRStore
	cache    *ResultCache
	now      func() time.Time
}

// NewTrackingService creates a TrackingService with all required dependencies.
func NewTrackingService(ghClient driven.GitHubClient, prStore driven.PRStore, cache *ResultCache) *TrackingService {
	return &TrackingService{
		ghClient: ghClient,
		prStore:  prStore,
		cache:    cache,
		now:      time.Now,
	}
}

// Track starts tracking the pull request at prURL. Merged and closed pull
// requests are rejected.
func (s *TrackingService) Track(ctx context.Context, prURL string) (*model.PullRequest, error) {
	repo, number, err := ParsePRURL(prURL)
	if err != nil {
		return nil, err
	}

	pr, err := s.fetch(ctx, repo, number)
	if err != nil {
		return nil, err
	}
	if !pr.IsOpen() {
		return nil, fmt.Errorf("cannot track merged or closed PR %s#%d: %w", repo, number, model.ErrInvalidArgument)
	}

	if err := s.save(ctx, pr); err != nil {
		return nil, err
	}

	slog.Info("tracking PR", "pr_id", pr.ID, "repo", repo, "number", number)
	return pr, nil
}

// Import tracks every open pull request of the repository at repoURL, up to
// MaxImportPRs of the most recently created.
func (s *TrackingService) Import(ctx context.Context, repoURL string) (*ImportResult, error) {
	repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	res, err := s.ghClient.ListOpenPullRequests(ctx, repo, MaxImportPRs)
	if err != nil {
		return nil, upstream(fmt.Errorf("list open PRs for %s: %w", repo, err))
	}

	out := &ImportResult{Repository: repo, Truncated: res.Truncated}
	for i := range res.Items {
		pr := res.Items[i]
		if err := s.save(ctx, &pr); err != nil {
			return out, err
		}
		out.Imported++
	}

	slog.Info("imported repository", "repo", repo, "imported", out.Imported, "truncated", out.Truncated)
	return out, nil
}

// Refresh re-fetches a tracked pull request. A pull request that has been
// merged or closed is removed from tracking. The cached readiness result is
// invalidated either way.
func (s *TrackingService) Refresh(ctx context.Context, prID int64) (*RefreshResult, error) {
	stored, err := s.prStore.GetByID(ctx, prID)
	if err != nil {
		return nil, fmt.Errorf("load PR %d: %w", prID, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("PR %d: %w", prID, model.ErrPRNotFound)
	}

	pr, err := s.fetch(ctx, stored.RepoFullName, stored.Number)
	if err != nil {
		return nil, err
	}
	pr.ID = stored.ID
	if pr.ReviewStatus == "" {
		pr.ReviewStatus = stored.ReviewStatus
	}

	if !pr.IsOpen() {
		if err := s.remove(ctx, *pr); err != nil {
			return nil, err
		}
		return &RefreshResult{PR: *pr, Removed: true}, nil
	}

	if err := s.save(ctx, pr); err != nil {
		return nil, err
	}

	return &RefreshResult{PR: *pr}, nil
}

// MaxBatchRefresh bounds the number of pull requests refreshed per call.
const MaxBatchRefresh = 100

// BatchRefreshError reports one pull request that failed to refresh.
type BatchRefreshError struct {
	PRID int64
	Err  error
}

// BatchRefreshResult is the outcome of RefreshBatch. Updated and Removed are
// in request order.
type BatchRefreshResult struct {
	Updated []model.PullRequest
	Removed []model.PullRequest
	Skipped []int64 // ids that are not tracked
	Errors  []BatchRefreshError
}

// RefreshBatch refreshes up to MaxBatchRefresh tracked pull requests, a few at
// a time. Failures are reported per pull request. It fails with
// ErrPRNotFound only when none of the ids is tracked.
func (s *TrackingService) RefreshBatch(ctx context.Context, ids []int64) (*BatchRefreshResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("pr_ids is required: %w", model.ErrInvalidArgument)
	}
	if len(ids) > MaxBatchRefresh {
		return nil, fmt.Errorf("at most %d PRs can be refreshed at once: %w", MaxBatchRefresh, model.ErrInvalidArgument)
	}

	type outcome struct {
		res *RefreshResult
		err error
	}
	outcomes := make([]outcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchRefreshConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.Refresh(gctx, id)
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchRefreshResult{}
	for i, o := range outcomes {
		switch {
		case errors.Is(o.err, model.ErrPRNotFound) && !isUpstreamMissing(o.err):
			out.Skipped = append(out.Skipped, ids[i])
		case o.err != nil:
			out.Errors = append(out.Errors, BatchRefreshError{PRID: ids[i], Err: o.err})
		case o.res.Removed:
			out.Removed = append(out.Removed, o.res.PR)
		default:
			out.Updated = append(out.Updated, o.res.PR)
		}
	}

	if len(out.Skipped) == len(ids) {
		return nil, fmt.Errorf("none of the %d PRs is tracked: %w", len(ids), model.ErrPRNotFound)
	}

	slog.Info("batch refresh complete",
		"requested", len(ids),
		"updated", len(out.Updated),
		"removed", len(out.Removed),
		"skipped", len(out.Skipped),
		"errors", len(out.Errors),
	)
	return out, nil
}

// List returns tracked pull requests, optionally limited to one repository.
func (s *TrackingService) List(ctx context.Context, repoFilter string) ([]model.PullRequest, error) {
	prs, err := s.prStore.ListAll(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list PRs: %w", err)
	}
	return prs, nil
}

// ListRepos returns the repositories that have tracked pull requests.
func (s *TrackingService) ListRepos(ctx context.Context) ([]model.Repository, error) {
	repos, err := s.prStore.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return repos, nil
}

func (s *TrackingService) fetch(ctx context.Context, repo string, number int) (*model.PullRequest, error) {
	pr, err := s.ghClient.FetchPullRequest(ctx, repo, number)
	if err != nil {
		return nil, upstream(fmt.Errorf("fetch PR %s#%d: %w", repo, number, err))
	}
	if pr == nil {
		return nil, fmt.Errorf("%s#%d on GitHub: %w", repo, number, errGoneUpstream)
	}
	return pr, nil
}

func (s *TrackingService) save(ctx context.Context, pr *model.PullRequest) error {
	if pr.ReviewStatus == "" {
		pr.ReviewStatus = model.ReviewStatusPending
	}
	pr.LastRefreshedAt = s.now().UTC()

	id, err := s.prStore.Upsert(ctx, *pr)
	if err != nil {
		return fmt.Errorf("save PR %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}
	pr.ID = id

	// Stored facts feed the score, so any cached verdict is now stale.
	s.invalidate(ctx, id)
	return nil
}

// remove drops a pull request that is no longer open from tracking.
func (s *TrackingService) remove(ctx context.Context, pr model.PullRequest) error {
	s.invalidate(ctx, pr.ID)
	if err := s.prStore.Delete(ctx, pr.ID); err != nil {
		return fmt.Errorf("remove PR %d: %w", pr.ID, err)
	}
	slog.Info("PR no longer open, removed from tracking",
		"pr_id", pr.ID, "repo", pr.RepoFullName, "number", pr.Number, "merged", pr.IsMerged)
	return nil
}

func (s *TrackingService) invalidate(ctx context.Context, prID int64) {
	if err := s.cache.Invalidate(ctx, model.ResultKey(prID)); err != nil {
		slog.Warn("readiness cache invalidation incomplete", "pr_id", prID, "error", err)
	}
}

// upstream marks err as an upstream failure unless it already is one.
func upstream(err error) error {
	if errors.Is(err, model.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrUpstreamUnavailable, err)
}
