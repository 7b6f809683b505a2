package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
	"github.com/ericfisherdev/prready/internal/domain/readiness"
)

// ReadinessReport is the readiness view of one tracked pull request.
type ReadinessReport struct {
	PR       model.PullRequest
	Result   model.ReadinessResult
	CacheHit bool
}

// TimelineReport is the fused activity timeline of one pull request.
type TimelineReport struct {
	PR            model.PullRequest
	Timeline      model.Timeline
	DroppedEvents int
	Truncated     bool
}

// ReviewAnalysisReport is the feedback-loop analysis of one pull request.
type ReviewAnalysisReport struct {
	PR       model.PullRequest
	Progress model.ReviewProgress
	Health   model.ReviewHealth
}

// ReadinessOption configures a ReadinessService.
type ReadinessOption func(*ReadinessService)

// WithNow replaces the wall clock used to age feedback and stamp results.
func WithNow(now func() time.Time) ReadinessOption {
	return func(s *ReadinessService) { s.now = now }
}

// ReadinessService computes readiness assessments for tracked pull requests.
// Activity events are gathered from GitHub on every uncached request.
type ReadinessService struct {
	ghClient driven.GitHubClient
	prStore  driven.PRStore
	cache    *ResultCache
	now      func() time.Time
}

// NewReadinessService creates a ReadinessService with all required dependencies.
func NewReadinessService(
	ghClient driven.GitHubClient,
	prStore driven.PRStore,
	cache *ResultCache,
	opts ...ReadinessOption,
) *ReadinessService {
	s := &ReadinessService{
		ghClient: ghClient,
		prStore:  prStore,
		cache:    cache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess returns the readiness of the pull request with the given ID, from
// cache when possible.
func (s *ReadinessService) Assess(ctx context.Context, prID int64) (*ReadinessReport, error) {
	pr, err := s.loadPR(ctx, prID)
	if err != nil {
		return nil, err
	}

	key := pr.Key()
	if cached, ok := s.cache.Get(ctx, key); ok {
		slog.Debug("readiness cache hit", "pr_id", prID)
		return &ReadinessReport{PR: *pr, Result: *cached, CacheHit: true}, nil
	}

	events := s.gather(ctx, pr)
	assessment := readiness.Compute(*pr, events, s.now())
	s.cache.Put(ctx, key, assessment.Result)

	slog.Info("readiness computed",
		"pr_id", prID,
		"repo", pr.RepoFullName,
		"number", pr.Number,
		"score", assessment.Result.OverallScore,
		"classification", assessment.Result.Classification,
		"dropped_events", assessment.DroppedEvents,
	)

	return &ReadinessReport{PR: *pr, Result: assessment.Result}, nil
}

// Timeline returns the fused activity timeline. It is never cached.
func (s *ReadinessService) Timeline(ctx context.Context, prID int64) (*TimelineReport, error) {
	pr, err := s.loadPR(ctx, prID)
	if err != nil {
		return nil, err
	}

	events := s.gather(ctx, pr)
	timeline, dropped := readiness.BuildTimeline(events)

	return &TimelineReport{
		PR:            *pr,
		Timeline:      timeline,
		DroppedEvents: dropped,
		Truncated:     events.Truncated,
	}, nil
}

// ReviewAnalysis returns feedback-loop progress and review health. It is never cached.
func (s *ReadinessService) ReviewAnalysis(ctx context.Context, prID int64) (*ReviewAnalysisReport, error) {
	pr, err := s.loadPR(ctx, prID)
	if err != nil {
		return nil, err
	}

	events := s.gather(ctx, pr)
	assessment := readiness.Compute(*pr, events, s.now())

	return &ReviewAnalysisReport{
		PR:       *pr,
		Progress: assessment.Progress,
		Health:   assessment.Health,
	}, nil
}

// AssessPR gathers activity for a pull request that need not be tracked and
// computes its assessment. Nothing is cached; an untracked pull request
// (ID 0) is never written to the store.
func (s *ReadinessService) AssessPR(ctx context.Context, pr model.PullRequest) model.Assessment {
	events := s.gather(ctx, &pr)
	return readiness.Compute(pr, events, s.now())
}

func (s *ReadinessService) loadPR(ctx context.Context, prID int64) (*model.PullRequest, error) {
	pr, err := s.prStore.GetByID(ctx, prID)
	if err != nil {
		return nil, fmt.Errorf("load PR %d: %w", prID, err)
	}
	if pr == nil {
		return nil, fmt.Errorf("PR %d: %w", prID, model.ErrPRNotFound)
	}
	return pr, nil
}

// gather fetches the four activity collections concurrently. A failed
// collection is logged and left empty. When reviews were fetched the stored
// review status is reconciled with them.
func (s *ReadinessService) gather(ctx context.Context, pr *model.PullRequest) model.RawEvents {
	var (
		g      errgroup.Group
		events model.RawEvents

		commitsTrunc, reviewsTrunc, reviewCommentsTrunc, issueCommentsTrunc bool
		reviewsOK                                                         bool
	)

	repo, number := pr.RepoFullName, pr.Number

	g.Go(func() error {
		res, err := s.ghClient.FetchCommits(ctx, repo, number)
		if err != nil {
			logDegraded(pr, "commits", err)
			return nil
		}
		events.Commits, commitsTrunc = res.Items, res.Truncated
		return nil
	})
	g.Go(func() error {
		res, err := s.ghClient.FetchReviews(ctx, repo, number)
		if err != nil {
			logDegraded(pr, "reviews", err)
			return nil
		}
		events.Reviews, reviewsTrunc, reviewsOK = res.Items, res.Truncated, true
		return nil
	})
	g.Go(func() error {
		res, err := s.ghClient.FetchReviewComments(ctx, repo, number)
		if err != nil {
			logDegraded(pr, "review_comments", err)
			return nil
		}
		events.ReviewComments, reviewCommentsTrunc = res.Items, res.Truncated
		return nil
	})
	g.Go(func() error {
		res, err := s.ghClient.FetchIssueComments(ctx, repo, number)
		if err != nil {
			logDegraded(pr, "issue_comments", err)
			return nil
		}
		events.IssueComments, issueCommentsTrunc = res.Items, res.Truncated
		return nil
	})

	_ = g.Wait()

	events.Truncated = commitsTrunc || reviewsTrunc || reviewCommentsTrunc || issueCommentsTrunc
	if events.Truncated {
		slog.Warn("activity history truncated", "pr_id", pr.ID, "repo", repo, "number", number)
	}

	if reviewsOK {
		s.reconcileReviewStatus(ctx, pr, events.Reviews)
	}

	return events
}

// reconcileReviewStatus persists the review status derived from reviews when
// it differs from the stored one. pr is updated in place.
func (s *ReadinessService) reconcileReviewStatus(ctx context.Context, pr *model.PullRequest, reviews []model.RawReview) {
	status := readiness.ReviewStatus(reviews)
	if status == pr.ReviewStatus {
		return
	}
	if pr.ID == 0 {
		pr.ReviewStatus = status
		return
	}

	if err := s.prStore.UpdateReviewStatus(ctx, pr.ID, status); err != nil {
		slog.Error("failed to update review status", "pr_id", pr.ID, "error", err)
		return
	}
	slog.Info("review status changed", "pr_id", pr.ID, "from", pr.ReviewStatus, "to", status)
	pr.ReviewStatus = status
}

func logDegraded(pr *model.PullRequest, source string, err error) {
	slog.Warn("activity fetch failed, continuing without it",
		"pr_id", pr.ID,
		"repo", pr.RepoFullName,
		"number", pr.Number,
		"source", source,
		"error", err,
	)
}
