package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prready/internal/application"
	"github.com/ericfisherdev/prready/internal/domain/model"
	"github.com/ericfisherdev/prready/internal/domain/paging"
)

var fixedNow = time.Date(2026, 1, 11, 12, 0, 0, 0, time.UTC)

func trackedPR() model.PullRequest {
	return model.PullRequest{
		ID:             1,
		RepoFullName:   "octocat/hello-world",
		Number:         42,
		Title:          "Add feature",
		Author:         "alice",
		State:          model.PRStateOpen,
		MergeableState: model.MergeableClean,
		ChecksPassed:   3,
		ReviewStatus:   model.ReviewStatusPending,
	}
}

func approvingActivity() *mockGitHubClient {
	return &mockGitHubClient{
		commits: paging.Result[model.RawCommit]{Items: []model.RawCommit{
			{SHA: "abcdef123", Message: "fix", AuthorLogin: "alice", Date: "2026-01-10T14:00:00Z"},
		}},
		reviews: paging.Result[model.RawReview]{Items: []model.RawReview{
			{UserLogin: "bob", State: "CHANGES_REQUESTED", SubmittedAt: "2026-01-10T12:00:00Z"},
			{UserLogin: "bob", State: "APPROVED", SubmittedAt: "2026-01-10T17:00:00Z"},
		}},
	}
}

func newReadinessService(gh *mockGitHubClient, prs *mockPRStore) (*application.ReadinessService, *mockResultStore, *application.ResultCache) {
	results := newMockResultStore()
	cache := application.NewResultCache(results, time.Minute)
	svc := application.NewReadinessService(gh, prs, cache, application.WithNow(func() time.Time { return fixedNow }))
	return svc, results, cache
}

func TestReadinessService_AssessMissThenHit(t *testing.T) {
	gh := approvingActivity()
	prs := newMockPRStore(trackedPR())
	svc, results, cache := newReadinessService(gh, prs)
	ctx := context.Background()

	first, err := svc.Assess(ctx, 1)
	require.NoError(t, err)
	cache.Wait()

	assert.False(t, first.CacheHit)
	assert.Equal(t, 97, first.Result.OverallScore)
	assert.Equal(t, model.ReadinessReadyToMerge, first.Result.Classification)
	assert.True(t, fixedNow.Equal(first.Result.ComputedAt))
	assert.Equal(t, 4, gh.callCount())
	assert.True(t, results.has("pr:1"))

	second, err := svc.Assess(ctx, 1)
	require.NoError(t, err)

	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Result.OverallScore, second.Result.OverallScore)
	assert.Equal(t, 4, gh.callCount(), "a cache hit must not reach GitHub")
}

func TestReadinessService_UnknownPR(t *testing.T) {
	svc, _, _ := newReadinessService(&mockGitHubClient{}, newMockPRStore())
	ctx := context.Background()

	_, err := svc.Assess(ctx, 99)
	require.ErrorIs(t, err, model.ErrPRNotFound)

	_, err = svc.Timeline(ctx, 99)
	require.ErrorIs(t, err, model.ErrPRNotFound)

	_, err = svc.ReviewAnalysis(ctx, 99)
	require.ErrorIs(t, err, model.ErrPRNotFound)
}

func TestReadinessService_ReviewStatusPersistedOnlyWhenChanged(t *testing.T) {
	gh := approvingActivity()
	prs := newMockPRStore(trackedPR())
	svc, _, cache := newReadinessService(gh, prs)
	ctx := context.Background()

	_, err := svc.ReviewAnalysis(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prs.statusUpdates, 1)
	assert.Equal(t, statusUpdate{ID: 1, Status: model.ReviewStatusApproved}, prs.statusUpdates[0])

	_, err = svc.Assess(ctx, 1)
	require.NoError(t, err)
	cache.Wait()
	assert.Len(t, prs.statusUpdates, 1, "unchanged status is not written again")
}

func TestReadinessService_FailedSubFetchDegradesToEmpty(t *testing.T) {
	gh := approvingActivity()
	gh.commitsErr = errBoom
	gh.issueCommentsErr = errBoom
	prs := newMockPRStore(trackedPR())
	svc, _, cache := newReadinessService(gh, prs)

	report, err := svc.Assess(context.Background(), 1)
	require.NoError(t, err)
	cache.Wait()

	assert.Equal(t, model.ReviewHealthApproved, report.Result.ReviewHealth)
	assert.Equal(t, 2, report.Result.Review.TotalFeedback)
	assert.Equal(t, 0, report.Result.Review.RespondedFeedback, "the commit that answered is unavailable")
}

func TestReadinessService_FailedReviewFetchKeepsStoredStatus(t *testing.T) {
	gh := approvingActivity()
	gh.reviewsErr = errBoom
	pr := trackedPR()
	pr.ReviewStatus = model.ReviewStatusApproved
	prs := newMockPRStore(pr)
	svc, _, _ := newReadinessService(gh, prs)

	report, err := svc.ReviewAnalysis(context.Background(), 1)
	require.NoError(t, err)

	assert.Empty(t, prs.statusUpdates)
	assert.Equal(t, model.ReviewStatusApproved, report.PR.ReviewStatus)
	assert.Equal(t, model.ReviewHealthNoActivity, report.Health.Classification)
}

func TestReadinessService_Timeline(t *testing.T) {
	gh := approvingActivity()
	gh.issueComments = paging.Result[model.RawIssueComment]{
		Items: []model.RawIssueComment{
			{UserLogin: "carol", Body: "ping", CreatedAt: "2026-01-10T18:00:00Z"},
			{UserLogin: "carol", Body: "bad", CreatedAt: "not a time"},
		},
		Truncated: true,
	}
	svc, _, _ := newReadinessService(gh, newMockPRStore(trackedPR()))

	report, err := svc.Timeline(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, report.Timeline, 4)
	assert.Equal(t, 1, report.DroppedEvents)
	assert.True(t, report.Truncated)
	assert.Equal(t, model.EventReview, report.Timeline[0].Kind)
	assert.Equal(t, model.EventIssueComment, report.Timeline[3].Kind)
	assert.Equal(t, 42, report.PR.Number)
}

func TestReadinessService_ReviewAnalysis(t *testing.T) {
	svc, _, _ := newReadinessService(approvingActivity(), newMockPRStore(trackedPR()))

	report, err := svc.ReviewAnalysis(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, model.ReviewHealth{Classification: model.ReviewHealthApproved, Score: 95}, report.Health)
	assert.Equal(t, 2, report.Progress.TotalFeedbackCount)
	assert.Equal(t, 1, report.Progress.RespondedCount)
	require.Len(t, report.Progress.FeedbackLoops, 2)
	assert.True(t, report.Progress.FeedbackLoops[0].Responded)
}

func TestReadinessService_AssessPRUntracked(t *testing.T) {
	gh := approvingActivity()
	prs := newMockPRStore()
	svc, results, _ := newReadinessService(gh, prs)

	pr := trackedPR()
	pr.ID = 0
	assessment := svc.AssessPR(context.Background(), pr)

	assert.Equal(t, 97, assessment.Result.OverallScore)
	assert.Equal(t, fixedNow, assessment.Result.ComputedAt)
	assert.Empty(t, prs.statusUpdates, "untracked PRs are never written")
	loads, saves, _ := results.counts()
	assert.Zero(t, loads)
	assert.Zero(t, saves)
}
