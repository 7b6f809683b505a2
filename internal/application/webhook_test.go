package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prready/internal/application"
	"github.com/ericfisherdev/prready/internal/domain/model"
)

func TestTrackingService_HandleWebhook(t *testing.T) {
	fresh := trackedPRNumber(0, 42)
	fresh.ChecksFailed = 1
	opened := trackedPRNumber(0, 50)
	closedUpstream := trackedPRNumber(0, 42)
	closedUpstream.State = model.PRStateClosed

	tests := []struct {
		name        string
		event       application.WebhookEvent
		upstream    map[int]*model.PullRequest
		wantAdded   []int
		wantUpdated []int
		wantRemoved []int
		wantIgnored []int
		wantDeletes []int64
		wantCleared bool
	}{
		{
			name:      "opened untracked is tracked",
			event:     application.WebhookEvent{Kind: "pull_request", Action: "opened", Repo: "octocat/hello-world", Numbers: []int{50}},
			upstream:  map[int]*model.PullRequest{50: &opened},
			wantAdded: []int{50},
		},
		{
			name:        "opened already tracked",
			event:       application.WebhookEvent{Kind: "pull_request", Action: "opened", Repo: "octocat/hello-world", Numbers: []int{42}},
			wantIgnored: []int{42},
		},
		{
			name:        "closed is removed without fetching",
			event:       application.WebhookEvent{Kind: "pull_request", Action: "closed", Repo: "octocat/hello-world", Numbers: []int{42}, Closed: true},
			wantRemoved: []int{42},
			wantDeletes: []int64{1},
			wantCleared: true,
		},
		{
			name:        "synchronize refreshes",
			event:       application.WebhookEvent{Kind: "pull_request", Action: "synchronize", Repo: "octocat/hello-world", Numbers: []int{42}},
			upstream:    map[int]*model.PullRequest{42: &fresh},
			wantUpdated: []int{42},
			wantCleared: true,
		},
		{
			name:        "edited on a closed PR removes it",
			event:       application.WebhookEvent{Kind: "pull_request", Action: "edited", Repo: "octocat/hello-world", Numbers: []int{42}},
			upstream:    map[int]*model.PullRequest{42: &closedUpstream},
			wantRemoved: []int{42},
			wantDeletes: []int64{1},
			wantCleared: true,
		},
		{
			name:        "labeled is ignored",
			event:       application.WebhookEvent{Kind: "pull_request", Action: "labeled", Repo: "octocat/hello-world", Numbers: []int{42}},
			wantIgnored: []int{42},
		},
		{
			name:        "review refreshes",
			event:       application.WebhookEvent{Kind: "pull_request_review", Action: "submitted", Repo: "octocat/hello-world", Numbers: []int{42}},
			upstream:    map[int]*model.PullRequest{42: &fresh},
			wantUpdated: []int{42},
			wantCleared: true,
		},
		{
			name:        "check suite touches only tracked PRs",
			event:       application.WebhookEvent{Kind: "check_suite", Action: "completed", Repo: "octocat/hello-world", Numbers: []int{42, 77}},
			upstream:    map[int]*model.PullRequest{42: &fresh},
			wantUpdated: []int{42},
			wantIgnored: []int{77},
			wantCleared: true,
		},
		{
			name:        "untracked review is ignored",
			event:       application.WebhookEvent{Kind: "pull_request_review", Action: "submitted", Repo: "octocat/other", Numbers: []int{42}},
			wantIgnored: []int{42},
		},
		{
			name:        "unknown event",
			event:       application.WebhookEvent{Kind: "push", Repo: "octocat/hello-world"},
			wantIgnored: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := &mockGitHubClient{fetchPR: fetchByNumber(tt.upstream, nil)}
			prs := newMockPRStore(trackedPR())
			svc, results, cache := newTrackingService(gh, prs)
			ctx := context.Background()

			cache.Put(ctx, model.ResultKey(1), sampleResult(97))
			cache.Wait()

			res, err := svc.HandleWebhook(ctx, tt.event)
			require.NoError(t, err)
			assert.Empty(t, res.Errors)

			assert.Equal(t, tt.wantAdded, numbers(res.Added))
			assert.Equal(t, tt.wantUpdated, numbers(res.Updated))
			assert.Equal(t, tt.wantRemoved, numbers(res.Removed))
			assert.Equal(t, tt.wantIgnored, res.Ignored)
			assert.Equal(t, tt.wantDeletes, prs.deletes)

			_, ok := cache.Get(ctx, model.ResultKey(1))
			assert.Equal(t, tt.wantCleared, !ok)
			assert.Equal(t, tt.wantCleared, !results.has(model.ResultKey(1)))
		})
	}
}

func TestTrackingService_HandleWebhookErrors(t *testing.T) {
	svc, _, _ := newTrackingService(&mockGitHubClient{}, newMockPRStore(trackedPR()))
	_, err := svc.HandleWebhook(context.Background(), application.WebhookEvent{Kind: "pull_request", Action: "edited", Numbers: []int{42}})
	require.ErrorIs(t, err, model.ErrInvalidArgument)

	gh := &mockGitHubClient{fetchPR: fetchReturning(nil, errBoom)}
	svc, _, _ = newTrackingService(gh, newMockPRStore(trackedPR()))
	res, err := svc.HandleWebhook(context.Background(), application.WebhookEvent{
		Kind: "check_run", Action: "completed", Repo: "octocat/hello-world", Numbers: []int{42},
	})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 42, res.Errors[0].Number)
	assert.ErrorIs(t, res.Errors[0].Err, model.ErrUpstreamUnavailable)
}

func numbers(prs []model.PullRequest) []int {
	if len(prs) == 0 {
		return nil
	}
	out := make([]int, 0, len(prs))
	for _, pr := range prs {
		out = append(out, pr.Number)
	}
	return out
}
