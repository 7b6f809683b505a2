package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// GitHub webhook event names that can change a tracked pull request.
const (
	EventPullRequest       = "pull_request"
	EventPullRequestReview = "pull_request_review"
	EventCheckRun          = "check_run"
	EventCheckSuite        = "check_suite"
)

// pullRequestRefreshActions are the pull_request actions that change facts
// the score depends on.
var pullRequestRefreshActions = map[string]bool{
	"reopened":           true,
	"synchronize":        true,
	"edited":             true,
	"ready_for_review":   true,
	"converted_to_draft": true,
}

// WebhookEvent is the tracking-relevant part of a GitHub webhook delivery.
// Numbers lists every pull request the delivery refers to; check events can
// name several.
type WebhookEvent struct {
	Kind    string
	Action  string
	Repo    string
	Numbers []int
	Closed  bool // the payload already reports the pull request closed or merged
}

// WebhookError reports one pull request the delivery could not be applied to.
type WebhookError struct {
	Number int
	Err    error
}

// WebhookResult is what a webhook delivery did to the tracked set.
type WebhookResult struct {
	Added   []model.PullRequest
	Updated []model.PullRequest
	Removed []model.PullRequest
	Ignored []int
	Errors  []WebhookError
}

// HandleWebhook applies a GitHub webhook delivery. Opened pull requests are
// tracked, closed or merged ones are removed, and any other change refreshes
// the stored facts and invalidates the cached verdict. Pull requests that are
// not tracked are ignored.
func (s *TrackingService) HandleWebhook(ctx context.Context, ev WebhookEvent) (*WebhookResult, error) {
	switch ev.Kind {
	case EventPullRequest, EventPullRequestReview, EventCheckRun, EventCheckSuite:
	default:
		return &WebhookResult{Ignored: ev.Numbers}, nil
	}
	if ev.Repo == "" {
		return nil, fmt.Errorf("webhook %s without repository: %w", ev.Kind, model.ErrInvalidArgument)
	}

	out := &WebhookResult{}
	for _, number := range ev.Numbers {
		if err := s.applyWebhook(ctx, ev, number, out); err != nil {
			out.Errors = append(out.Errors, WebhookError{Number: number, Err: err})
			slog.Warn("webhook update failed",
				"event", ev.Kind, "action", ev.Action, "repo", ev.Repo, "number", number, "error", err)
		}
	}

	slog.Info("webhook processed",
		"event", ev.Kind,
		"action", ev.Action,
		"repo", ev.Repo,
		"added", len(out.Added),
		"updated", len(out.Updated),
		"removed", len(out.Removed),
		"ignored", len(out.Ignored),
		"errors", len(out.Errors),
	)
	return out, nil
}

func (s *TrackingService) applyWebhook(ctx context.Context, ev WebhookEvent, number int, out *WebhookResult) error {
	stored, err := s.prStore.GetByNumber(ctx, ev.Repo, number)
	if err != nil {
		return fmt.Errorf("look up %s#%d: %w", ev.Repo, number, err)
	}

	if ev.Kind == EventPullRequest && ev.Action == "opened" {
		if stored != nil {
			out.Ignored = append(out.Ignored, number)
			return nil
		}
		pr, err := s.fetch(ctx, ev.Repo, number)
		if err != nil {
			return err
		}
		if !pr.IsOpen() {
			out.Ignored = append(out.Ignored, number)
			return nil
		}
		if err := s.save(ctx, pr); err != nil {
			return err
		}
		out.Added = append(out.Added, *pr)
		return nil
	}

	if stored == nil {
		out.Ignored = append(out.Ignored, number)
		return nil
	}

	if ev.Kind == EventPullRequest {
		if ev.Action == "closed" || ev.Closed {
			if err := s.remove(ctx, *stored); err != nil {
				return err
			}
			out.Removed = append(out.Removed, *stored)
			return nil
		}
		if !pullRequestRefreshActions[ev.Action] {
			out.Ignored = append(out.Ignored, number)
			return nil
		}
	}

	res, err := s.Refresh(ctx, stored.ID)
	if err != nil {
		return err
	}
	if res.Removed {
		out.Removed = append(out.Removed, res.PR)
	} else {
		out.Updated = append(out.Updated, res.PR)
	}
	return nil
}
