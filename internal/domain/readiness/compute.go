package readiness

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// Compute runs the full readiness pipeline for one pull request: timeline
// fusion, feedback-loop analysis, review-health classification and
// aggregation. The result is stamped with now.
func Compute(pr model.PullRequest, events model.RawEvents, now time.Time) model.Assessment {
	timeline, dropped := BuildTimeline(events)
	progress := AnalyzeFeedback(timeline, pr.Author, now)
	health := ClassifyReviewHealth(progress)

	result := Aggregate(pr, health)
	result.Review = model.ReviewSummary{
		TotalFeedback:     progress.TotalFeedbackCount,
		RespondedFeedback: progress.RespondedCount,
		ResponseRate:      progress.ResponseRate,
		StaleFeedback:     progress.StaleFeedback,
	}
	result.ComputedAt = now.UTC()

	return model.Assessment{
		Timeline:      timeline,
		DroppedEvents: dropped,
		Progress:      progress,
		Health:        health,
		Result:        result,
	}
}

// ReviewStatus derives the aggregate review verdict from the latest submitted
// review of each reviewer. Any outstanding change request wins over approvals.
// Reviews without a submission time or reviewer login are ignored.
func ReviewStatus(reviews []model.RawReview) model.ReviewStatus {
	submitted := make([]model.RawReview, 0, len(reviews))
	for _, r := range reviews {
		if r.SubmittedAt != "" && r.UserLogin != "" {
			submitted = append(submitted, r)
		}
	}
	slices.SortStableFunc(submitted, func(a, b model.RawReview) int {
		return cmp.Compare(a.SubmittedAt, b.SubmittedAt)
	})

	latest := make(map[string]string, len(submitted))
	for _, r := range submitted {
		latest[r.UserLogin] = strings.ToLower(r.State)
	}

	status := model.ReviewStatusPending
	for _, state := range latest {
		switch model.ReviewState(state) {
		case model.ReviewStateChangesRequested:
			return model.ReviewStatusChangesRequested
		case model.ReviewStateApproved:
			status = model.ReviewStatusApproved
		}
	}

	return status
}
