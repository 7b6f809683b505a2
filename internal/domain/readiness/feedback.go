package readiness

import (
	"math"
	"time"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// StaleThreshold is how long reviewer feedback may go unanswered before it is stale.
const StaleThreshold = 72 * time.Hour

// AnalyzeFeedback walks the timeline once and pairs reviewer feedback with the
// author's responses.
//
// A review or review comment by anyone other than author opens a loop. A
// commit, issue comment or review comment by author closes at most one loop:
// the most recently opened one that is still open and strictly older than the
// author action. now is used only to age unanswered feedback.
func AnalyzeFeedback(timeline model.Timeline, author string, now time.Time) model.ReviewProgress {
	var (
		loops              []model.FeedbackLoop
		latestReviewState  model.ReviewState
		lastReviewerAction *time.Time
		lastAuthorAction   *time.Time
	)

	for _, ev := range timeline {
		ts := ev.Timestamp

		switch {
		case ev.Author != author && isReviewerKind(ev.Kind):
			lastReviewerAction = &ts
			if ev.Kind == model.EventReview {
				latestReviewState = ev.Payload.State
			}
			loops = append(loops, model.FeedbackLoop{
				Reviewer:     ev.Author,
				FeedbackTime: ts,
				FeedbackKind: ev.Kind,
			})

		case ev.Author == author && isAuthorKind(ev.Kind):
			lastAuthorAction = &ts
			closeLatestOpenLoop(loops, ev)
		}
	}

	progress := model.ReviewProgress{
		FeedbackLoops:      loops,
		TotalFeedbackCount: len(loops),
		ResponseRate:       1.0,
		LatestReviewState:  latestReviewState,
		LastReviewerAction: lastReviewerAction,
		LastAuthorAction:   lastAuthorAction,
		StaleFeedback:      []model.StaleFeedback{},
	}

	for _, loop := range loops {
		if loop.Responded {
			progress.RespondedCount++
			continue
		}
		age := now.Sub(loop.FeedbackTime)
		if age > StaleThreshold {
			progress.StaleFeedback = append(progress.StaleFeedback, model.StaleFeedback{
				Reviewer:     loop.Reviewer,
				FeedbackKind: loop.FeedbackKind,
				DaysOld:      roundTenth(age.Hours() / 24),
			})
		}
	}

	if progress.TotalFeedbackCount > 0 {
		progress.ResponseRate = float64(progress.RespondedCount) / float64(progress.TotalFeedbackCount)
	}

	progress.AwaitingAuthor = latestReviewState == model.ReviewStateChangesRequested ||
		(lastReviewerAction != nil && (lastAuthorAction == nil || lastReviewerAction.After(*lastAuthorAction)))

	progress.AwaitingReviewer = !progress.AwaitingAuthor &&
		lastAuthorAction != nil &&
		(lastReviewerAction == nil || lastAuthorAction.After(*lastReviewerAction))

	return progress
}

// closeLatestOpenLoop marks the newest open loop that predates ev as answered by ev.
func closeLatestOpenLoop(loops []model.FeedbackLoop, ev model.Event) {
	for i := len(loops) - 1; i >= 0; i-- {
		loop := &loops[i]
		if loop.Responded || !loop.FeedbackTime.Before(ev.Timestamp) {
			continue
		}

		ts := ev.Timestamp
		delay := roundTenth(ts.Sub(loop.FeedbackTime).Hours())
		loop.Responded = true
		loop.ResponseTime = &ts
		loop.ResponseKind = ev.Kind
		loop.ResponseDelayHours = &delay
		return
	}
}

func isReviewerKind(k model.EventKind) bool {
	return k == model.EventReview || k == model.EventReviewComment
}

func isAuthorKind(k model.EventKind) bool {
	return k == model.EventCommit || k == model.EventIssueComment || k == model.EventReviewComment
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
