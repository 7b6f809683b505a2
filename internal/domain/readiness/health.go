package readiness

import "github.com/ericfisherdev/prready/internal/domain/model"

const changesRequestedPenalty = 10

// ClassifyReviewHealth maps review progress to a classification and a 0-100
// score. Rules are evaluated in order and the first match wins:
//
//  1. no feedback                      NO_ACTIVITY 50
//  2. latest review approved           APPROVED 95
//  3. stale feedback                   STALLED max(10, 50-15*stale)
//  4. awaiting author, rate < 0.5      AWAITING_AUTHOR 35
//  5. awaiting author                  AWAITING_AUTHOR 55
//  6. awaiting reviewer                AWAITING_REVIEWER min(80, 70+floor(rate*10))
//  7. rate > 0.7                       ACTIVE 85
//  8. otherwise                        ACTIVE 70
//
// When the latest review requested changes, rules 4-8 lose 10 points, floored at 0.
func ClassifyReviewHealth(p model.ReviewProgress) model.ReviewHealth {
	if p.TotalFeedbackCount == 0 {
		return model.ReviewHealth{Classification: model.ReviewHealthNoActivity, Score: 50}
	}

	if p.LatestReviewState == model.ReviewStateApproved {
		return model.ReviewHealth{Classification: model.ReviewHealthApproved, Score: 95}
	}

	if stale := len(p.StaleFeedback); stale > 0 {
		return model.ReviewHealth{
			Classification: model.ReviewHealthStalled,
			Score:          max(10, 50-stale*15),
		}
	}

	var h model.ReviewHealth
	switch {
	case p.AwaitingAuthor && p.ResponseRate < 0.5:
		h = model.ReviewHealth{Classification: model.ReviewHealthAwaitingAuthor, Score: 35}
	case p.AwaitingAuthor:
		h = model.ReviewHealth{Classification: model.ReviewHealthAwaitingAuthor, Score: 55}
	case p.AwaitingReviewer:
		h = model.ReviewHealth{
			Classification: model.ReviewHealthAwaitingReviewer,
			Score:          min(80, 70+int(p.ResponseRate*10)),
		}
	case p.ResponseRate > 0.7:
		h = model.ReviewHealth{Classification: model.ReviewHealthActive, Score: 85}
	default:
		h = model.ReviewHealth{Classification: model.ReviewHealthActive, Score: 70}
	}

	if p.LatestReviewState == model.ReviewStateChangesRequested {
		h.Score = max(0, h.Score-changesRequestedPenalty)
	}

	return h
}
