package readiness

import (
	"fmt"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

const (
	ciWeight     = 0.45
	reviewWeight = 0.55

	awaitingAuthorMultiplier = 0.5
	conflictMultiplier       = 0.67

	openConversationPenalty = 3

	hardFailureThreshold = 2
	largePRFileThreshold = 30

	mergeReadyScore  = 70
	nearlyReadyScore = 60
	needsWorkScore   = 40
)

// Aggregate combines CI confidence, review health and the structural
// attributes of the pull request into the overall readiness result.
//
// The awaiting-author and merge-conflict multipliers compound. A draft is
// forced to 0 before the open-conversation deduction.
func Aggregate(pr model.PullRequest, health model.ReviewHealth) model.ReadinessResult {
	ciScore := CIConfidence(pr.ChecksPassed, pr.ChecksFailed, pr.ChecksSkipped)

	raw := float64(ciScore)*ciWeight + float64(health.Score)*reviewWeight
	if health.Classification == model.ReviewHealthAwaitingAuthor {
		raw *= awaitingAuthorMultiplier
	}
	if pr.MergeableState == model.MergeableDirty {
		raw *= conflictMultiplier
	}

	overall := int(raw)
	if pr.IsDraft {
		overall = 0
	}
	if pr.OpenConversations > 0 {
		overall = max(0, overall-pr.OpenConversations*openConversationPenalty)
	}

	n := notes{blockers: []string{}, warnings: []string{}, recommendations: []string{}}

	if pr.IsDraft {
		n.block("PR is in draft mode", "Convert to 'Ready for review' when finished")
	}

	switch {
	case pr.ChecksFailed > hardFailureThreshold:
		n.block(fmt.Sprintf("%d CI check(s) failing", pr.ChecksFailed), "Fix failing CI checks before merging")
	case pr.ChecksFailed > 0:
		n.warn(fmt.Sprintf("%d CI check(s) failing (possibly flaky tests)", pr.ChecksFailed),
			"Verify if failures are from known flaky tests (Selenium, Docker)")
	}

	if pr.ChecksSkipped > 0 {
		n.warn(fmt.Sprintf("%d CI check(s) skipped", pr.ChecksSkipped), "")
	}

	switch health.Classification {
	case model.ReviewHealthAwaitingAuthor:
		n.block("Awaiting author response to feedback", "Address reviewer comments and push updates")
	case model.ReviewHealthStalled:
		n.block("PR has stale unaddressed feedback", "Review and respond to old comments")
	case model.ReviewHealthNoActivity:
		n.warn("No review activity yet", "Request reviews from maintainers")
	case model.ReviewHealthAwaitingReviewer:
		n.warn("Awaiting reviewer approval", "Ping reviewers or request re-review")
	}

	if pr.State == model.PRStateClosed {
		n.block("PR is closed", "")
	}
	if pr.IsMerged {
		n.block("PR is already merged", "")
	}

	switch pr.MergeableState {
	case model.MergeableDirty:
		n.block("PR has merge conflicts", "Resolve merge conflicts with base branch")
	case model.MergeableBlocked:
		n.warn("PR is blocked by required status checks or reviews", "")
	}

	if pr.FilesChanged > largePRFileThreshold {
		n.warn(fmt.Sprintf("Large PR (%d files changed)", pr.FilesChanged),
			"Consider splitting into smaller PRs for easier review")
	}

	if pr.OpenConversations > 0 {
		n.warn(fmt.Sprintf("%d open conversation(s) unresolved", pr.OpenConversations),
			"Resolve open review conversations before merging")
	}

	mergeReady := overall >= mergeReadyScore && len(n.blockers) == 0 && mergeableHealth(health.Classification)

	return model.ReadinessResult{
		OverallScore:    overall,
		CIScore:         ciScore,
		ReviewScore:     health.Score,
		ReviewHealth:    health.Classification,
		Classification:  classify(overall, mergeReady),
		MergeReady:      mergeReady,
		Blockers:        n.blockers,
		Warnings:        n.warnings,
		Recommendations: n.recommendations,
	}
}

func mergeableHealth(c model.ReviewHealthClass) bool {
	switch c {
	case model.ReviewHealthApproved, model.ReviewHealthAwaitingReviewer, model.ReviewHealthActive:
		return true
	}
	return false
}

func classify(overall int, mergeReady bool) model.ReadinessClass {
	switch {
	case mergeReady:
		return model.ReadinessReadyToMerge
	case overall >= nearlyReadyScore:
		return model.ReadinessNearlyReady
	case overall >= needsWorkScore:
		return model.ReadinessNeedsWork
	default:
		return model.ReadinessNotReady
	}
}

// notes accumulates display messages in rule order.
type notes struct {
	blockers        []string
	warnings        []string
	recommendations []string
}

func (n *notes) block(msg, recommendation string) {
	n.blockers = append(n.blockers, msg)
	n.recommend(recommendation)
}

func (n *notes) warn(msg, recommendation string) {
	n.warnings = append(n.warnings, msg)
	n.recommend(recommendation)
}

func (n *notes) recommend(recommendation string) {
	if recommendation != "" {
		n.recommendations = append(n.recommendations, recommendation)
	}
}
