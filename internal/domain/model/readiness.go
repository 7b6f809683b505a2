package model

import "time"

// ReviewHealthClass labels the state of a pull request's review conversation.
type ReviewHealthClass string

const (
	ReviewHealthNoActivity       ReviewHealthClass = "NO_ACTIVITY"
	ReviewHealthApproved         ReviewHealthClass = "APPROVED"
	ReviewHealthStalled          ReviewHealthClass = "STALLED"
	ReviewHealthAwaitingAuthor   ReviewHealthClass = "AWAITING_AUTHOR"
	ReviewHealthAwaitingReviewer ReviewHealthClass = "AWAITING_REVIEWER"
	ReviewHealthActive           ReviewHealthClass = "ACTIVE"
)

// ReadinessClass labels the overall merge readiness of a pull request.
type ReadinessClass string

const (
	ReadinessReadyToMerge ReadinessClass = "READY_TO_MERGE"
	ReadinessNearlyReady  ReadinessClass = "NEARLY_READY"
	ReadinessNeedsWork    ReadinessClass = "NEEDS_WORK"
	ReadinessNotReady     ReadinessClass = "NOT_READY"
)

// ReviewHealth is the classifier verdict for a review conversation.
type ReviewHealth struct {
	Classification ReviewHealthClass
	Score          int
}

// ReadinessResult is the cached, externally visible readiness artifact.
// Blockers, Warnings and Recommendations are in display order.
type ReadinessResult struct {
	OverallScore    int
	CIScore         int
	ReviewScore     int
	ReviewHealth    ReviewHealthClass
	Classification  ReadinessClass
	MergeReady      bool
	Blockers        []string
	Warnings        []string
	Recommendations []string
	Review          ReviewSummary
	ComputedAt      time.Time
}

// ReviewSummary is the slice of ReviewProgress kept alongside a cached result.
type ReviewSummary struct {
	TotalFeedback     int
	RespondedFeedback int
	ResponseRate      float64
	StaleFeedback     []StaleFeedback
}

// Assessment bundles every intermediate product of one readiness run.
type Assessment struct {
	Timeline      Timeline
	DroppedEvents int
	Progress      ReviewProgress
	Health        ReviewHealth
	Result        ReadinessResult
}
