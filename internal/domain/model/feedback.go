package model

import "time"

// FeedbackLoop pairs one reviewer action with the author response that closed it.
// ResponseTime, ResponseKind and ResponseDelayHours are set only when Responded.
type FeedbackLoop struct {
	Reviewer           string
	FeedbackTime       time.Time
	FeedbackKind       EventKind
	Responded          bool
	ResponseTime       *time.Time
	ResponseKind       EventKind
	ResponseDelayHours *float64
}

// StaleFeedback is an unanswered feedback loop older than the staleness threshold.
type StaleFeedback struct {
	Reviewer     string
	FeedbackKind EventKind
	DaysOld      float64
}

// ReviewProgress summarizes the feedback loops of one pull request. It is
// derived on every assessment and never persisted.
type ReviewProgress struct {
	FeedbackLoops      []FeedbackLoop
	TotalFeedbackCount int
	RespondedCount     int
	ResponseRate       float64
	AwaitingAuthor     bool
	AwaitingReviewer   bool
	StaleFeedback      []StaleFeedback
	LatestReviewState  ReviewState // Empty when no formal review has been submitted.
	LastReviewerAction *time.Time
	LastAuthorAction   *time.Time
}
