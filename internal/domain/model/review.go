package model

// RawReview is a formal review as delivered by the pull request reviews API.
// SubmittedAt is kept as the source string; the timeline builder parses it.
type RawReview struct {
	ID          int64
	UserLogin   string
	State       string // APPROVED, CHANGES_REQUESTED, COMMENTED, DISMISSED or PENDING.
	Body        string
	SubmittedAt string
}
