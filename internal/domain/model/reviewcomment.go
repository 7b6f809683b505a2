package model

// RawReviewComment represents an inline comment on a pull request diff.
type RawReviewComment struct {
	ID          int64
	UserLogin   string
	Body        string
	Path        string
	InReplyToID *int64
	CreatedAt   string
}
