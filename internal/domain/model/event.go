package model

import "time"

// EventKind identifies the source collection of a timeline event.
type EventKind string

const (
	EventCommit        EventKind = "commit"
	EventReview        EventKind = "review"
	EventReviewComment EventKind = "review_comment"
	EventIssueComment  EventKind = "issue_comment"
)

// UnknownAuthor is used when a source record carries no author identity.
const UnknownAuthor = "unknown"

// Event is one observed activity item on a pull request.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Author    string
	Payload   EventPayload
}

// EventPayload holds the kind-specific data of an event. Only the fields
// relevant to the event's kind are set.
type EventPayload struct {
	SHA         string      // Commit: 7-character short SHA.
	Message     string      // Commit: first line of the message.
	State       ReviewState // Review.
	Body        string      // Review, ReviewComment, IssueComment.
	Path        string      // ReviewComment.
	InReplyToID *int64      // ReviewComment.
}

// Timeline is the chronologically ordered event sequence of one pull request.
type Timeline []Event
