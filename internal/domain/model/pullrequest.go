package model

import (
	"fmt"
	"time"
)

// PullRequest is the tracked unit whose readiness is assessed. Structural
// attributes (draft, mergeable state, check counts, open conversations) are
// refreshed from GitHub; activity events are fetched on demand and never stored.
type PullRequest struct {
	ID                int64
	RepoFullName      string
	Number            int
	URL               string
	Title             string
	Author            string
	State             PRState
	IsMerged          bool
	IsDraft           bool
	MergeableState    MergeableState
	FilesChanged      int
	ChecksPassed      int
	ChecksFailed      int
	ChecksSkipped     int
	OpenConversations int
	HeadSHA           string
	ReviewStatus      ReviewStatus // Default ReviewStatusPending.
	UpdatedAt         time.Time
	LastRefreshedAt   time.Time
}

// Key returns the cache key for the pull request's readiness result.
func (pr PullRequest) Key() string {
	return ResultKey(pr.ID)
}

// IsOpen reports whether the pull request is still open and unmerged.
func (pr PullRequest) IsOpen() bool {
	return pr.State == PRStateOpen && !pr.IsMerged
}

// TotalChecks returns the number of bucketed check runs.
func (pr PullRequest) TotalChecks() int {
	return pr.ChecksPassed + pr.ChecksFailed + pr.ChecksSkipped
}

// ResultKey returns the cache key for the given pull request id.
func ResultKey(prID int64) string {
	return fmt.Sprintf("pr:%d", prID)
}
