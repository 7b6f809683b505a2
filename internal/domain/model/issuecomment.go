package model

// RawIssueComment represents a PR-level general comment (from the GitHub Issues API,
// not the Pull Requests review comments API).
type RawIssueComment struct {
	ID        int64
	UserLogin string
	Body      string
	CreatedAt string
}
