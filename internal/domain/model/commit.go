package model

// RawCommit is a commit on the pull request branch. AuthorLogin is the linked
// GitHub account, which is empty when the git author email is not associated
// with one; AuthorName is the git author name.
type RawCommit struct {
	SHA         string
	Message     string
	AuthorLogin string
	AuthorName  string
	Date        string
}

// RawEvents groups the four activity collections gathered for one pull request.
// Truncated is set when any source hit its item cap with more data available.
type RawEvents struct {
	Commits        []RawCommit
	Reviews        []RawReview
	ReviewComments []RawReviewComment
	IssueComments  []RawIssueComment
	Truncated      bool
}
