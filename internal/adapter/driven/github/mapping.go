package github

import (
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
// Check counts, open conversations and review status are filled in by the caller.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequest {
	state := model.PRStateOpen
	if pr.GetState() == "closed" {
		state = model.PRStateClosed
	}

	mergeable := model.MergeableState(pr.GetMergeableState())
	if mergeable == "" {
		mergeable = model.MergeableUnknown
	}

	return model.PullRequest{
		RepoFullName:   repoFullName,
		Number:         pr.GetNumber(),
		URL:            pr.GetHTMLURL(),
		Title:          pr.GetTitle(),
		Author:         pr.GetUser().GetLogin(),
		State:          state,
		IsMerged:       pr.GetMerged() || !pr.GetMergedAt().IsZero(),
		IsDraft:        pr.GetDraft(),
		MergeableState: mergeable,
		FilesChanged:   pr.GetChangedFiles(),
		HeadSHA:        pr.GetHead().GetSHA(),
		UpdatedAt:      pr.GetUpdatedAt().Time,
	}
}

// mapCommit converts a go-github RepositoryCommit. The GitHub account login is
// preferred; the git author name is kept as a fallback for unlinked authors.
func mapCommit(c *gh.RepositoryCommit) model.RawCommit {
	return model.RawCommit{
		SHA:         c.GetSHA(),
		Message:     c.GetCommit().GetMessage(),
		AuthorLogin: c.GetAuthor().GetLogin(),
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		Date:        formatTimestamp(c.GetCommit().GetAuthor().GetDate()),
	}
}

func mapReview(r *gh.PullRequestReview) model.RawReview {
	return model.RawReview{
		ID:          r.GetID(),
		UserLogin:   r.GetUser().GetLogin(),
		State:       r.GetState(),
		Body:        r.GetBody(),
		SubmittedAt: formatTimestamp(r.GetSubmittedAt()),
	}
}

func mapReviewComment(c *gh.PullRequestComment) model.RawReviewComment {
	var inReplyTo *int64
	if c.InReplyTo != nil {
		val := c.GetInReplyTo()
		inReplyTo = &val
	}

	return model.RawReviewComment{
		ID:          c.GetID(),
		UserLogin:   c.GetUser().GetLogin(),
		Body:        c.GetBody(),
		Path:        c.GetPath(),
		InReplyToID: inReplyTo,
		CreatedAt:   formatTimestamp(c.GetCreatedAt()),
	}
}

func mapIssueComment(c *gh.IssueComment) model.RawIssueComment {
	return model.RawIssueComment{
		ID:        c.GetID(),
		UserLogin: c.GetUser().GetLogin(),
		Body:      c.GetBody(),
		CreatedAt: formatTimestamp(c.GetCreatedAt()),
	}
}

func mapCheckRun(cr *gh.CheckRun) model.CheckRun {
	return model.CheckRun{
		Name:       cr.GetName(),
		Status:     cr.GetStatus(),
		Conclusion: cr.GetConclusion(),
	}
}

// formatTimestamp renders a GitHub timestamp in the wire format the timeline
// builder parses. A missing timestamp stays empty so the item is dropped.
func formatTimestamp(ts gh.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
