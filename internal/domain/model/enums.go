package model

// PRState represents the open/closed state of a pull request as reported by GitHub.
// Merged pull requests are closed with IsMerged set.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// ReviewState represents the state of a submitted review, normalized to lower case.
type ReviewState string

const (
	ReviewStateApproved         ReviewState = "approved"
	ReviewStateChangesRequested ReviewState = "changes_requested"
	ReviewStateCommented        ReviewState = "commented"
	ReviewStatePending          ReviewState = "pending"
	ReviewStateDismissed        ReviewState = "dismissed"
)

// MergeableState mirrors GitHub's mergeable_state field.
type MergeableState string

const (
	MergeableClean    MergeableState = "clean"
	MergeableDirty    MergeableState = "dirty"    // Merge conflicts with the base branch.
	MergeableBlocked  MergeableState = "blocked"  // Required checks or reviews missing.
	MergeableBehind   MergeableState = "behind"
	MergeableUnstable MergeableState = "unstable" // Mergeable with non-passing commit status.
	MergeableUnknown  MergeableState = "unknown"  // GitHub has not computed it yet.
)

// ReviewStatus is the aggregate review verdict across reviewers.
type ReviewStatus string

const (
	ReviewStatusPending          ReviewStatus = "pending"
	ReviewStatusApproved         ReviewStatus = "approved"
	ReviewStatusChangesRequested ReviewStatus = "changes_requested"
)
