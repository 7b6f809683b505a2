package model

// Repository summarizes a repository that has at least one tracked pull request.
type Repository struct {
	FullName   string
	TrackedPRs int
}
