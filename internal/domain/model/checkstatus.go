package model

// CheckRun represents an individual CI/CD check run from the GitHub Checks API.
type CheckRun struct {
	Name       string // Check run name (e.g., "build", "lint").
	Status     string // queued, in_progress, completed, waiting, requested, pending.
	Conclusion string // success, failure, neutral, cancelled, skipped, timed_out, action_required.
}

// CheckCounts buckets check runs by conclusion. Runs without a conclusion
// (still running) are not counted.
type CheckCounts struct {
	Passed  int
	Failed  int
	Skipped int
}

// CountChecks buckets the given check runs by conclusion.
func CountChecks(runs []CheckRun) CheckCounts {
	var c CheckCounts
	for _, cr := range runs {
		switch cr.Conclusion {
		case "success":
			c.Passed++
		case "failure", "timed_out", "cancelled", "canceled", "action_required": //nolint:misspell // GitHub API uses British "cancelled"
			c.Failed++
		case "skipped", "neutral":
			c.Skipped++
		}
	}
	return c
}
