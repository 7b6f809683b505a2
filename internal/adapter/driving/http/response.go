package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ericfisherdev/prready/internal/application"
	"github.com/ericfisherdev/prready/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

type rateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// TrackRequest is the JSON body of POST /prs. Either PRURL is set, or RepoURL
// with AddAll to import every open pull request of a repository.
type TrackRequest struct {
	PRURL   string `json:"pr_url"`
	RepoURL string `json:"repo_url"`
	AddAll  bool   `json:"add_all"`
}

// ChecksResponse groups the bucketed check-run counts.
type ChecksResponse struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// PRResponse is the JSON representation of a tracked pull request.
type PRResponse struct {
	ID                int64          `json:"id"`
	Repository        string         `json:"repository"`
	Number            int            `json:"number"`
	URL               string         `json:"url"`
	Title             string         `json:"title"`
	Author            string         `json:"author"`
	State             string         `json:"state"`
	IsMerged          bool           `json:"is_merged"`
	IsDraft           bool           `json:"is_draft"`
	MergeableState    string         `json:"mergeable_state"`
	FilesChanged      int            `json:"files_changed"`
	Checks            ChecksResponse `json:"checks"`
	OpenConversations int            `json:"open_conversations"`
	HeadSHA           string         `json:"head_sha"`
	ReviewStatus      string         `json:"review_status"`
	UpdatedAt         string         `json:"updated_at"`
	LastRefreshedAt   string         `json:"last_refreshed_at"`
}

// ImportResponse reports a bulk import of a repository's open pull requests.
type ImportResponse struct {
	Repository string `json:"repository"`
	Imported   int    `json:"imported"`
	Truncated  bool   `json:"truncated"`
}

// RefreshResponse reports the outcome of a refresh. PR is omitted when the
// pull request was merged or closed and therefore removed from tracking.
type RefreshResponse struct {
	PR      *PRResponse `json:"pr,omitempty"`
	Removed bool        `json:"removed"`
}

// RepoResponse is a repository with tracked pull requests.
type RepoResponse struct {
	FullName   string `json:"full_name"`
	TrackedPRs int    `json:"tracked_prs"`
}

// ReadinessBody is the readiness verdict with display-ready percentages.
type ReadinessBody struct {
	OverallScore        int      `json:"overall_score"`
	OverallScoreDisplay string   `json:"overall_score_display"`
	CIScore             int      `json:"ci_score"`
	CIScoreDisplay      string   `json:"ci_score_display"`
	ReviewScore         int      `json:"review_score"`
	ReviewScoreDisplay  string   `json:"review_score_display"`
	ReviewHealth        string   `json:"review_health"`
	Classification      string   `json:"classification"`
	MergeReady          bool     `json:"merge_ready"`
	Blockers            []string `json:"blockers"`
	Warnings            []string `json:"warnings"`
	Recommendations     []string `json:"recommendations"`
	ComputedAt          string   `json:"computed_at"`
}

// StaleFeedbackResponse is an unanswered feedback item older than three days.
type StaleFeedbackResponse struct {
	Reviewer     string  `json:"reviewer"`
	FeedbackType string  `json:"feedback_type"`
	DaysOld      float64 `json:"days_old"`
}

// ReviewHealthBody summarizes the review conversation behind a readiness verdict.
type ReviewHealthBody struct {
	TotalFeedback       int                     `json:"total_feedback"`
	RespondedFeedback   int                     `json:"responded_feedback"`
	ResponseRate        float64                 `json:"response_rate"`
	ResponseRateDisplay string                  `json:"response_rate_display"`
	StaleFeedback       []StaleFeedbackResponse `json:"stale_feedback"`
}

// ReadinessResponse is the body of GET /prs/{id}/readiness.
type ReadinessResponse struct {
	PR           PRResponse       `json:"pr"`
	Readiness    ReadinessBody    `json:"readiness"`
	ReviewHealth ReviewHealthBody `json:"review_health"`
	CIChecks     ChecksResponse   `json:"ci_checks"`
}

// EventResponse is one timeline entry. Kind-specific fields are omitted when unset.
type EventResponse struct {
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
	Author      string `json:"author"`
	SHA         string `json:"sha,omitempty"`
	Message     string `json:"message,omitempty"`
	State       string `json:"state,omitempty"`
	Body        string `json:"body,omitempty"`
	BodyHTML    string `json:"body_html,omitempty"`
	Path        string `json:"path,omitempty"`
	InReplyToID *int64 `json:"in_reply_to_id,omitempty"`
}

// TimelineResponse is the body of GET /prs/{id}/timeline.
type TimelineResponse struct {
	PR            PRResponse      `json:"pr"`
	Timeline      []EventResponse `json:"timeline"`
	EventCount    int             `json:"event_count"`
	DroppedEvents int             `json:"dropped_events"`
	Truncated     bool            `json:"truncated"`
}

// FeedbackLoopResponse is one reviewer action and the author response closing it.
type FeedbackLoopResponse struct {
	Reviewer           string   `json:"reviewer"`
	FeedbackTime       string   `json:"feedback_time"`
	FeedbackType       string   `json:"feedback_type"`
	Responded          bool     `json:"responded"`
	ResponseTime       *string  `json:"response_time"`
	ResponseType       string   `json:"response_type,omitempty"`
	ResponseDelayHours *float64 `json:"response_delay_hours"`
}

// ReviewAnalysisBody is the aggregate feedback-loop analysis.
type ReviewAnalysisBody struct {
	TotalFeedback      int                     `json:"total_feedback"`
	RespondedFeedback  int                     `json:"responded_feedback"`
	ResponseRate       float64                 `json:"response_rate"`
	AwaitingAuthor     bool                    `json:"awaiting_author"`
	AwaitingReviewer   bool                    `json:"awaiting_reviewer"`
	LatestReviewState  string                  `json:"latest_review_state,omitempty"`
	LastReviewerAction *string                 `json:"last_reviewer_action"`
	LastAuthorAction   *string                 `json:"last_author_action"`
	StaleFeedback      []StaleFeedbackResponse `json:"stale_feedback"`
	HealthStatus       string                  `json:"health_status"`
	HealthScore        int                     `json:"health_score"`
}

// ReviewAnalysisResponse is the body of GET /prs/{id}/review-analysis.
type ReviewAnalysisResponse struct {
	PR             PRResponse             `json:"pr"`
	ReviewAnalysis ReviewAnalysisBody     `json:"review_analysis"`
	FeedbackLoops  []FeedbackLoopResponse `json:"feedback_loops"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func percent(score int) string {
	return fmt.Sprintf("%d%%", score)
}

func toChecksResponse(pr model.PullRequest) ChecksResponse {
	return ChecksResponse{
		Passed:  pr.ChecksPassed,
		Failed:  pr.ChecksFailed,
		Skipped: pr.ChecksSkipped,
		Total:   pr.TotalChecks(),
	}
}

// toPRResponse converts a domain PullRequest to its JSON response representation.
func toPRResponse(pr model.PullRequest) PRResponse {
	return PRResponse{
		ID:                pr.ID,
		Repository:        pr.RepoFullName,
		Number:            pr.Number,
		URL:               pr.URL,
		Title:             pr.Title,
		Author:            pr.Author,
		State:             string(pr.State),
		IsMerged:          pr.IsMerged,
		IsDraft:           pr.IsDraft,
		MergeableState:    string(pr.MergeableState),
		FilesChanged:      pr.FilesChanged,
		Checks:            toChecksResponse(pr),
		OpenConversations: pr.OpenConversations,
		HeadSHA:           pr.HeadSHA,
		ReviewStatus:      string(pr.ReviewStatus),
		UpdatedAt:         formatTime(pr.UpdatedAt),
		LastRefreshedAt:   formatTime(pr.LastRefreshedAt),
	}
}

func toStaleFeedback(items []model.StaleFeedback) []StaleFeedbackResponse {
	out := make([]StaleFeedbackResponse, 0, len(items))
	for _, s := range items {
		out = append(out, StaleFeedbackResponse{
			Reviewer:     s.Reviewer,
			FeedbackType: string(s.FeedbackKind),
			DaysOld:      s.DaysOld,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toReadinessResponse(report *application.ReadinessReport) ReadinessResponse {
	res := report.Result
	return ReadinessResponse{
		PR: toPRResponse(report.PR),
		Readiness: ReadinessBody{
			OverallScore:        res.OverallScore,
			OverallScoreDisplay: percent(res.OverallScore),
			CIScore:             res.CIScore,
			CIScoreDisplay:      percent(res.CIScore),
			ReviewScore:         res.ReviewScore,
			ReviewScoreDisplay:  percent(res.ReviewScore),
			ReviewHealth:        string(res.ReviewHealth),
			Classification:      string(res.Classification),
			MergeReady:          res.MergeReady,
			Blockers:            nonNil(res.Blockers),
			Warnings:            nonNil(res.Warnings),
			Recommendations:     nonNil(res.Recommendations),
			ComputedAt:          formatTime(res.ComputedAt),
		},
		ReviewHealth: ReviewHealthBody{
			TotalFeedback:       res.Review.TotalFeedback,
			RespondedFeedback:   res.Review.RespondedFeedback,
			ResponseRate:        res.Review.ResponseRate,
			ResponseRateDisplay: fmt.Sprintf("%.0f%%", res.Review.ResponseRate*100),
			StaleFeedback:       toStaleFeedback(res.Review.StaleFeedback),
		},
		CIChecks: toChecksResponse(report.PR),
	}
}

func toEventResponse(ev model.Event) EventResponse {
	out := EventResponse{
		Type:      string(ev.Kind),
		Timestamp: formatTime(ev.Timestamp),
		Author:    ev.Author,
	}

	switch ev.Kind {
	case model.EventCommit:
		out.SHA = ev.Payload.SHA
		out.Message = ev.Payload.Message
	case model.EventReview:
		out.State = string(ev.Payload.State)
		out.Body = ev.Payload.Body
	case model.EventReviewComment:
		out.Body = ev.Payload.Body
		out.Path = ev.Payload.Path
		out.InReplyToID = ev.Payload.InReplyToID
	case model.EventIssueComment:
		out.Body = ev.Payload.Body
	}
	out.BodyHTML = RenderMarkdown(out.Body)

	return out
}

func toTimelineResponse(report *application.TimelineReport) TimelineResponse {
	events := make([]EventResponse, 0, len(report.Timeline))
	for _, ev := range report.Timeline {
		events = append(events, toEventResponse(ev))
	}

	return TimelineResponse{
		PR:            toPRResponse(report.PR),
		Timeline:      events,
		EventCount:    len(events),
		DroppedEvents: report.DroppedEvents,
		Truncated:     report.Truncated,
	}
}

func toReviewAnalysisResponse(report *application.ReviewAnalysisReport) ReviewAnalysisResponse {
	p := report.Progress

	loops := make([]FeedbackLoopResponse, 0, len(p.FeedbackLoops))
	for _, l := range p.FeedbackLoops {
		loops = append(loops, FeedbackLoopResponse{
			Reviewer:           l.Reviewer,
			FeedbackTime:       formatTime(l.FeedbackTime),
			FeedbackType:       string(l.FeedbackKind),
			Responded:          l.Responded,
			ResponseTime:       formatTimePtr(l.ResponseTime),
			ResponseType:       string(l.ResponseKind),
			ResponseDelayHours: l.ResponseDelayHours,
		})
	}

	return ReviewAnalysisResponse{
		PR: toPRResponse(report.PR),
		ReviewAnalysis: ReviewAnalysisBody{
			TotalFeedback:      p.TotalFeedbackCount,
			RespondedFeedback:  p.RespondedCount,
			ResponseRate:       p.ResponseRate,
			AwaitingAuthor:     p.AwaitingAuthor,
			AwaitingReviewer:   p.AwaitingReviewer,
			LatestReviewState:  string(p.LatestReviewState),
			LastReviewerAction: formatTimePtr(p.LastReviewerAction),
			LastAuthorAction:   formatTimePtr(p.LastAuthorAction),
			StaleFeedback:      toStaleFeedback(p.StaleFeedback),
			HealthStatus:       string(report.Health.Classification),
			HealthScore:        report.Health.Score,
		},
		FeedbackLoops: loops,
	}
}

// BatchRefreshRequest lists the tracked pull requests to refresh.
type BatchRefreshRequest struct {
	PRIDs []int64 `json:"pr_ids"`
}

// RemovedPRResponse identifies a pull request dropped from tracking.
type RemovedPRResponse struct {
	PRID   int64  `json:"pr_id"`
	Number int    `json:"number"`
	Status string `json:"status"` // merged or closed
}

// ItemErrorResponse reports one pull request that could not be processed.
type ItemErrorResponse struct {
	PRID   int64  `json:"pr_id,omitempty"`
	Number int    `json:"number,omitempty"`
	Error  string `json:"error"`
}

// BatchRefreshResponse reports a batch refresh. Skipped ids are not tracked.
type BatchRefreshResponse struct {
	Updated    int                 `json:"updated"`
	Removed    int                 `json:"removed"`
	Errors     int                 `json:"errors"`
	UpdatedPRs []PRResponse        `json:"updated_prs"`
	RemovedPRs []RemovedPRResponse `json:"removed_prs"`
	ErrorPRs   []ItemErrorResponse `json:"error_prs"`
	Skipped    []int64             `json:"skipped"`
}

// WebhookResponse reports what a GitHub webhook delivery changed.
type WebhookResponse struct {
	Event   string              `json:"event"`
	Action  string              `json:"action,omitempty"`
	Added   []PRResponse        `json:"added"`
	Updated []PRResponse        `json:"updated"`
	Removed []RemovedPRResponse `json:"removed"`
	Ignored []int               `json:"ignored"`
	Errors  []ItemErrorResponse `json:"errors"`
}

func toPRResponses(prs []model.PullRequest) []PRResponse {
	out := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toPRResponse(pr))
	}
	return out
}

func toRemovedPRs(prs []model.PullRequest) []RemovedPRResponse {
	out := make([]RemovedPRResponse, 0, len(prs))
	for _, pr := range prs {
		status := "closed"
		if pr.IsMerged {
			status = "merged"
		}
		out = append(out, RemovedPRResponse{PRID: pr.ID, Number: pr.Number, Status: status})
	}
	return out
}

// itemErrorMessage describes a per-item failure without internal detail.
func itemErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return "GitHub is unavailable"
	case errors.Is(err, model.ErrPRNotFound):
		return "pull request not found on GitHub"
	default:
		return "update failed"
	}
}

func toBatchRefreshResponse(res *application.BatchRefreshResult) BatchRefreshResponse {
	errs := make([]ItemErrorResponse, 0, len(res.Errors))
	for _, e := range res.Errors {
		errs = append(errs, ItemErrorResponse{PRID: e.PRID, Error: itemErrorMessage(e.Err)})
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []int64{}
	}

	return BatchRefreshResponse{
		Updated:    len(res.Updated),
		Removed:    len(res.Removed),
		Errors:     len(res.Errors),
		UpdatedPRs: toPRResponses(res.Updated),
		RemovedPRs: toRemovedPRs(res.Removed),
		ErrorPRs:   errs,
		Skipped:    skipped,
	}
}

func toWebhookResponse(ev application.WebhookEvent, res *application.WebhookResult) WebhookResponse {
	errs := make([]ItemErrorResponse, 0, len(res.Errors))
	for _, e := range res.Errors {
		errs = append(errs, ItemErrorResponse{Number: e.Number, Error: itemErrorMessage(e.Err)})
	}
	ignored := res.Ignored
	if ignored == nil {
		ignored = []int{}
	}

	return WebhookResponse{
		Event:   ev.Kind,
		Action:  ev.Action,
		Added:   toPRResponses(res.Added),
		Updated: toPRResponses(res.Updated),
		Removed: toRemovedPRs(res.Removed),
		Ignored: ignored,
		Errors:  errs,
	}
}
