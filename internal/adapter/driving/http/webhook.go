package httphandler

import (
	"errors"
	"io"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/prready/internal/application"
)

// maxWebhookBytes bounds a webhook payload. GitHub caps deliveries at 25 MB;
// the events handled here are far smaller.
const maxWebhookBytes = 5 << 20

// GitHubWebhook applies pull_request, pull_request_review, check_run and
// check_suite deliveries to the tracked set. Other events are acknowledged
// and ignored.
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	kind := gh.WebHookType(r)
	if kind == "" {
		writeError(w, http.StatusBadRequest, "missing X-GitHub-Event header")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	ev, ok, err := parseWebhook(kind, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, WebhookResponse{
			Event:   kind,
			Added:   []PRResponse{},
			Updated: []PRResponse{},
			Removed: []RemovedPRResponse{},
			Ignored: []int{},
			Errors:  []ItemErrorResponse{},
		})
		return
	}

	res, err := h.tracking.HandleWebhook(r.Context(), ev)
	if err != nil {
		h.writeServiceError(w, r, "webhook "+kind, err)
		return
	}

	writeJSON(w, http.StatusOK, toWebhookResponse(ev, res))
}

// parseWebhook extracts the tracking-relevant fields of a delivery. ok is
// false for event kinds that never touch tracked pull requests.
func parseWebhook(kind string, payload []byte) (application.WebhookEvent, bool, error) {
	switch kind {
	case application.EventPullRequest, application.EventPullRequestReview,
		application.EventCheckRun, application.EventCheckSuite:
	default:
		return application.WebhookEvent{}, false, nil
	}

	raw, err := gh.ParseWebHook(kind, payload)
	if err != nil {
		return application.WebhookEvent{}, false, errors.New("invalid webhook payload")
	}

	ev := application.WebhookEvent{Kind: kind}
	switch e := raw.(type) {
	case *gh.PullRequestEvent:
		pr := e.GetPullRequest()
		number := e.GetNumber()
		if number == 0 {
			number = pr.GetNumber()
		}
		if number == 0 || e.GetRepo().GetFullName() == "" {
			return application.WebhookEvent{}, false, errors.New("pull_request payload without repository or number")
		}
		ev.Action = e.GetAction()
		ev.Repo = e.GetRepo().GetFullName()
		ev.Numbers = []int{number}
		ev.Closed = pr.GetState() == "closed" || pr.GetMerged()
	case *gh.PullRequestReviewEvent:
		ev.Action = e.GetAction()
		ev.Repo = e.GetRepo().GetFullName()
		if n := e.GetPullRequest().GetNumber(); n != 0 {
			ev.Numbers = []int{n}
		}
	case *gh.CheckRunEvent:
		ev.Action = e.GetAction()
		ev.Repo = e.GetRepo().GetFullName()
		ev.Numbers = prNumbers(e.GetCheckRun().PullRequests)
	case *gh.CheckSuiteEvent:
		ev.Action = e.GetAction()
		ev.Repo = e.GetRepo().GetFullName()
		ev.Numbers = prNumbers(e.GetCheckSuite().PullRequests)
	}

	// A check or review delivery without pull requests needs no work.
	if len(ev.Numbers) == 0 {
		return ev, false, nil
	}
	return ev, true, nil
}

func prNumbers(prs []*gh.PullRequest) []int {
	out := make([]int, 0, len(prs))
	for _, pr := range prs {
		if n := pr.GetNumber(); n != 0 {
			out = append(out, n)
		}
	}
	return out
}
