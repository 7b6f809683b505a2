package readiness

import (
	"slices"
	"strings"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

const shortSHALength = 7

// BuildTimeline fuses the four activity collections into one timeline sorted
// ascending by timestamp. Sources are appended in a fixed order (commits,
// reviews, review comments, issue comments) and sorted stably, so events with
// equal timestamps keep that source priority.
//
// Items whose timestamp is missing or unparseable are dropped individually;
// the number dropped is returned alongside the timeline. Pending reviews are
// excluded and are not counted as dropped.
func BuildTimeline(raw model.RawEvents) (model.Timeline, int) {
	capacity := len(raw.Commits) + len(raw.Reviews) + len(raw.ReviewComments) + len(raw.IssueComments)
	timeline := make(model.Timeline, 0, capacity)
	dropped := 0

	for _, c := range raw.Commits {
		ts, err := ParseTimestamp(c.Date)
		if err != nil {
			dropped++
			continue
		}
		timeline = append(timeline, model.Event{
			Kind:      model.EventCommit,
			Timestamp: ts,
			Author:    commitAuthor(c),
			Payload: model.EventPayload{
				SHA:     shortSHA(c.SHA),
				Message: firstLine(c.Message),
			},
		})
	}

	for _, r := range raw.Reviews {
		if strings.EqualFold(r.State, string(model.ReviewStatePending)) {
			continue
		}
		ts, err := ParseTimestamp(r.SubmittedAt)
		if err != nil {
			dropped++
			continue
		}
		timeline = append(timeline, model.Event{
			Kind:      model.EventReview,
			Timestamp: ts,
			Author:    authorOrUnknown(r.UserLogin),
			Payload: model.EventPayload{
				State: model.ReviewState(strings.ToLower(r.State)),
				Body:  r.Body,
			},
		})
	}

	for _, rc := range raw.ReviewComments {
		ts, err := ParseTimestamp(rc.CreatedAt)
		if err != nil {
			dropped++
			continue
		}
		timeline = append(timeline, model.Event{
			Kind:      model.EventReviewComment,
			Timestamp: ts,
			Author:    authorOrUnknown(rc.UserLogin),
			Payload: model.EventPayload{
				Body:        rc.Body,
				Path:        rc.Path,
				InReplyToID: rc.InReplyToID,
			},
		})
	}

	for _, ic := range raw.IssueComments {
		ts, err := ParseTimestamp(ic.CreatedAt)
		if err != nil {
			dropped++
			continue
		}
		timeline = append(timeline, model.Event{
			Kind:      model.EventIssueComment,
			Timestamp: ts,
			Author:    authorOrUnknown(ic.UserLogin),
			Payload:   model.EventPayload{Body: ic.Body},
		})
	}

	slices.SortStableFunc(timeline, func(a, b model.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return timeline, dropped
}

// commitAuthor prefers the linked GitHub login, then the git author name.
func commitAuthor(c model.RawCommit) string {
	if c.AuthorLogin != "" {
		return c.AuthorLogin
	}
	return authorOrUnknown(c.AuthorName)
}

func authorOrUnknown(login string) string {
	if login == "" {
		return model.UnknownAuthor
	}
	return login
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}

func firstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")
	return line
}
