// Package readiness turns the raw activity of a pull request into a
// deterministic readiness assessment: a fused timeline, feedback-loop
// analysis, review-health classification, CI confidence and the combined
// score with its blockers, warnings and recommendations.
//
// Every function in this package is pure. Wall-clock time is passed in.
package readiness

import (
	"fmt"
	"time"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

// timestampLayout is GitHub's REST timestamp profile, e.g. 2024-01-15T10:30:45Z.
// A numeric offset in place of Z is accepted and normalized to UTC.
const timestampLayout = "2006-01-02T15:04:05Z07:00"

// ParseTimestamp parses a GitHub timestamp into a UTC instant. It never falls
// back to the current time; unparseable input yields model.ErrInvalidTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", model.ErrInvalidTimestamp)
	}

	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidTimestamp, s)
	}

	return t.UTC(), nil
}
