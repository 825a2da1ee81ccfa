// Package digest ranks error findings and composes the chat summary.
package digest

import (
	"cmp"
	"errors"
	"slices"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
)

// ErrNoFindings indicates no resource recorded errors in the window.
// There is nothing to report; it is not a failure of the run.
var ErrNoFindings = errors.New("no resource reported errors in the window")

// Ranked is a non-empty list of findings, most recent error first.
type Ranked []alarm.Finding

// Top returns the most recently erroring finding.
func (r Ranked) Top() alarm.Finding {
	return r[0]
}

// Rank orders findings by the timestamp of their first error point, latest
// first, breaking ties by resource identifier ascending. Findings without error
// points are dropped. The input slice is not modified.
func Rank(findings []alarm.Finding) (Ranked, error) {
	ranked := make(Ranked, 0, len(findings))
	for _, f := range findings {
		if len(f.ErrorPoints) > 0 {
			ranked = append(ranked, f)
		}
	}

	if len(ranked) == 0 {
		return nil, ErrNoFindings
	}

	slices.SortFunc(ranked, func(a, b alarm.Finding) int {
		if c := b.ErrorPoints[0].Timestamp.Compare(a.ErrorPoints[0].Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ResourceID, b.ResourceID)
	})

	return ranked, nil
}
