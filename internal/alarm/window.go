package alarm

import (
	"fmt"
	"time"
)

const (
	// stateChangeLayout is the seconds-precision prefix of StateChangeTime,
	// e.g. "2024-05-01T03:04:05" out of "2024-05-01T03:04:05.123+0000".
	stateChangeLayout = "2006-01-02T15:04:05"

	// windowLead extends the window past the state change so the period
	// containing it is fully covered.
	windowLead = time.Minute
)

// TimeWindow is the half-open metric query range [From, To).
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Duration returns To - From.
func (w TimeWindow) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// ParseStateChangeTime parses a StateChangeTime, discarding sub-second
// precision and zone suffix. The remaining value is read as UTC.
func ParseStateChangeTime(s string) (time.Time, error) {
	if len(s) < len(stateChangeLayout) {
		return time.Time{}, fmt.Errorf("%w: state change time %q is too short", ErrParse, s)
	}

	t, err := time.ParseInLocation(stateChangeLayout, s[:len(stateChangeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: state change time %q: %w", ErrParse, s, err)
	}

	return t, nil
}

// NewTimeWindow derives [stateChangeTime - lookback, stateChangeTime + 1m].
func NewTimeWindow(stateChangeTime string, lookback time.Duration) (TimeWindow, error) {
	if lookback <= 0 {
		return TimeWindow{}, fmt.Errorf("%w: lookback %s must be positive", ErrParse, lookback)
	}

	t, err := ParseStateChangeTime(stateChangeTime)
	if err != nil {
		return TimeWindow{}, err
	}

	return TimeWindow{
		From: t.Add(-lookback),
		To:   t.Add(windowLead),
	}, nil
}
