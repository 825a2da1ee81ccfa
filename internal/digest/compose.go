package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
)

const timestampLayout = "2006-01-02 15:04:05"

// Digest is the composed notification.
type Digest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Text renders the digest as a single chat message, subject first.
func (d Digest) Text() string {
	return d.Subject + "\n" + d.Body
}

// Composer renders ranked findings in a fixed reporting time zone.
type Composer struct {
	loc *time.Location
}

// NewComposer creates a Composer whose body timestamps are shifted by offset from UTC.
func NewComposer(offset time.Duration) *Composer {
	return &Composer{loc: fixedZone(offset)}
}

// Compose builds the subject from the top-ranked resource and one body line per finding.
func (c *Composer) Compose(event *alarm.Event, ranked Ranked) (Digest, error) {
	if len(ranked) == 0 {
		return Digest{}, ErrNoFindings
	}

	lines := make([]string, 0, len(ranked))
	for _, f := range ranked {
		first := f.ErrorPoints[0]
		lines = append(lines, fmt.Sprintf("%s に %s でエラーが %d 回発生しました",
			first.Timestamp.In(c.loc).Format(timestampLayout),
			f.ResourceID,
			int64(first.Sum)))
	}

	return Digest{
		Subject: event.AlarmName + event.NewStateValue + ranked.Top().ResourceID,
		Body:    strings.Join(lines, "\n"),
	}, nil
}

func fixedZone(offset time.Duration) *time.Location {
	if offset == 0 {
		return time.UTC
	}

	sign := "+"
	abs := offset
	if offset < 0 {
		sign = "-"
		abs = -offset
	}

	name := fmt.Sprintf("UTC%s%02d:%02d", sign, int(abs.Hours()), int(abs.Minutes())%60)
	return time.FixedZone(name, int(offset.Seconds()))
}
