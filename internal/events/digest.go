// Package events provides the JSON document published for composed digests.
package events

import (
	"time"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/digest"
)

// DigestEvent is the machine-readable form of a digest, for event bus consumers.
type DigestEvent struct {
	AlarmName       string          `json:"alarmName"`
	NewState        string          `json:"newState"`
	MetricName      string          `json:"metricName"`
	Namespace       string          `json:"namespace"`
	StateChangeTime string          `json:"stateChangeTime"`
	AccountID       string          `json:"accountID,omitempty"`
	Subject         string          `json:"subject"`
	Body            string          `json:"body"`
	Findings        []alarm.Finding `json:"findings"`
	Timestamp       time.Time       `json:"timestamp"`
}

// NewDigestEvent assembles the event for an alarm and its composed digest.
func NewDigestEvent(event *alarm.Event, ranked digest.Ranked, d digest.Digest, now time.Time) *DigestEvent {
	return &DigestEvent{
		AlarmName:       event.AlarmName,
		NewState:        event.NewStateValue,
		MetricName:      event.Trigger.MetricName,
		Namespace:       event.Trigger.Namespace,
		StateChangeTime: event.StateChangeTime,
		AccountID:       event.AWSAccountID,
		Subject:         d.Subject,
		Body:            d.Body,
		Findings:        ranked,
		Timestamp:       now,
	}
}
