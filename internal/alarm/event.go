package alarm

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Event is the CloudWatch alarm state-change notification carried in an SNS message body.
type Event struct {
	AlarmName        string  `json:"AlarmName"`
	AlarmDescription string  `json:"AlarmDescription,omitempty"`
	AWSAccountID     string  `json:"AWSAccountId,omitempty"`
	NewStateValue    string  `json:"NewStateValue"`
	NewStateReason   string  `json:"NewStateReason,omitempty"`
	OldStateValue    string  `json:"OldStateValue,omitempty"`
	StateChangeTime  string  `json:"StateChangeTime"`
	Region           string  `json:"Region,omitempty"`
	Trigger          Trigger `json:"Trigger"`
}

// Trigger identifies the metric the alarm evaluates.
type Trigger struct {
	MetricName string `json:"MetricName"`
	Namespace  string `json:"Namespace"`
}

// ParseSNSEvent decodes the alarm carried by the first record of an SNS event.
func ParseSNSEvent(event events.SNSEvent) (*Event, error) {
	if len(event.Records) == 0 {
		return nil, fmt.Errorf("%w: sns event has no records", ErrParse)
	}

	return ParseMessage(event.Records[0].SNS.Message)
}

// ParseMessage decodes an alarm notification body and checks the fields the
// digest depends on.
func ParseMessage(message string) (*Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(message), &e); err != nil {
		return nil, fmt.Errorf("%w: cannot decode alarm message: %w", ErrParse, err)
	}

	switch {
	case e.AlarmName == "":
		return nil, fmt.Errorf("%w: alarm name is empty", ErrParse)
	case e.StateChangeTime == "":
		return nil, fmt.Errorf("%w: state change time is empty", ErrParse)
	case e.Trigger.MetricName == "" || e.Trigger.Namespace == "":
		return nil, fmt.Errorf("%w: trigger metric name and namespace are required", ErrParse)
	}

	return &e, nil
}
