package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/config"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/events"
)

const (
	eventSource     = "cloudwatch.error.digest"
	eventDetailType = "Alarm Error Digest"
)

// EventBridgeAPI defines the EventBridge operations required for sending events.
type EventBridgeAPI interface {
	PutEvents(
		ctx context.Context,
		params *eventbridge.PutEventsInput,
		optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeSender puts digests on an EventBridge event bus.
type EventBridgeSender struct {
	client      EventBridgeAPI
	eventBusARN string
}

// NewEventBridgeSender creates a new EventBridgeSender instance.
func NewEventBridgeSender(client EventBridgeAPI, eventBusARN string) *EventBridgeSender {
	return &EventBridgeSender{
		client:      client,
		eventBusARN: eventBusARN,
	}
}

// Send publishes the digest event as JSON detail.
func (s *EventBridgeSender) Send(ctx context.Context, event *events.DigestEvent) error {
	ctx, span := tracer.Start(ctx, "dispatch.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.target", string(config.TargetEventBridge)),
		attribute.String("eventbus.arn", s.eventBusARN),
		attribute.String("alarm.name", event.AlarmName),
	)

	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: cannot marshal event: %w", ErrDelivery, err)
	}

	out, err := s.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			Detail:       aws.String(string(detail)),
			DetailType:   aws.String(eventDetailType),
			EventBusName: aws.String(s.eventBusARN),
			Source:       aws.String(eventSource),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: cannot put event to %q: %w", ErrDelivery, s.eventBusARN, err)
	}

	if out.FailedEntryCount > 0 && len(out.Entries) > 0 {
		entry := out.Entries[0]
		return fmt.Errorf("%w: event rejected by %q: %s - %s", ErrDelivery,
			s.eventBusARN, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
	}

	return nil
}
