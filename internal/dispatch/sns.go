package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/config"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/events"
)

// maxSubjectLength is SNS' limit for email-protocol subjects.
const maxSubjectLength = 99

// SNSAPI defines required SNS operations.
type SNSAPI interface {
	Publish(
		ctx context.Context,
		input *sns.PublishInput,
		optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender publishes digests to an SNS topic.
type SNSSender struct {
	client   SNSAPI
	topicARN string
}

// NewSNSSender creates a new SNSSender instance.
func NewSNSSender(client SNSAPI, topicARN string) *SNSSender {
	return &SNSSender{
		client:   client,
		topicARN: topicARN,
	}
}

// Send publishes the digest subject and body to the topic.
func (s *SNSSender) Send(ctx context.Context, event *events.DigestEvent) error {
	ctx, span := tracer.Start(ctx, "dispatch.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.target", string(config.TargetSNS)),
		attribute.String("sns.topic_arn", s.topicARN),
		attribute.String("alarm.name", event.AlarmName),
	)

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(truncate(event.Subject, maxSubjectLength)),
		Message:  aws.String(event.Body),
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("%w: cannot publish to %q: %w", ErrDelivery, s.topicARN, err)
	}

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
