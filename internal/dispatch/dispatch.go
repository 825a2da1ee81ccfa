// Package dispatch delivers composed digests to a notification target.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/config"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/events"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-error-digest/internal/dispatch")

// ErrDelivery indicates the target rejected the digest or could not be reached.
var ErrDelivery = errors.New("cannot deliver digest")

// Sender sends digests to a notification target.
type Sender interface {
	// Send delivers the digest. Failures wrap ErrDelivery.
	Send(ctx context.Context, event *events.DigestEvent) error
}

// NewSender creates a Sender implementation based on the configured dispatch target.
// For the slack target cfg.SlackWebhookURL must already hold the plaintext URL.
func NewSender(awsCfg aws.Config, cfg *config.Config) (Sender, error) {
	switch cfg.DispatchTarget {
	case config.TargetSlack:
		sender, err := NewSlackSender(SlackConfig{
			WebhookURL: cfg.SlackWebhookURL,
			Channel:    cfg.SlackChannel,
			Timeout:    cfg.DeliveryTimeout,
		})
		if err != nil {
			return nil, err
		}
		return sender, nil

	case config.TargetSNS:
		return NewSNSSender(sns.NewFromConfig(awsCfg), cfg.SNSTopicARN), nil

	case config.TargetEventBridge:
		return NewEventBridgeSender(eventbridge.NewFromConfig(awsCfg), cfg.EventBusARN), nil

	default:
		return nil, fmt.Errorf("unknown dispatch target: %s", cfg.DispatchTarget)
	}
}

// RedactURL keeps only the scheme and host; webhook paths are credentials.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
