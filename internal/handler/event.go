// Package handler wires the digest pipeline behind the Lambda entry point.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/digest"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/dispatch"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/events"
)

// Enricher collects per-resource error findings for an alarm.
type Enricher interface {
	Enrich(ctx context.Context, event *alarm.Event) ([]alarm.Finding, error)
}

// Composer renders ranked findings as a digest.
type Composer interface {
	Compose(event *alarm.Event, ranked digest.Ranked) (digest.Digest, error)
}

type EventHandler struct {
	enricher Enricher
	composer Composer
	sender   dispatch.Sender
	logger   *slog.Logger
	now      func() time.Time
}

func NewEventHandler(enricher Enricher, composer Composer, sender dispatch.Sender, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		enricher: enricher,
		composer: composer,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleRequest runs one alarm notification through the pipeline.
// Malformed input and discovery failures are returned so the invocation is
// marked failed. An alarm without errors in its window and a failed delivery
// end the invocation normally after logging.
func (h *EventHandler) HandleRequest(ctx context.Context, snsEvent awsevents.SNSEvent) error {
	event, err := alarm.ParseSNSEvent(snsEvent)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot parse alarm notification",
			slog.String("error", err.Error()),
		)
		return err
	}

	findings, err := h.enricher.Enrich(ctx, event)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot enrich alarm",
			slog.String("alarmName", event.AlarmName),
			slog.String("error", err.Error()),
		)
		return err
	}

	ranked, err := digest.Rank(findings)
	if errors.Is(err, digest.ErrNoFindings) {
		h.logger.InfoContext(
			ctx,
			"no errors in alarm window",
			slog.String("alarmName", event.AlarmName),
			slog.String("stateChangeTime", event.StateChangeTime),
		)
		return nil
	}
	if err != nil {
		return err
	}

	d, err := h.composer.Compose(event, ranked)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot compose digest",
			slog.String("alarmName", event.AlarmName),
			slog.String("error", err.Error()),
		)
		return err
	}

	digestEvent := events.NewDigestEvent(event, ranked, d, h.now())

	if err := h.sender.Send(ctx, digestEvent); err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot deliver digest",
			slog.String("alarmName", event.AlarmName),
			slog.String("error", err.Error()),
		)
		return nil
	}

	h.logger.InfoContext(
		ctx,
		"digest delivered",
		slog.String("alarmName", event.AlarmName),
		slog.String("topResource", ranked.Top().ResourceID),
		slog.Int("findings", len(ranked)),
	)

	return nil
}
