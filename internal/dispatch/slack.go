package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/config"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/digest"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/events"
)

const (
	defaultSlackTimeout = 10 * time.Second
	maxErrorBodyBytes   = 512
)

// SlackPayload is the JSON body posted to an Incoming Webhook.
type SlackPayload struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// SlackConfig holds the configuration for creating a SlackSender.
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Timeout    time.Duration
}

// SlackSender posts digests to a Slack Incoming Webhook.
type SlackSender struct {
	httpClient *http.Client
	webhookURL string
	channel    string
}

// NewSlackSender creates a SlackSender. Returns an error if the URL is invalid.
func NewSlackSender(cfg SlackConfig) (*SlackSender, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("slack webhook URL is required")
	}

	u, err := url.Parse(cfg.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid slack webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("slack webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("slack webhook URL must include a host")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSlackTimeout
	}

	return &SlackSender{
		httpClient: &http.Client{Timeout: timeout},
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
	}, nil
}

// Send posts {channel, text} where text is the subject followed by the body.
func (s *SlackSender) Send(ctx context.Context, event *events.DigestEvent) error {
	ctx, span := tracer.Start(ctx, "dispatch.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.target", string(config.TargetSlack)),
		attribute.String("alarm.name", event.AlarmName),
		attribute.String("slack.channel", s.channel),
	)

	body, err := json.Marshal(SlackPayload{
		Channel: s.channel,
		Text:    digest.Digest{Subject: event.Subject, Body: event.Body}.Text(),
	})
	if err != nil {
		return fmt.Errorf("%w: cannot marshal slack payload: %w", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: cannot create request: %w", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// *url.Error embeds the full webhook URL; keep only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: cannot reach %s: %w", ErrDelivery, RedactURL(s.webhookURL), err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		err := fmt.Errorf("%w: slack webhook returned %d %s: %s",
			ErrDelivery, resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(reason)))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
