// Package alarm turns a CloudWatch alarm notification into per-resource error findings.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm")

// ResourceLister returns every candidate resource identifier in the target region.
type ResourceLister interface {
	List(ctx context.Context) ([]string, error)
}

// MetricQuery describes one per-resource Sum query.
type MetricQuery struct {
	Namespace  string
	MetricName string
	ResourceID string
	Window     TimeWindow
	Period     time.Duration
}

// MetricFetcher returns the Sum data points of one resource over a window.
type MetricFetcher interface {
	Fetch(ctx context.Context, query MetricQuery) ([]DataPoint, error)
}

// Options tunes the enrichment pass.
type Options struct {
	ResourcePrefix string
	Lookback       time.Duration
	Period         time.Duration
	Concurrency    int
	RateLimit      rate.Limit
	FetchTimeout   time.Duration
	ListTimeout    time.Duration
}

// Enricher discovers resources and collects their error findings for an alarm.
type Enricher struct {
	lister  ResourceLister
	fetcher MetricFetcher
	opts    Options
	logger  *slog.Logger
}

// NewEnricher creates a new Enricher instance.
func NewEnricher(
	lister ResourceLister,
	fetcher MetricFetcher,
	opts Options,
	logger *slog.Logger,
) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Inf
	}

	return &Enricher{
		lister:  lister,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

// Enrich returns the findings of every prefixed resource that recorded errors in
// the alarm's window. Findings are unordered. A failed listing aborts with
// ErrDiscovery; a failed per-resource fetch is logged and skipped.
func (e *Enricher) Enrich(ctx context.Context, event *Event) ([]Finding, error) {
	ctx, span := tracer.Start(ctx, "alarm.enrich")
	defer span.End()
	span.SetAttributes(
		attribute.String("alarm.name", event.AlarmName),
		attribute.String("alarm.metric", event.Trigger.MetricName),
	)

	window, err := NewTimeWindow(event.StateChangeTime, e.opts.Lookback)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resources, err := e.discover(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("resources.count", len(resources)))

	findings := e.collect(ctx, event, window, resources)

	e.logger.InfoContext(
		ctx,
		"enrichment completed",
		slog.String("alarmName", event.AlarmName),
		slog.Time("windowFrom", window.From),
		slog.Time("windowTo", window.To),
		slog.Int("resources", len(resources)),
		slog.Int("findings", len(findings)),
	)

	return findings, nil
}

func (e *Enricher) discover(ctx context.Context) ([]string, error) {
	listCtx := ctx
	if e.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		listCtx, cancel = context.WithTimeout(ctx, e.opts.ListTimeout)
		defer cancel()
	}

	all, err := e.lister.List(listCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	return FilterPrefix(all, e.opts.ResourcePrefix), nil
}

// collect fetches every resource through a bounded, rate-limited pool.
// Results land in index-addressed slots, so no locking is needed.
func (e *Enricher) collect(ctx context.Context, event *Event, window TimeWindow, resources []string) []Finding {
	if len(resources) == 0 {
		return nil
	}

	limiter := rate.NewLimiter(e.opts.RateLimit, 1)
	slots := make([][]DataPoint, len(resources))

	var g errgroup.Group
	g.SetLimit(min(len(resources), e.opts.Concurrency))

	for i, id := range resources {
		g.Go(func() error {
			points, err := e.fetch(ctx, limiter, MetricQuery{
				Namespace:  event.Trigger.Namespace,
				MetricName: event.Trigger.MetricName,
				ResourceID: id,
				Window:     window,
				Period:     e.opts.Period,
			})
			if err != nil {
				e.logger.WarnContext(
					ctx,
					"skipping resource",
					slog.String("resourceId", id),
					slog.String("error", err.Error()),
				)
				return nil
			}

			slots[i] = ExtractErrors(points)
			return nil
		})
	}

	_ = g.Wait()

	var findings []Finding
	for i, points := range slots {
		if len(points) == 0 {
			continue
		}
		findings = append(findings, Finding{ResourceID: resources[i], ErrorPoints: points})
	}

	return findings
}

func (e *Enricher) fetch(ctx context.Context, limiter *rate.Limiter, query MetricQuery) ([]DataPoint, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: resource %q: %w", ErrMetricFetch, query.ResourceID, err)
	}

	fetchCtx := ctx
	if e.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.opts.FetchTimeout)
		defer cancel()
	}

	points, err := e.fetcher.Fetch(fetchCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: resource %q timed out after %s: %w",
				ErrMetricFetch, query.ResourceID, e.opts.FetchTimeout, err)
		}
		return nil, fmt.Errorf("%w: resource %q: %w", ErrMetricFetch, query.ResourceID, err)
	}

	return points, nil
}

// FilterPrefix keeps the identifiers that start with prefix, preserving order.
func FilterPrefix(ids []string, prefix string) []string {
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			kept = append(kept, id)
		}
	}
	return kept
}
