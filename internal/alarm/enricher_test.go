package alarm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var stateChange = time.Date(2024, 5, 1, 3, 4, 5, 0, time.UTC)

func testOptions() Options {
	return Options{
		ResourcePrefix: "cbr_dev_",
		Lookback:       10 * time.Minute,
		Period:         5 * time.Minute,
		Concurrency:    3,
		FetchTimeout:   time.Second,
		ListTimeout:    time.Second,
	}
}

func setupEnricher(t *testing.T, opts Options) (*ResourceListerMock, *MetricFetcherMock, *Enricher) {
	t.Helper()

	lister := new(ResourceListerMock)
	fetcher := new(MetricFetcherMock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return lister, fetcher, NewEnricher(lister, fetcher, opts, logger)
}

func newEvent() *Event {
	return &Event{
		AlarmName:       "lambda-errors",
		NewStateValue:   "ALARM",
		StateChangeTime: "2024-05-01T03:04:05.123+0000",
		Trigger: Trigger{
			MetricName: "Errors",
			Namespace:  "AWS/Lambda",
		},
	}
}

func forResource(id string) any {
	return mock.MatchedBy(func(q MetricQuery) bool { return q.ResourceID == id })
}

func sortByID(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool { return findings[i].ResourceID < findings[j].ResourceID })
}

func TestEnrich_CollectsPrefixedFindings(t *testing.T) {
	lister, fetcher, enricher := setupEnricher(t, testOptions())

	lister.On("List", mock.Anything).
		Return([]string{"cbr_dev_y", "other_z", "cbr_dev_x"}, nil).Once()

	fetcher.On("Fetch", mock.Anything, forResource("cbr_dev_x")).Return([]DataPoint{
		{Timestamp: stateChange.Add(-2 * time.Minute), Sum: 3},
	}, nil).Once()
	fetcher.On("Fetch", mock.Anything, forResource("cbr_dev_y")).Return([]DataPoint{
		{Timestamp: stateChange.Add(-3 * time.Minute), Sum: 0},
		{Timestamp: stateChange.Add(-8 * time.Minute), Sum: 1},
	}, nil).Once()

	findings, err := enricher.Enrich(context.Background(), newEvent())
	require.NoError(t, err)
	require.Len(t, findings, 2)

	sortByID(findings)
	assert.Equal(t, "cbr_dev_x", findings[0].ResourceID)
	assert.Equal(t, 3.0, findings[0].ErrorPoints[0].Sum)
	assert.Equal(t, "cbr_dev_y", findings[1].ResourceID)
	require.Len(t, findings[1].ErrorPoints, 1)
	assert.Equal(t, 1.0, findings[1].ErrorPoints[0].Sum)

	lister.AssertExpectations(t)
	fetcher.AssertExpectations(t)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, forResource("other_z"))
}

func TestEnrich_QueryCarriesWindowAndTrigger(t *testing.T) {
	lister, fetcher, enricher := setupEnricher(t, testOptions())

	lister.On("List", mock.Anything).Return([]string{"cbr_dev_x"}, nil).Once()

	want := MetricQuery{
		Namespace:  "AWS/Lambda",
		MetricName: "Errors",
		ResourceID: "cbr_dev_x",
		Window: TimeWindow{
			From: stateChange.Add(-10 * time.Minute),
			To:   stateChange.Add(time.Minute),
		},
		Period: 5 * time.Minute,
	}
	fetcher.On("Fetch", mock.Anything, want).Return([]DataPoint{}, nil).Once()

	findings, err := enricher.Enrich(context.Background(), newEvent())
	require.NoError(t, err)
	assert.Empty(t, findings)
	fetcher.AssertExpectations(t)
}

func TestEnrich_SkipsFailedFetch(t *testing.T) {
	lister, fetcher, enricher := setupEnricher(t, testOptions())

	lister.On("List", mock.Anything).
		Return([]string{"cbr_dev_a", "cbr_dev_b", "cbr_dev_c"}, nil).Once()

	fetcher.On("Fetch", mock.Anything, forResource("cbr_dev_a")).Return([]DataPoint{
		{Timestamp: stateChange, Sum: 2},
	}, nil).Once()
	fetcher.On("Fetch", mock.Anything, forResource("cbr_dev_b")).
		Return(nil, errors.New("throttling")).Once()
	fetcher.On("Fetch", mock.Anything, forResource("cbr_dev_c")).Return([]DataPoint{
		{Timestamp: stateChange.Add(-time.Minute), Sum: 5},
	}, nil).Once()

	findings, err := enricher.Enrich(context.Background(), newEvent())
	require.NoError(t, err)
	require.Len(t, findings, 2)

	sortByID(findings)
	assert.Equal(t, "cbr_dev_a", findings[0].ResourceID)
	assert.Equal(t, "cbr_dev_c", findings[1].ResourceID)
	fetcher.AssertExpectations(t)
}

func TestEnrich_DiscoveryErrorAborts(t *testing.T) {
	lister, fetcher, enricher := setupEnricher(t, testOptions())
	expectedError := errors.New("list functions failed")

	lister.On("List", mock.Anything).Return(nil, expectedError).Once()

	_, err := enricher.Enrich(context.Background(), newEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiscovery)
	assert.ErrorIs(t, err, expectedError)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestEnrich_MalformedStateChangeTime(t *testing.T) {
	lister, fetcher, enricher := setupEnricher(t, testOptions())

	event := newEvent()
	event.StateChangeTime = "yesterday"

	_, err := enricher.Enrich(context.Background(), event)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	lister.AssertNotCalled(t, "List", mock.Anything)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestEnrich_NoMatchingResources(t *testing.T) {
	lister, fetcher, enricher := setupEnricher(t, testOptions())

	lister.On("List", mock.Anything).Return([]string{"other_a", "other_b"}, nil).Once()

	findings, err := enricher.Enrich(context.Background(), newEvent())
	require.NoError(t, err)
	assert.Empty(t, findings)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

type fetchFunc func(ctx context.Context, q MetricQuery) ([]DataPoint, error)

func (f fetchFunc) Fetch(ctx context.Context, q MetricQuery) ([]DataPoint, error) {
	return f(ctx, q)
}

func TestEnrich_TimedOutFetchIsSkipped(t *testing.T) {
	lister := new(ResourceListerMock)
	lister.On("List", mock.Anything).Return([]string{"cbr_dev_slow", "cbr_dev_fast"}, nil).Once()

	fetcher := fetchFunc(func(ctx context.Context, q MetricQuery) ([]DataPoint, error) {
		if q.ResourceID == "cbr_dev_slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []DataPoint{{Timestamp: stateChange, Sum: 1}}, nil
	})

	opts := testOptions()
	opts.FetchTimeout = 20 * time.Millisecond
	enricher := NewEnricher(lister, fetcher, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))

	findings, err := enricher.Enrich(context.Background(), newEvent())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "cbr_dev_fast", findings[0].ResourceID)
}

func TestEnrich_ConcurrencyIsBounded(t *testing.T) {
	ids := []string{"cbr_dev_1", "cbr_dev_2", "cbr_dev_3", "cbr_dev_4", "cbr_dev_5", "cbr_dev_6", "cbr_dev_7"}

	lister := new(ResourceListerMock)
	lister.On("List", mock.Anything).Return(ids, nil).Once()

	var inFlight, peak atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, q MetricQuery) ([]DataPoint, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return []DataPoint{{Timestamp: stateChange, Sum: 1}}, nil
	})

	opts := testOptions()
	opts.Concurrency = 2
	enricher := NewEnricher(lister, fetcher, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))

	findings, err := enricher.Enrich(context.Background(), newEvent())
	require.NoError(t, err)
	assert.Len(t, findings, len(ids))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFilterPrefix(t *testing.T) {
	got := FilterPrefix([]string{"cbr_dev_x", "other_z", "cbr_dev_y", "cbr_prd_x"}, "cbr_dev_")
	assert.Equal(t, []string{"cbr_dev_x", "cbr_dev_y"}, got)

	assert.Empty(t, FilterPrefix(nil, "cbr_dev_"))
}
