package alarm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// ResourceListerMock is a mock implementation of the ResourceLister interface.
type ResourceListerMock struct {
	mock.Mock
}

func (m *ResourceListerMock) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MetricFetcherMock is a mock implementation of the MetricFetcher interface.
type MetricFetcherMock struct {
	mock.Mock
}

func (m *MetricFetcherMock) Fetch(ctx context.Context, query MetricQuery) ([]DataPoint, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DataPoint), args.Error(1)
}
