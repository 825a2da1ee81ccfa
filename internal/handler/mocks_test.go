package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/events"
)

type EnricherMock struct {
	mock.Mock
}

func (m *EnricherMock) Enrich(ctx context.Context, event *alarm.Event) ([]alarm.Finding, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]alarm.Finding), args.Error(1)
}

type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) Send(ctx context.Context, event *events.DigestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
