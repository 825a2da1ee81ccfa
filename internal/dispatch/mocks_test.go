package dispatch

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/mock"
)

type SNSAPIMock struct {
	mock.Mock
}

func (m *SNSAPIMock) Publish(
	ctx context.Context,
	input *sns.PublishInput,
	optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

type EventBridgeAPIMock struct {
	mock.Mock
}

func (m *EventBridgeAPIMock) PutEvents(
	ctx context.Context,
	input *eventbridge.PutEventsInput,
	optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.PutEventsOutput), args.Error(1)
}
