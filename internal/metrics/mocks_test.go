package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/mock"
)

// CloudWatchAPIMock is a mock implementation of the CloudWatchAPI interface.
type CloudWatchAPIMock struct {
	mock.Mock
}

func (m *CloudWatchAPIMock) GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudwatch.GetMetricDataOutput), args.Error(1)
}
