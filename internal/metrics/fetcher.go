// Package metrics queries per-function CloudWatch statistics for the digest pipeline.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-error-digest/internal/alarm"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-error-digest/internal/metrics")

const (
	// FunctionNameDimension is the dimension Lambda metrics are published under.
	FunctionNameDimension = "FunctionName"

	queryID = "m0"
)

// CloudWatchAPI defines the CloudWatch operations required for metric queries.
type CloudWatchAPI interface {
	GetMetricData(
		ctx context.Context,
		input *cloudwatch.GetMetricDataInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// Fetcher reads the Sum statistic of a function's metric from CloudWatch.
type Fetcher struct {
	cw        CloudWatchAPI
	dimension string
}

// NewFetcher creates a Fetcher that selects resources by the FunctionName dimension.
func NewFetcher(cw CloudWatchAPI) *Fetcher {
	return &Fetcher{
		cw:        cw,
		dimension: FunctionNameDimension,
	}
}

// Fetch returns one data point per period, most recent first. Periods without
// data are absent from the result.
func (f *Fetcher) Fetch(ctx context.Context, q alarm.MetricQuery) ([]alarm.DataPoint, error) {
	ctx, span := tracer.Start(ctx, "metrics.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("metric.namespace", q.Namespace),
		attribute.String("metric.name", q.MetricName),
		attribute.String("resource.id", q.ResourceID),
	)

	period := int32(q.Period / time.Second)
	if period <= 0 {
		return nil, fmt.Errorf("invalid period %s", q.Period)
	}

	paginator := cloudwatch.NewGetMetricDataPaginator(f.cw, &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(q.Window.From),
		EndTime:   aws.Time(q.Window.To),
		ScanBy:    types.ScanByTimestampDescending,
		MetricDataQueries: []types.MetricDataQuery{{
			Id: aws.String(queryID),
			MetricStat: &types.MetricStat{
				Metric: &types.Metric{
					Namespace:  aws.String(q.Namespace),
					MetricName: aws.String(q.MetricName),
					Dimensions: []types.Dimension{{
						Name:  aws.String(f.dimension),
						Value: aws.String(q.ResourceID),
					}},
				},
				Period: aws.Int32(period),
				Stat:   aws.String(string(types.StatisticSum)),
			},
			ReturnData: aws.Bool(true),
		}},
	})

	var points []alarm.DataPoint

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot get metric data for %q: %w", q.ResourceID, err)
		}

		for _, result := range page.MetricDataResults {
			if aws.ToString(result.Id) != queryID {
				continue
			}

			if len(result.Values) != len(result.Timestamps) {
				return nil, fmt.Errorf("metric data for %q has %d values but %d timestamps",
					q.ResourceID, len(result.Values), len(result.Timestamps))
			}

			for i, v := range result.Values {
				points = append(points, alarm.DataPoint{
					Timestamp: result.Timestamps[i],
					Sum:       v,
				})
			}
		}
	}

	span.SetAttributes(attribute.Int("datapoints.count", len(points)))

	return points, nil
}
