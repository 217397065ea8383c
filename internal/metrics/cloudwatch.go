package metrics

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric and dimension names published to CloudWatch.
const (
	MetricEvaluation      = "AdvisorEvaluation"
	MetricRecommendations = "RecommendationsProduced"
	MetricAlertsCreated   = "AlertsCreated"
	MetricCycleError      = "EvaluationError"

	DimFarm   = "FarmID"
	DimOrigin = "Origin"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchCollector implements Collector by emitting metrics to AWS
// CloudWatch. Publish failures are logged and dropped; metrics are never
// allowed to fail an evaluation cycle.
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// Compile-time assertion that CloudWatchCollector implements Collector.
var _ Collector = (*CloudWatchCollector)(nil)

// NewCloudWatchCollector creates a collector publishing to the given
// namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchCollector{client: client, namespace: namespace, logger: logger}
}

// RecordEvaluation emits the evaluation count and the recommendations
// produced for one farm.
func (c *CloudWatchCollector) RecordEvaluation(ctx context.Context, farmID string, recommendations int) {
	c.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricEvaluation),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: farmDim(farmID),
		},
		{
			MetricName: aws.String(MetricRecommendations),
			Value:      aws.Float64(float64(recommendations)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: farmDim(farmID),
		},
	})
}

// RecordAlertsCreated emits the alert count for one origin.
func (c *CloudWatchCollector) RecordAlertsCreated(ctx context.Context, origin string, count int) {
	if count == 0 {
		return
	}
	c.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricAlertsCreated),
			Value:      aws.Float64(float64(count)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(DimOrigin), Value: aws.String(origin)},
			},
		},
	})
}

// RecordCycleError emits one evaluation failure.
func (c *CloudWatchCollector) RecordCycleError(ctx context.Context, farmID string) {
	c.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricCycleError),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: farmDim(farmID),
		},
	})
}

func (c *CloudWatchCollector) put(ctx context.Context, data []cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: data,
	}
	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		c.logger.Error("failed to publish metrics", "error", err.Error())
	}
}

func farmDim(farmID string) []cwtypes.Dimension {
	return []cwtypes.Dimension{
		{Name: aws.String(DimFarm), Value: aws.String(farmID)},
	}
}
