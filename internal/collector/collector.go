// Package collector reads telemetry series for a cluster from the Confluent
// Cloud Metrics API or from in-memory fixtures.
package collector

import (
	"context"
	"errors"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("metric collection failed")
	ErrTimeout          = errors.New("collection timeout")
	ErrClusterNotFound  = errors.New("cluster not found")
	ErrInvalidResponse  = errors.New("invalid response from telemetry API")
	ErrUnauthorized     = errors.New("telemetry API rejected credentials")
)

// SeriesQuery selects one metric series for one cluster.
type SeriesQuery struct {
	ClusterID string
	Kind      models.MetricKind
	Bucket    models.TimeBucket
	// Interval is an ISO-8601 interval, e.g. "now-2h|h/now".
	Interval string
}

// Collector is the metric source consumed by the pipeline.
type Collector interface {
	// ReadSeries returns the samples for a query in whatever order the source
	// reports them. An empty series is not an error.
	ReadSeries(ctx context.Context, q SeriesQuery) ([]models.MetricSample, error)

	// HealthCheck verifies the collector can reach its data source
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the collector
	Close() error
}

// IsRetryable reports whether another attempt at the same query might succeed.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrClusterNotFound) &&
		!errors.Is(err, ErrUnauthorized) &&
		!errors.Is(err, ErrInvalidResponse) &&
		!errors.Is(err, context.Canceled)
}
