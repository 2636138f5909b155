package models

import "time"

// MetricKind names a broker telemetry series the autoscaler can evaluate.
type MetricKind string

const (
	MetricReceivedBytes   MetricKind = "received_bytes"
	MetricSentBytes       MetricKind = "sent_bytes"
	MetricRequestCount    MetricKind = "request_count"
	MetricConnectionCount MetricKind = "active_connection_count"
	MetricClusterLoad     MetricKind = "cluster_load_percent"
)

const telemetryMetricPrefix = "io.confluent.kafka.server/"

// TelemetryName is the fully qualified name used by the metrics API.
func (k MetricKind) TelemetryName() string {
	return telemetryMetricPrefix + string(k)
}

// TimeBucket is an ISO-8601 aggregation period for telemetry samples.
type TimeBucket string

const (
	BucketPT1M  TimeBucket = "PT1M"
	BucketPT5M  TimeBucket = "PT5M"
	BucketPT15M TimeBucket = "PT15M"
	BucketPT30M TimeBucket = "PT30M"
	BucketPT1H  TimeBucket = "PT1H"
	BucketPT4H  TimeBucket = "PT4H"
	BucketPT6H  TimeBucket = "PT6H"
	BucketPT12H TimeBucket = "PT12H"
	BucketP1D   TimeBucket = "P1D"
)

// MetricSample is one aggregated telemetry reading.
type MetricSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// UtilizationPoint is a sample expressed as a percentage of provisioned capacity.
type UtilizationPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Percent   int64     `json:"percent"`
}
