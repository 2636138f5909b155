// Package limits holds the per-CKU capacity ceilings for broker metrics and
// converts them to totals for a telemetry aggregation bucket.
package limits

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var (
	ErrUnsupportedMetric = errors.New("unsupported metric")
	ErrUnsupportedBucket = errors.New("unsupported time bucket")
)

const (
	ReceivedBytesPerSecond   int64 = 50 * 1024 * 1024
	SentBytesPerSecond       int64 = 150 * 1024 * 1024
	RequestsPerSecond        int64 = 15000
	ActiveConnectionsCeiling int64 = 9000
)

type ceiling struct {
	perSecond    int64
	fixedPercent bool
}

var ceilings = map[models.MetricKind]ceiling{
	models.MetricReceivedBytes:   {perSecond: ReceivedBytesPerSecond},
	models.MetricSentBytes:       {perSecond: SentBytesPerSecond},
	models.MetricRequestCount:    {perSecond: RequestsPerSecond},
	models.MetricConnectionCount: {perSecond: ActiveConnectionsCeiling},
	models.MetricClusterLoad:     {fixedPercent: true},
}

var bucketSeconds = map[models.TimeBucket]int64{
	models.BucketPT1M:  60,
	models.BucketPT5M:  300,
	models.BucketPT15M: 900,
	models.BucketPT30M: 1800,
	models.BucketPT1H:  3600,
	models.BucketPT4H:  14400,
	models.BucketPT6H:  21600,
	models.BucketPT12H: 43200,
	models.BucketP1D:   86400,
}

// Kinds lists every supported metric in a stable order.
func Kinds() []models.MetricKind {
	return []models.MetricKind{
		models.MetricReceivedBytes,
		models.MetricSentBytes,
		models.MetricRequestCount,
		models.MetricConnectionCount,
		models.MetricClusterLoad,
	}
}

// Buckets lists every supported aggregation bucket, shortest first.
func Buckets() []models.TimeBucket {
	return []models.TimeBucket{
		models.BucketPT1M, models.BucketPT5M, models.BucketPT15M,
		models.BucketPT30M, models.BucketPT1H, models.BucketPT4H,
		models.BucketPT6H, models.BucketPT12H, models.BucketP1D,
	}
}

func lookup(kind models.MetricKind) (ceiling, error) {
	c, ok := ceilings[kind]
	if !ok {
		return ceiling{}, fmt.Errorf("%w: %q", ErrUnsupportedMetric, kind)
	}
	return c, nil
}

// IsFixedPercentage reports whether the metric is already a 0..1 utilization
// fraction that needs no ceiling.
func IsFixedPercentage(kind models.MetricKind) (bool, error) {
	c, err := lookup(kind)
	if err != nil {
		return false, err
	}
	return c.fixedPercent, nil
}

// PerSecondCeiling returns the per-CKU, per-second limit for a metric.
func PerSecondCeiling(kind models.MetricKind) (int64, error) {
	c, err := lookup(kind)
	if err != nil {
		return 0, err
	}
	if c.fixedPercent {
		return 0, fmt.Errorf("%w: %s is reported as a percentage", ErrUnsupportedMetric, kind)
	}
	return c.perSecond, nil
}

// BucketSeconds returns the length of a bucket in seconds.
func BucketSeconds(bucket models.TimeBucket) (int64, error) {
	s, ok := bucketSeconds[bucket]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedBucket, bucket)
	}
	return s, nil
}

// EffectiveCeiling is the per-CKU limit accumulated over one bucket.
func EffectiveCeiling(kind models.MetricKind, bucket models.TimeBucket) (int64, error) {
	perSecond, err := PerSecondCeiling(kind)
	if err != nil {
		return 0, err
	}
	seconds, err := BucketSeconds(bucket)
	if err != nil {
		return 0, err
	}
	return perSecond * seconds, nil
}

func ParseMetricKind(s string) (models.MetricKind, error) {
	kind := models.MetricKind(strings.ToLower(strings.TrimSpace(s)))
	if _, err := lookup(kind); err != nil {
		return "", err
	}
	return kind, nil
}

// ParseMetricKinds parses a metric list, dropping duplicates but keeping order.
func ParseMetricKinds(names []string) ([]models.MetricKind, error) {
	seen := make(map[models.MetricKind]bool, len(names))
	kinds := make([]models.MetricKind, 0, len(names))
	for _, name := range names {
		kind, err := ParseMetricKind(name)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func ParseTimeBucket(s string) (models.TimeBucket, error) {
	bucket := models.TimeBucket(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := BucketSeconds(bucket); err != nil {
		return "", err
	}
	return bucket, nil
}
