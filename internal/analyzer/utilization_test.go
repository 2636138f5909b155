package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cku-autoscaler/internal/limits"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

func TestUtilization(t *testing.T) {
	tests := []struct {
		name     string
		kind     models.MetricKind
		capacity int
		value    float64
		bucket   models.TimeBucket
		expected int64
	}{
		{"requests over ceiling", models.MetricRequestCount, 1, 5000000, models.BucketPT5M, 111},
		{"requests further over ceiling", models.MetricRequestCount, 1, 6000000, models.BucketPT5M, 133},
		{"connections on two cku", models.MetricConnectionCount, 2, 50000, models.BucketPT1M, 4},
		{"connections truncate", models.MetricConnectionCount, 2, 60000, models.BucketPT1M, 5},
		{"fractional value truncated first", models.MetricRequestCount, 1, 44999.99, models.BucketPT1M, 4},
		{"zero value", models.MetricSentBytes, 3, 0, models.BucketPT1H, 0},
		{"cluster load ignores capacity", models.MetricClusterLoad, 4, 0.734, models.BucketPT1M, 73},
		{"cluster load above one", models.MetricClusterLoad, 1, 1.2, models.BucketP1D, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Utilization(tt.kind, tt.capacity, tt.value, tt.bucket)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUtilization_Errors(t *testing.T) {
	_, err := Utilization(models.MetricRequestCount, 0, 100, models.BucketPT1M)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = Utilization(models.MetricClusterLoad, 0, 0.5, models.BucketPT1M)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = Utilization("bogus", 1, 100, models.BucketPT1M)
	assert.ErrorIs(t, err, limits.ErrUnsupportedMetric)

	_, err = Utilization(models.MetricRequestCount, 1, 100, "PT3M")
	assert.ErrorIs(t, err, limits.ErrUnsupportedBucket)
}

func TestUtilization_FixedPercentageIgnoresBucket(t *testing.T) {
	got, err := Utilization(models.MetricClusterLoad, 1, 0.5, "PT3M")
	require.NoError(t, err)
	assert.Equal(t, int64(50), got)
}

func TestUtilization_Monotonic(t *testing.T) {
	values := []float64{0, 1, 999, 4500000, 9000000, 123456789}

	for _, kind := range []models.MetricKind{models.MetricRequestCount, models.MetricReceivedBytes, models.MetricConnectionCount} {
		for _, v := range values {
			prev := int64(-1)
			for cku := 10; cku >= 1; cku-- {
				got, err := Utilization(kind, cku, v, models.BucketPT5M)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, prev, "%s value=%v cku=%d", kind, v, cku)
				prev = got
			}
		}

		for cku := 1; cku <= 5; cku++ {
			prev := int64(-1)
			for _, v := range values {
				got, err := Utilization(kind, cku, v, models.BucketPT5M)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, prev, "%s value=%v cku=%d", kind, v, cku)
				prev = got
			}
		}
	}
}
