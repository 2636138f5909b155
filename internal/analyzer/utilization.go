package analyzer

import (
	"errors"
	"fmt"

	"github.com/OldStager01/cku-autoscaler/internal/limits"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var ErrInvalidCapacity = errors.New("capacity must be at least one CKU")

// Utilization converts a raw bucket value into an integer percentage of what
// the cluster's provisioned capacity can sustain over that bucket.
//
// Fractional metrics are scaled by 100. Everything else is
// (100 * value) / (ceiling * capacity) with the value truncated to an integer
// first and the quotient truncated toward zero.
func Utilization(kind models.MetricKind, capacity int, value float64, bucket models.TimeBucket) (int64, error) {
	if capacity < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	fixed, err := limits.IsFixedPercentage(kind)
	if err != nil {
		return 0, err
	}
	if fixed {
		return int64(value * 100), nil
	}

	ceiling, err := limits.EffectiveCeiling(kind, bucket)
	if err != nil {
		return 0, err
	}

	return (100 * int64(value)) / (ceiling * int64(capacity)), nil
}
