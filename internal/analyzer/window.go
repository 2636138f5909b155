package analyzer

import (
	"sort"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

// SortSamples returns a copy of samples ordered by timestamp, oldest first.
// Samples sharing a timestamp keep their input order.
func SortSamples(samples []models.MetricSample) []models.MetricSample {
	sorted := make([]models.MetricSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// Window returns the most recent periods items of an ordered slice. A short
// slice is returned whole.
func Window[T any](items []T, periods int) []T {
	if periods <= 0 {
		return nil
	}
	if len(items) <= periods {
		return items
	}
	return items[len(items)-periods:]
}

// Verdict votes expand when every point is above upper and shrink when every
// point is below lower. An empty window is neutral.
func Verdict(window []models.UtilizationPoint, lower, upper int64) models.ScalingVerdict {
	if len(window) == 0 {
		return models.VerdictNeutral
	}

	allAbove, allBelow := true, true
	for _, p := range window {
		if p.Percent <= upper {
			allAbove = false
		}
		if p.Percent >= lower {
			allBelow = false
		}
	}

	switch {
	case allAbove:
		return models.VerdictExpand
	case allBelow:
		return models.VerdictShrink
	default:
		return models.VerdictNeutral
	}
}
