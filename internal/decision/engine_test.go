package decision

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var allMetrics = []models.MetricKind{
	models.MetricReceivedBytes,
	models.MetricSentBytes,
	models.MetricRequestCount,
}

func newTestEngine(metrics []models.MetricKind, minCKU, maxCKU int) *Engine {
	return NewEngine(Config{
		Metrics:           metrics,
		Bucket:            models.BucketPT5M,
		EvaluationPeriods: 2,
		LowerThreshold:    40,
		UpperThreshold:    60,
		MinCapacity:       minCKU,
		MaxCapacity:       maxCKU,
	})
}

func steady(cku int) *models.ClusterState {
	return &models.ClusterState{ClusterID: "lkc-test", CurrentCapacity: cku, TargetCapacity: cku}
}

func samples(values ...float64) []models.MetricSample {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.MetricSample, len(values))
	for i, v := range values {
		out[i] = models.MetricSample{Timestamp: base.Add(time.Duration(i) * 5 * time.Minute), Value: v}
	}
	return out
}

// Per-CKU PT5M ceilings: received 15728640000, sent 47185920000, requests 4500000.
func high(kind models.MetricKind, cku int) []models.MetricSample {
	switch kind {
	case models.MetricReceivedBytes:
		return samples(15728640000*0.9*float64(cku), 15728640000*0.95*float64(cku))
	case models.MetricSentBytes:
		return samples(47185920000*0.9*float64(cku), 47185920000*0.95*float64(cku))
	default:
		return samples(4500000*0.9*float64(cku), 4500000*0.95*float64(cku))
	}
}

func low(kind models.MetricKind, cku int) []models.MetricSample {
	switch kind {
	case models.MetricReceivedBytes:
		return samples(15728640000*0.1*float64(cku), 15728640000*0.2*float64(cku))
	case models.MetricSentBytes:
		return samples(47185920000*0.1*float64(cku), 47185920000*0.2*float64(cku))
	default:
		return samples(4500000*0.1*float64(cku), 4500000*0.2*float64(cku))
	}
}

func mid(kind models.MetricKind, cku int) []models.MetricSample {
	switch kind {
	case models.MetricReceivedBytes:
		return samples(15728640000*0.5*float64(cku), 15728640000*0.5*float64(cku))
	case models.MetricSentBytes:
		return samples(47185920000*0.5*float64(cku), 47185920000*0.5*float64(cku))
	default:
		return samples(4500000*0.5*float64(cku), 4500000*0.5*float64(cku))
	}
}

func TestDecide_RequestCountScenario(t *testing.T) {
	engine := newTestEngine([]models.MetricKind{models.MetricRequestCount}, 1, 5)

	decision := engine.Decide(steady(1), map[models.MetricKind][]models.MetricSample{
		models.MetricRequestCount: samples(6000000, 5000000),
	})

	assert.Equal(t, models.ActionExpand, decision.Action)
	assert.Equal(t, 2, decision.TargetCapacity)
	assert.Equal(t, 1, decision.CapacityDelta())
	assert.Equal(t, ReasonExpansionSignal, decision.Reason)
	require.Len(t, decision.Evaluations, 1)
	assert.Equal(t, int64(133), decision.Evaluations[0].Window[0].Percent)
}

func TestDecide_ConnectionCountScenario(t *testing.T) {
	engine := NewEngine(Config{
		Metrics:           []models.MetricKind{models.MetricConnectionCount},
		Bucket:            models.BucketPT1M,
		EvaluationPeriods: 2,
		LowerThreshold:    40,
		UpperThreshold:    60,
		MinCapacity:       1,
		MaxCapacity:       5,
	})

	decision := engine.Decide(steady(2), map[models.MetricKind][]models.MetricSample{
		models.MetricConnectionCount: samples(50000, 60000),
	})

	assert.Equal(t, models.ActionShrink, decision.Action)
	assert.Equal(t, 1, decision.TargetCapacity)
	assert.Equal(t, ReasonUnanimousShrink, decision.Reason)
}

func TestDecide_BusyAlwaysNone(t *testing.T) {
	engine := newTestEngine(allMetrics, 1, 5)
	series := map[models.MetricKind][]models.MetricSample{}
	for _, k := range allMetrics {
		series[k] = high(k, 2)
	}

	for _, state := range []*models.ClusterState{
		{ClusterID: "lkc-test", CurrentCapacity: 2, TargetCapacity: 3},
		{ClusterID: "lkc-test", CurrentCapacity: 3, TargetCapacity: 2},
	} {
		decision := engine.Decide(state, series)
		assert.Equal(t, models.ActionNone, decision.Action)
		assert.True(t, decision.Busy)
		assert.False(t, decision.ShouldExecute())
		assert.Equal(t, ReasonResizeInProgress, decision.Reason)
		assert.Empty(t, decision.Evaluations)
	}
}

func TestDecide_Consensus(t *testing.T) {
	tests := []struct {
		name           string
		cku            int
		verdicts       map[models.MetricKind]string
		expectedAction models.ScalingAction
		expectedTarget int
		expectedReason string
	}{
		{
			name:           "single expand among neutrals",
			cku:            2,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "mid", models.MetricSentBytes: "high", models.MetricRequestCount: "mid"},
			expectedAction: models.ActionExpand,
			expectedTarget: 3,
			expectedReason: ReasonExpansionSignal,
		},
		{
			name:           "expand wins over shrinks",
			cku:            2,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "low", models.MetricSentBytes: "low", models.MetricRequestCount: "high"},
			expectedAction: models.ActionExpand,
			expectedTarget: 3,
			expectedReason: ReasonExpansionSignal,
		},
		{
			name:           "expand blocked at max",
			cku:            5,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "mid", models.MetricSentBytes: "high", models.MetricRequestCount: "mid"},
			expectedAction: models.ActionNone,
			expectedTarget: 5,
			expectedReason: ReasonAtMaxCapacity,
		},
		{
			name:           "unanimous shrink",
			cku:            3,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "low", models.MetricSentBytes: "low", models.MetricRequestCount: "low"},
			expectedAction: models.ActionShrink,
			expectedTarget: 2,
			expectedReason: ReasonUnanimousShrink,
		},
		{
			name:           "one neutral blocks shrink",
			cku:            3,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "low", models.MetricSentBytes: "mid", models.MetricRequestCount: "low"},
			expectedAction: models.ActionNone,
			expectedTarget: 3,
			expectedReason: ReasonNoConsensus,
		},
		{
			name:           "shrink blocked at min",
			cku:            1,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "low", models.MetricSentBytes: "low", models.MetricRequestCount: "low"},
			expectedAction: models.ActionNone,
			expectedTarget: 1,
			expectedReason: ReasonAtMinCapacity,
		},
		{
			name:           "all neutral",
			cku:            2,
			verdicts:       map[models.MetricKind]string{models.MetricReceivedBytes: "mid", models.MetricSentBytes: "mid", models.MetricRequestCount: "mid"},
			expectedAction: models.ActionNone,
			expectedTarget: 2,
			expectedReason: ReasonNoConsensus,
		},
	}

	engine := newTestEngine(allMetrics, 1, 5)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make(map[models.MetricKind][]models.MetricSample)
			for kind, level := range tt.verdicts {
				switch level {
				case "high":
					series[kind] = high(kind, tt.cku)
				case "low":
					series[kind] = low(kind, tt.cku)
				default:
					series[kind] = mid(kind, tt.cku)
				}
			}

			decision := engine.Decide(steady(tt.cku), series)

			assert.Equal(t, tt.expectedAction, decision.Action)
			assert.Equal(t, tt.expectedTarget, decision.TargetCapacity)
			assert.Equal(t, tt.expectedReason, decision.Reason)
			assert.Len(t, decision.Evaluations, len(allMetrics))
		})
	}
}

func TestDecide_MissingMetricIsNeutral(t *testing.T) {
	engine := newTestEngine(allMetrics, 1, 5)

	decision := engine.Decide(steady(3), map[models.MetricKind][]models.MetricSample{
		models.MetricReceivedBytes: low(models.MetricReceivedBytes, 3),
		models.MetricSentBytes:     low(models.MetricSentBytes, 3),
	})

	assert.Equal(t, models.ActionNone, decision.Action)
	require.Len(t, decision.Evaluations, 3)
	assert.Equal(t, models.OutcomeUnavailable, decision.Evaluations[2].Outcome)
	assert.Equal(t, models.VerdictNeutral, decision.Evaluations[2].Verdict)
}

func TestDecide_MissingMetricDoesNotBlockExpansion(t *testing.T) {
	engine := newTestEngine(allMetrics, 1, 5)

	decision := engine.Decide(steady(1), map[models.MetricKind][]models.MetricSample{
		models.MetricRequestCount: high(models.MetricRequestCount, 1),
	})

	assert.Equal(t, models.ActionExpand, decision.Action)
	assert.Equal(t, 2, decision.TargetCapacity)
}

func TestDecide_EmptySeriesNeverSignals(t *testing.T) {
	engine := newTestEngine([]models.MetricKind{models.MetricRequestCount}, 1, 5)

	decision := engine.Decide(steady(3), map[models.MetricKind][]models.MetricSample{
		models.MetricRequestCount: {},
	})

	assert.Equal(t, models.ActionNone, decision.Action)
	assert.Equal(t, models.OutcomeEvaluated, decision.Evaluations[0].Outcome)
}

func TestDecide_ZeroCapacityDegradesToNeutral(t *testing.T) {
	engine := newTestEngine([]models.MetricKind{models.MetricRequestCount}, 0, 5)

	decision := engine.Decide(steady(0), map[models.MetricKind][]models.MetricSample{
		models.MetricRequestCount: samples(1, 2),
	})

	assert.Equal(t, models.ActionNone, decision.Action)
	assert.Equal(t, models.OutcomeFailed, decision.Evaluations[0].Outcome)
}

func TestDecide_Idempotent(t *testing.T) {
	engine := newTestEngine(allMetrics, 1, 5)
	series := map[models.MetricKind][]models.MetricSample{
		models.MetricReceivedBytes: mid(models.MetricReceivedBytes, 2),
		models.MetricSentBytes:     high(models.MetricSentBytes, 2),
		models.MetricRequestCount:  low(models.MetricRequestCount, 2),
	}

	first := engine.Decide(steady(2), series)
	second := engine.Decide(steady(2), series)

	assert.Equal(t, first, second)
}

func TestDecide_StepIsOneUnit(t *testing.T) {
	engine := newTestEngine([]models.MetricKind{models.MetricRequestCount}, 1, 10)

	for cku := 1; cku < 10; cku++ {
		decision := engine.Decide(steady(cku), map[models.MetricKind][]models.MetricSample{
			models.MetricRequestCount: samples(4500000*float64(cku)*5, 4500000*float64(cku)*5),
		})
		assert.Equal(t, cku+1, decision.TargetCapacity)
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	engine := NewEngine(Config{})
	cfg := engine.Config()

	assert.Len(t, cfg.Metrics, 3)
	assert.Equal(t, int64(40), cfg.LowerThreshold)
	assert.Equal(t, int64(60), cfg.UpperThreshold)
	assert.Equal(t, 1, cfg.MinCapacity)
	assert.Equal(t, 1, cfg.MaxCapacity)
	assert.Equal(t, models.BucketPT5M, cfg.Bucket)
	assert.Equal(t, 2, cfg.EvaluationPeriods)
}

func TestDecide_LogsPercentagesAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	engine := newTestEngine([]models.MetricKind{models.MetricRequestCount}, 1, 5)
	engine.Decide(steady(1), map[models.MetricKind][]models.MetricSample{
		models.MetricRequestCount: samples(6000000, 5000000),
	})

	var evaluated map[string]interface{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		if entry["msg"] == "Metric evaluated" {
			evaluated = entry
		}
	}

	require.NotNil(t, evaluated)
	assert.Equal(t, "info", evaluated["level"])
	assert.Equal(t, "request_count", evaluated["metric"])
	assert.ElementsMatch(t, []interface{}{133.0, 111.0}, evaluated["percents"])
}

func TestDecide_ShrinkStepsTowardLoweredMax(t *testing.T) {
	engine := newTestEngine(allMetrics, 1, 4)

	series := map[models.MetricKind][]models.MetricSample{}
	for _, kind := range allMetrics {
		series[kind] = low(kind, 6)
	}
	decision := engine.Decide(steady(6), series)

	assert.Equal(t, models.ActionShrink, decision.Action)
	assert.Equal(t, 5, decision.TargetCapacity)
	assert.Equal(t, ReasonUnanimousShrink, decision.Reason)
}
