// Package analyzer turns raw telemetry series into utilization windows and
// per-metric scaling votes.
package analyzer

import (
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

type Config struct {
	Bucket            models.TimeBucket
	EvaluationPeriods int
	LowerThreshold    int64
	UpperThreshold    int64
}

type Analyzer struct {
	config Config
}

func New(cfg Config) *Analyzer {
	if cfg.Bucket == "" {
		cfg.Bucket = models.BucketPT5M
	}
	if cfg.EvaluationPeriods == 0 {
		cfg.EvaluationPeriods = 2
	}
	return &Analyzer{config: cfg}
}

func (a *Analyzer) Config() Config {
	return a.config
}

// Analyze sorts a metric's samples, keeps the trailing evaluation window and
// votes on it. Errors converting any sample make the metric neutral.
func (a *Analyzer) Analyze(clusterID string, kind models.MetricKind, capacity int, samples []models.MetricSample) models.MetricEvaluation {
	eval := models.MetricEvaluation{
		Metric:  kind,
		Outcome: models.OutcomeEvaluated,
		Verdict: models.VerdictNeutral,
	}

	recent := Window(SortSamples(samples), a.config.EvaluationPeriods)
	window := make([]models.UtilizationPoint, 0, len(recent))
	for _, s := range recent {
		pct, err := Utilization(kind, capacity, s.Value, a.config.Bucket)
		if err != nil {
			logger.WithCluster(clusterID).Warnf("Cannot evaluate %s: %v", kind, err)
			eval.Outcome = models.OutcomeFailed
			eval.Error = err.Error()
			return eval
		}
		window = append(window, models.UtilizationPoint{Timestamp: s.Timestamp, Percent: pct})
	}

	eval.Window = window
	eval.Verdict = Verdict(window, a.config.LowerThreshold, a.config.UpperThreshold)

	logger.WithCluster(clusterID).Debugf(
		"Analyzed: metric=%s points=%d window=%v verdict=%s",
		kind, len(samples), percents(window), eval.Verdict,
	)

	return eval
}

func percents(window []models.UtilizationPoint) []int64 {
	out := make([]int64, len(window))
	for i, p := range window {
		out[i] = p.Percent
	}
	return out
}
