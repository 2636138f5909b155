package decision

import (
	"github.com/OldStager01/cku-autoscaler/internal/analyzer"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const (
	ReasonResizeInProgress = "resize_in_progress"
	ReasonExpansionSignal  = "expansion_signal"
	ReasonUnanimousShrink  = "unanimous_shrink_signal"
	ReasonAtMaxCapacity    = "at_max_capacity"
	ReasonAtMinCapacity    = "at_min_capacity"
	ReasonNoConsensus      = "no_consensus"
)

type Config struct {
	Metrics           []models.MetricKind
	Bucket            models.TimeBucket
	EvaluationPeriods int
	LowerThreshold    int64
	UpperThreshold    int64
	MinCapacity       int
	MaxCapacity       int
}

// Engine holds no per-cluster state; Decide is a pure function of its inputs.
type Engine struct {
	config   Config
	analyzer *analyzer.Analyzer
}

func NewEngine(cfg Config) *Engine {
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = []models.MetricKind{
			models.MetricReceivedBytes,
			models.MetricSentBytes,
			models.MetricRequestCount,
		}
	}
	if cfg.LowerThreshold == 0 && cfg.UpperThreshold == 0 {
		cfg.LowerThreshold = 40
		cfg.UpperThreshold = 60
	}
	if cfg.MinCapacity == 0 {
		cfg.MinCapacity = 1
	}
	if cfg.MaxCapacity == 0 {
		cfg.MaxCapacity = cfg.MinCapacity
	}

	a := analyzer.New(analyzer.Config{
		Bucket:            cfg.Bucket,
		EvaluationPeriods: cfg.EvaluationPeriods,
		LowerThreshold:    cfg.LowerThreshold,
		UpperThreshold:    cfg.UpperThreshold,
	})
	cfg.Bucket = a.Config().Bucket
	cfg.EvaluationPeriods = a.Config().EvaluationPeriods

	return &Engine{config: cfg, analyzer: a}
}

func (e *Engine) Config() Config {
	return e.config
}

// Decide evaluates every configured metric against the cluster's current
// capacity and combines the votes. One expand vote is enough to grow; a
// shrink needs every configured metric to vote shrink. A metric missing from
// series is treated as neutral. The returned decision is not timestamped.
func (e *Engine) Decide(state *models.ClusterState, series map[models.MetricKind][]models.MetricSample) *models.ScalingDecision {
	decision := &models.ScalingDecision{
		ClusterID:       state.ClusterID,
		Action:          models.ActionNone,
		CurrentCapacity: state.CurrentCapacity,
		TargetCapacity:  state.CurrentCapacity,
	}

	if IsBusy(state) {
		decision.Busy = true
		decision.TargetCapacity = state.TargetCapacity
		decision.Reason = ReasonResizeInProgress
		logger.WithCluster(state.ClusterID).Infof(
			"Decision: none, cluster is %s (current=%d target=%d)",
			PhaseOf(state), state.CurrentCapacity, state.TargetCapacity,
		)
		return decision
	}

	expandVotes, shrinkVotes := 0, 0
	decision.Evaluations = make([]models.MetricEvaluation, 0, len(e.config.Metrics))
	for _, kind := range e.config.Metrics {
		eval := e.evaluate(state, kind, series)
		switch eval.Verdict {
		case models.VerdictExpand:
			expandVotes++
		case models.VerdictShrink:
			shrinkVotes++
		}
		decision.Evaluations = append(decision.Evaluations, eval)
	}

	unanimousShrink := len(e.config.Metrics) > 0 && shrinkVotes == len(e.config.Metrics)

	switch {
	case expandVotes > 0 && state.CanExpand(e.config.MaxCapacity):
		decision.Action = models.ActionExpand
		decision.TargetCapacity = state.CurrentCapacity + 1
		decision.Reason = ReasonExpansionSignal
	case unanimousShrink && state.CanShrink(e.config.MinCapacity):
		decision.Action = models.ActionShrink
		decision.TargetCapacity = state.CurrentCapacity - 1
		decision.Reason = ReasonUnanimousShrink
	case expandVotes > 0:
		decision.Reason = ReasonAtMaxCapacity
	case unanimousShrink:
		decision.Reason = ReasonAtMinCapacity
	default:
		decision.Reason = ReasonNoConsensus
	}

	e.logDecision(decision, expandVotes, shrinkVotes)
	return decision
}

func (e *Engine) evaluate(state *models.ClusterState, kind models.MetricKind, series map[models.MetricKind][]models.MetricSample) models.MetricEvaluation {
	samples, ok := series[kind]
	if !ok {
		return models.MetricEvaluation{
			Metric:  kind,
			Outcome: models.OutcomeUnavailable,
			Verdict: models.VerdictNeutral,
		}
	}
	return e.analyzer.Analyze(state.ClusterID, kind, state.CurrentCapacity, samples)
}

func (e *Engine) logDecision(d *models.ScalingDecision, expandVotes, shrinkVotes int) {
	log := logger.WithCluster(d.ClusterID)
	for _, eval := range d.Evaluations {
		percents := make([]int64, len(eval.Window))
		for i, p := range eval.Window {
			percents[i] = p.Percent
		}
		log.WithFields(map[string]interface{}{
			"metric":   eval.Metric,
			"outcome":  eval.Outcome,
			"verdict":  eval.Verdict,
			"percents": percents,
		}).Info("Metric evaluated")
	}

	switch d.Action {
	case models.ActionNone:
		log.Infof("Decision: none %d CKU (reason: %s, expand=%d, shrink=%d of %d)",
			d.CurrentCapacity, d.Reason, expandVotes, shrinkVotes, len(d.Evaluations))
	default:
		log.Infof("Decision: %s %d -> %d CKU (reason: %s, expand=%d, shrink=%d of %d)",
			d.Action, d.CurrentCapacity, d.TargetCapacity, d.Reason, expandVotes, shrinkVotes, len(d.Evaluations))
	}
}
