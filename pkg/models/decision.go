package models

import "time"

type ScalingAction string

const (
	ActionExpand ScalingAction = "EXPAND"
	ActionShrink ScalingAction = "SHRINK"
	ActionNone   ScalingAction = "NONE"
)

// ScalingVerdict is the per-metric vote produced from a utilization window.
type ScalingVerdict string

const (
	VerdictExpand  ScalingVerdict = "expand"
	VerdictShrink  ScalingVerdict = "shrink"
	VerdictNeutral ScalingVerdict = "neutral"
)

type EvaluationOutcome string

const (
	OutcomeEvaluated   EvaluationOutcome = "evaluated"
	OutcomeUnavailable EvaluationOutcome = "unavailable"
	OutcomeFailed      EvaluationOutcome = "failed"
)

// MetricEvaluation records how one metric voted in a decision.
type MetricEvaluation struct {
	Metric  MetricKind         `json:"metric"`
	Outcome EvaluationOutcome  `json:"outcome"`
	Verdict ScalingVerdict     `json:"verdict"`
	Window  []UtilizationPoint `json:"window,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// ScalingDecision represents a decision made by the decision engine
type ScalingDecision struct {
	ClusterID       string             `json:"cluster_id"`
	Timestamp       time.Time          `json:"timestamp"`
	Action          ScalingAction      `json:"action"`
	CurrentCapacity int                `json:"current_cku"`
	TargetCapacity  int                `json:"target_cku"`
	Reason          string             `json:"reason"`
	Busy            bool               `json:"busy"`
	Evaluations     []MetricEvaluation `json:"evaluations,omitempty"`
}

func (d *ScalingDecision) CapacityDelta() int {
	return d.TargetCapacity - d.CurrentCapacity
}

func (d *ScalingDecision) ShouldExecute() bool {
	return d.Action != ActionNone && !d.Busy
}

// Votes counts evaluations per verdict.
func (d *ScalingDecision) Votes() map[ScalingVerdict]int {
	votes := make(map[ScalingVerdict]int, 3)
	for _, e := range d.Evaluations {
		votes[e.Verdict]++
	}
	return votes
}
