package models

import "time"

type ResizeStatus string

const (
	ResizeRequested ResizeStatus = "requested"
	ResizeSkipped   ResizeStatus = "dry_run"
	ResizeFailed    ResizeStatus = "failed"
	ResizeComplete  ResizeStatus = "complete"
)

// ResizeRecord describes a resize request issued for a decision.
type ResizeRecord struct {
	ClusterID      string        `json:"cluster_id"`
	Timestamp      time.Time     `json:"timestamp"`
	Action         ScalingAction `json:"action"`
	CapacityBefore int           `json:"cku_before"`
	CapacityAfter  int           `json:"cku_after"`
	Reason         string        `json:"reason"`
	Status         ResizeStatus  `json:"status"`
	Error          string        `json:"error,omitempty"`
}

func NewResizeRecord(decision *ScalingDecision, status ResizeStatus) *ResizeRecord {
	return &ResizeRecord{
		ClusterID:      decision.ClusterID,
		Timestamp:      decision.Timestamp,
		Action:         decision.Action,
		CapacityBefore: decision.CurrentCapacity,
		CapacityAfter:  decision.TargetCapacity,
		Reason:         decision.Reason,
		Status:         status,
	}
}
