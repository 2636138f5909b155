package models

import "time"

type ClusterStatus string

const (
	ClusterStatusActive ClusterStatus = "active"
	ClusterStatusPaused ClusterStatus = "paused"
	ClusterStatusError  ClusterStatus = "error"
)

// Cluster identifies a managed Kafka cluster under autoscaling.
type Cluster struct {
	ID          string        `json:"id"`
	Environment string        `json:"environment"`
	Status      ClusterStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
}

func NewCluster(id, environment string) *Cluster {
	return &Cluster{
		ID:          id,
		Environment: environment,
		Status:      ClusterStatusActive,
		StartedAt:   time.Now(),
	}
}

func (c *Cluster) IsActive() bool {
	return c.Status == ClusterStatusActive
}

// ClusterSnapshot is the last known view of a running cluster pipeline.
type ClusterSnapshot struct {
	Cluster
	State        *ClusterState    `json:"state,omitempty"`
	LastDecision *ScalingDecision `json:"last_decision,omitempty"`
	LastCycleAt  *time.Time       `json:"last_cycle_at,omitempty"`
	LastError    string           `json:"last_error,omitempty"`
	Cycles       int64            `json:"cycles"`
	DryRun       bool             `json:"dry_run"`
}
