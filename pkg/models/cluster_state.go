package models

import "time"

// ClusterState is the provider's view of a cluster's provisioned capacity.
// CurrentCapacity is what is running now; TargetCapacity is what the
// provider is converging towards.
type ClusterState struct {
	ClusterID       string    `json:"cluster_id"`
	CurrentCapacity int       `json:"current_cku"`
	TargetCapacity  int       `json:"target_cku"`
	Phase           string    `json:"phase,omitempty"`
	ObservedAt      time.Time `json:"observed_at"`
}

func (cs *ClusterState) CanExpand(maxCapacity int) bool {
	return cs.CurrentCapacity < maxCapacity
}

func (cs *ClusterState) CanShrink(minCapacity int) bool {
	return cs.CurrentCapacity > minCapacity
}

func (cs *ClusterState) PendingDelta() int {
	return cs.TargetCapacity - cs.CurrentCapacity
}
