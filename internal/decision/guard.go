package decision

import "github.com/OldStager01/cku-autoscaler/pkg/models"

type ResizePhase string

const (
	PhaseSteady    ResizePhase = "steady"
	PhaseExpanding ResizePhase = "expanding"
	PhaseShrinking ResizePhase = "shrinking"
)

// PhaseOf reports which way a cluster is converging, if at all.
func PhaseOf(state *models.ClusterState) ResizePhase {
	switch {
	case state.CurrentCapacity < state.TargetCapacity:
		return PhaseExpanding
	case state.CurrentCapacity > state.TargetCapacity:
		return PhaseShrinking
	default:
		return PhaseSteady
	}
}

// IsBusy is true while a resize is still being applied.
func IsBusy(state *models.ClusterState) bool {
	return state.CurrentCapacity != state.TargetCapacity
}
