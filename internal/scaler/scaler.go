// Package scaler reads provisioned capacity from the Confluent Cloud cluster
// API and issues CKU resize requests.
package scaler

import (
	"context"
	"errors"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var (
	ErrScalingFailed   = errors.New("scaling operation failed")
	ErrInvalidTarget   = errors.New("invalid target CKU count")
	ErrClusterNotFound = errors.New("cluster not found")
	ErrClusterBusy     = errors.New("cluster resize already in progress")
	ErrTimeout         = errors.New("cluster API timeout")
	ErrInvalidResponse = errors.New("invalid response from cluster API")
)

// StateSource reports a cluster's current and target capacity.
type StateSource interface {
	GetClusterState(ctx context.Context, clusterID string) (*models.ClusterState, error)
}

// Resizer requests a new CKU count. The provider applies it asynchronously.
type Resizer interface {
	Resize(ctx context.Context, clusterID string, targetCapacity int) error
}

// Scaler is the control-plane collaborator used by a pipeline.
type Scaler interface {
	StateSource
	Resizer

	// Close releases resources
	Close() error
}
