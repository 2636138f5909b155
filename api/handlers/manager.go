package handlers

import "github.com/OldStager01/cku-autoscaler/pkg/models"

// ClusterManager is the orchestrator surface the API reads from.
type ClusterManager interface {
	ListClusters() []models.ClusterSnapshot
	GetCluster(clusterID string) (models.ClusterSnapshot, error)
	ListRunningClusters() []string
	PauseCluster(clusterID string) error
	ResumeCluster(clusterID string) error
	RecentEvents(clusterID string, limit int) []*models.Event
	SubscribeAllEvents() <-chan *models.Event
}
