package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cku-autoscaler/internal/decision"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

type HealthHandler struct {
	manager ClusterManager
}

func NewHealthHandler(manager ClusterManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// ClusterHealth is the public, unauthenticated view of one pipeline. It leaves
// out decisions and utilization, which need a token.
type ClusterHealth struct {
	ID          string               `json:"id"`
	Status      models.ClusterStatus `json:"status"`
	Phase       decision.ResizePhase `json:"phase,omitempty"`
	LastCycleAt *time.Time           `json:"last_cycle_at,omitempty"`
	LastError   string               `json:"last_error,omitempty"`
}

type HealthResponse struct {
	Status           string          `json:"status"`
	Timestamp        time.Time       `json:"timestamp"`
	RunningPipelines int             `json:"running_pipelines"`
	Clusters         []ClusterHealth `json:"clusters,omitempty"`
}

func newHealthResponse(status string, running int) HealthResponse {
	return HealthResponse{Status: status, Timestamp: time.Now().UTC(), RunningPipelines: running}
}

// Health is degraded when no pipeline runs or any pipeline's last cycle failed.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := newHealthResponse("healthy", len(h.manager.ListRunningClusters()))
	if resp.RunningPipelines == 0 {
		resp.Status = "degraded"
	}

	for _, snap := range h.manager.ListClusters() {
		ch := ClusterHealth{
			ID:          snap.ID,
			Status:      snap.Status,
			LastCycleAt: snap.LastCycleAt,
			LastError:   snap.LastError,
		}
		if snap.State != nil {
			ch.Phase = decision.PhaseOf(snap.State)
		}
		if snap.Status == models.ClusterStatusError {
			resp.Status = "degraded"
		}
		resp.Clusters = append(resp.Clusters, ch)
	}

	c.JSON(http.StatusOK, resp)
}

// Ready reports ready once at least one pipeline is running.
func (h *HealthHandler) Ready(c *gin.Context) {
	running := len(h.manager.ListRunningClusters())
	if running == 0 {
		c.JSON(http.StatusServiceUnavailable, newHealthResponse("not ready", 0))
		return
	}
	c.JSON(http.StatusOK, newHealthResponse("ready", running))
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
