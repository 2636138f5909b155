package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cku-autoscaler/pkg/validation"
)

type ClusterHandler struct {
	manager ClusterManager
}

func NewClusterHandler(manager ClusterManager) *ClusterHandler {
	return &ClusterHandler{manager: manager}
}

// clusterID validates the :id path parameter, writing a 400 when it is malformed.
func clusterID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := validation.ValidateClusterID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func writeManagerError(c *gin.Context, err error) {
	if errors.Is(err, orchestrator.ErrPipelineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// List godoc
// @Summary List clusters
// @Description Snapshot of every autoscaled cluster
// @Tags Clusters
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of clusters"
// @Router /clusters [get]
func (h *ClusterHandler) List(c *gin.Context) {
	clusters := h.manager.ListClusters()
	c.JSON(http.StatusOK, gin.H{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// Get godoc
// @Summary Get cluster
// @Description Last state and decision for one cluster
// @Tags Clusters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Success 200 {object} models.ClusterSnapshot
// @Failure 404 {object} map[string]string "Cluster not found"
// @Router /clusters/{id} [get]
func (h *ClusterHandler) Get(c *gin.Context) {
	id, ok := clusterID(c)
	if !ok {
		return
	}

	snap, err := h.manager.GetCluster(id)
	if err != nil {
		writeManagerError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Pause godoc
// @Summary Pause autoscaling
// @Tags Clusters
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Router /clusters/{id}/pause [post]
func (h *ClusterHandler) Pause(c *gin.Context) {
	h.setPaused(c, true)
}

// Resume godoc
// @Summary Resume autoscaling
// @Tags Clusters
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Router /clusters/{id}/resume [post]
func (h *ClusterHandler) Resume(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *ClusterHandler) setPaused(c *gin.Context, paused bool) {
	id, ok := clusterID(c)
	if !ok {
		return
	}

	op := h.manager.ResumeCluster
	if paused {
		op = h.manager.PauseCluster
	}
	if err := op(id); err != nil {
		writeManagerError(c, err)
		return
	}

	operator, _ := c.Get("operator")
	logger.WithCluster(id).WithField("operator", operator).Infof("Autoscaling paused=%v via API", paused)

	snap, err := h.manager.GetCluster(id)
	if err != nil {
		writeManagerError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
