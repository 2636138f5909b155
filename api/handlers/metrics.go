package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type MetricsHandler struct {
	manager ClusterManager
}

func NewMetricsHandler(manager ClusterManager) *MetricsHandler {
	return &MetricsHandler{manager: manager}
}

// MetricUtilization summarises one metric from the last decision.
type MetricUtilization struct {
	Metric        models.MetricKind        `json:"metric"`
	Outcome       models.EvaluationOutcome `json:"outcome"`
	Verdict       models.ScalingVerdict    `json:"verdict"`
	LatestPercent *int64                   `json:"latest_percent,omitempty"`
	Window        []int64                  `json:"window,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

func summarize(eval models.MetricEvaluation) MetricUtilization {
	m := MetricUtilization{
		Metric:  eval.Metric,
		Outcome: eval.Outcome,
		Verdict: eval.Verdict,
		Error:   eval.Error,
	}
	if n := len(eval.Window); n > 0 {
		m.Window = make([]int64, n)
		for i, p := range eval.Window {
			m.Window[i] = p.Percent
		}
		latest := eval.Window[n-1].Percent
		m.LatestPercent = &latest
	}
	return m
}

// GetUtilization godoc
// @Summary Latest utilization
// @Description Per-metric utilization percentages from the last decision
// @Tags Metrics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Cluster not found"
// @Router /clusters/{id}/metrics [get]
func (h *MetricsHandler) GetUtilization(c *gin.Context) {
	id, ok := clusterID(c)
	if !ok {
		return
	}

	snap, err := h.manager.GetCluster(id)
	if err != nil {
		writeManagerError(c, err)
		return
	}

	if snap.LastDecision == nil {
		c.JSON(http.StatusOK, gin.H{"cluster_id": id, "metrics": []MetricUtilization{}})
		return
	}

	d := snap.LastDecision
	metrics := make([]MetricUtilization, 0, len(d.Evaluations))
	for _, eval := range d.Evaluations {
		metrics = append(metrics, summarize(eval))
	}

	c.JSON(http.StatusOK, gin.H{
		"cluster_id":  id,
		"decided_at":  d.Timestamp,
		"current_cku": d.CurrentCapacity,
		"action":      d.Action,
		"reason":      d.Reason,
		"metrics":     metrics,
	})
}

// GetEvents godoc
// @Summary Recent events
// @Description Recent pipeline events for a cluster, oldest first
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cluster ID"
// @Param limit query int false "Maximum events" default(50)
// @Param type query string false "Filter by event type"
// @Success 200 {object} map[string]interface{}
// @Router /clusters/{id}/events [get]
func (h *MetricsHandler) GetEvents(c *gin.Context) {
	id, ok := clusterID(c)
	if !ok {
		return
	}
	if _, err := h.manager.GetCluster(id); err != nil {
		writeManagerError(c, err)
		return
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxEventLimit)
	}

	events := h.manager.RecentEvents(id, 0)
	if t := c.Query("type"); t != "" {
		filtered := events[:0]
		for _, e := range events {
			if string(e.Type) == t {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}

	c.JSON(http.StatusOK, gin.H{
		"cluster_id": id,
		"events":     events,
		"count":      len(events),
	})
}
