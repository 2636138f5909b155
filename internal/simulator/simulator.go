// Package simulator fakes the Confluent Cloud cluster and telemetry APIs so
// the autoscaler can be exercised end to end without a real cluster.
package simulator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/limits"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
)

const telemetryMetricPrefix = "io.confluent.kafka.server/"

type Config struct {
	Port int
	// APIKey and APISecret, when set, are required as basic auth on the
	// Confluent API routes.
	APIKey    string
	APISecret string
	// Defaults for clusters created implicitly or without explicit settings
	Environment   string
	ProvisionTime time.Duration
	// PageSize caps data points per telemetry response.
	PageSize int
	Now      func() time.Time
}

type Simulator struct {
	config     Config
	clusters   map[string]*ClusterSim
	mu         sync.RWMutex
	httpServer *http.Server
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}
	if cfg.Environment == "" {
		cfg.Environment = "env-sim"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Simulator{
		config:   cfg,
		clusters: make(map[string]*ClusterSim),
	}
}

func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Confluent Cloud surface
	mux.HandleFunc("GET /cmk/v2/clusters/{id}", s.requireAuth(s.getCMKClusterHandler))
	mux.HandleFunc("PATCH /cmk/v2/clusters/{id}", s.requireAuth(s.patchCMKClusterHandler))
	mux.HandleFunc("POST /v2/metrics/cloud/query", s.requireAuth(s.queryHandler))
	mux.HandleFunc("GET /v2/metrics/cloud/descriptors/metrics", s.requireAuth(s.descriptorsHandler))

	// Simulation control
	mux.HandleFunc("GET /clusters", s.listClustersHandler)
	mux.HandleFunc("GET /clusters/{id}", s.getClusterHandler)
	mux.HandleFunc("POST /clusters/{id}", s.createClusterHandler)
	mux.HandleFunc("PUT /clusters/{id}", s.updateClusterHandler)
	mux.HandleFunc("DELETE /clusters/{id}", s.deleteClusterHandler)
	mux.HandleFunc("POST /spike", s.spikeHandler)
	mux.HandleFunc("POST /pattern", s.patternHandler)

	return mux
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Simulator listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) clusterConfig(cku int, demand float64) ClusterSimConfig {
	return ClusterSimConfig{
		Environment:   s.config.Environment,
		CKU:           cku,
		BaseDemand:    demand,
		Variance:      0.05,
		ProvisionTime: s.config.ProvisionTime,
		Pattern:       PatternSteady,
		Now:           s.config.Now,
	}
}

// AddCluster registers or replaces a simulated cluster.
func (s *Simulator) AddCluster(clusterID string, cfg ClusterSimConfig) *ClusterSim {
	if cfg.Now == nil {
		cfg.Now = s.config.Now
	}
	if cfg.Environment == "" {
		cfg.Environment = s.config.Environment
	}
	if cfg.ProvisionTime == 0 {
		cfg.ProvisionTime = s.config.ProvisionTime
	}

	cluster := NewClusterSim(clusterID, cfg)

	s.mu.Lock()
	s.clusters[clusterID] = cluster
	s.mu.Unlock()

	logger.WithCluster(clusterID).Infof("Created simulated cluster with %d CKU", cfg.CKU)
	return cluster
}

// GetOrCreateCluster returns the cluster, creating a 2 CKU cluster at half
// load when it does not exist.
func (s *Simulator) GetOrCreateCluster(clusterID string) *ClusterSim {
	if cluster, ok := s.GetCluster(clusterID); ok {
		return cluster
	}
	return s.AddCluster(clusterID, s.clusterConfig(2, 1.0))
}

func (s *Simulator) GetCluster(clusterID string) (*ClusterSim, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cluster, exists := s.clusters[clusterID]
	return cluster, exists
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError mirrors the Confluent error envelope.
func writeAPIError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]string{{
			"status": strconv.Itoa(status),
			"detail": detail,
		}},
	})
}

func (s *Simulator) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.config.APIKey == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key, secret, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.config.APIKey)) != 1 ||
			subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.APISecret)) != 1 {
			writeAPIError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(w, r)
	}
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "confluent-simulator",
	})
}

type cmkCluster struct {
	ID   string `json:"id"`
	Spec struct {
		Config struct {
			Kind string `json:"kind"`
			CKU  int    `json:"cku"`
		} `json:"config"`
		Environment struct {
			ID string `json:"id"`
		} `json:"environment"`
	} `json:"spec"`
	Status struct {
		Phase string `json:"phase"`
		CKU   int    `json:"cku"`
	} `json:"status"`
}

func toCMKCluster(v ClusterView) cmkCluster {
	var c cmkCluster
	c.ID = v.ID
	c.Spec.Config.Kind = "Dedicated"
	c.Spec.Config.CKU = v.Target
	c.Spec.Environment.ID = v.Environment
	c.Status.Phase = v.Phase
	c.Status.CKU = v.Current
	return c
}

// cmkCluster looks up a cluster and checks the environment query parameter.
func (s *Simulator) cmkCluster(w http.ResponseWriter, r *http.Request) (*ClusterSim, bool) {
	id := r.PathValue("id")
	cluster, ok := s.GetCluster(id)
	if !ok {
		writeAPIError(w, http.StatusNotFound, "cluster "+id+" not found")
		return nil, false
	}
	if env := r.URL.Query().Get("environment"); env != "" && env != cluster.View().Environment {
		writeAPIError(w, http.StatusNotFound, "cluster "+id+" not found in environment "+env)
		return nil, false
	}
	return cluster, true
}

func (s *Simulator) getCMKClusterHandler(w http.ResponseWriter, r *http.Request) {
	cluster, ok := s.cmkCluster(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCMKCluster(cluster.View()))
}

func (s *Simulator) patchCMKClusterHandler(w http.ResponseWriter, r *http.Request) {
	cluster, ok := s.cmkCluster(w, r)
	if !ok {
		return
	}

	var req cmkCluster
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if env := req.Spec.Environment.ID; env != "" && env != cluster.View().Environment {
		writeAPIError(w, http.StatusBadRequest, "environment mismatch")
		return
	}

	switch err := cluster.Resize(req.Spec.Config.CKU); {
	case errors.Is(err, ErrInvalidCKU):
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrClusterBusy):
		writeAPIError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	view := cluster.View()
	logger.WithCluster(view.ID).Infof("Resize accepted: %d -> %d CKU", view.Current, view.Target)
	writeJSON(w, http.StatusOK, toCMKCluster(view))
}

type queryRequest struct {
	Aggregations []struct {
		Metric string `json:"metric"`
	} `json:"aggregations"`
	Filter struct {
		Field string `json:"field"`
		Op    string `json:"op"`
		Value string `json:"value"`
	} `json:"filter"`
	Granularity string   `json:"granularity"`
	Intervals   []string `json:"intervals"`
}

type queryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type queryResponse struct {
	Data []queryPoint `json:"data"`
	Meta struct {
		Pagination struct {
			PageSize      int    `json:"page_size"`
			NextPageToken string `json:"next_page_token,omitempty"`
		} `json:"pagination"`
	} `json:"meta"`
}

func (s *Simulator) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Aggregations) != 1 || len(req.Intervals) != 1 {
		writeAPIError(w, http.StatusBadRequest, "exactly one aggregation and one interval are supported")
		return
	}
	if req.Filter.Field != "resource.kafka.id" || req.Filter.Op != "EQ" {
		writeAPIError(w, http.StatusBadRequest, "filter must be resource.kafka.id EQ <cluster>")
		return
	}

	kind, err := limits.ParseMetricKind(strings.TrimPrefix(req.Aggregations[0].Metric, telemetryMetricPrefix))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	bucket, err := limits.ParseTimeBucket(req.Granularity)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := ParseInterval(req.Intervals[0], s.config.Now())
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	offset := 0
	if tok := r.URL.Query().Get("page_token"); tok != "" {
		if offset, err = strconv.Atoi(tok); err != nil || offset < 0 {
			writeAPIError(w, http.StatusBadRequest, "invalid page_token")
			return
		}
	}

	resp := queryResponse{Data: []queryPoint{}}
	resp.Meta.Pagination.PageSize = s.config.PageSize

	// Unknown clusters report no data, like the real API
	if cluster, ok := s.GetCluster(req.Filter.Value); ok {
		series, err := cluster.Series(kind, bucket, start, end)
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if offset < len(series) {
			page := series[offset:]
			if len(page) > s.config.PageSize {
				page = page[:s.config.PageSize]
				resp.Meta.Pagination.NextPageToken = strconv.Itoa(offset + s.config.PageSize)
			}
			for _, p := range page {
				resp.Data = append(resp.Data, queryPoint{Timestamp: p.Timestamp, Value: p.Value})
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Simulator) descriptorsHandler(w http.ResponseWriter, r *http.Request) {
	data := make([]map[string]string, 0, len(limits.Kinds()))
	for _, kind := range limits.Kinds() {
		data = append(data, map[string]string{"name": kind.TelemetryName()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (s *Simulator) listClustersHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.clusters))
	for id := range s.clusters {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	clusters := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		if cluster, ok := s.GetCluster(id); ok {
			clusters = append(clusters, cluster.Status())
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

func (s *Simulator) getClusterHandler(w http.ResponseWriter, r *http.Request) {
	cluster, exists := s.GetCluster(r.PathValue("id"))
	if !exists {
		http.Error(w, "cluster not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cluster.Status())
}

type CreateClusterRequest struct {
	Environment   string  `json:"environment"`
	CKU           int     `json:"cku"`
	BaseDemand    float64 `json:"base_demand"`
	Variance      float64 `json:"variance"`
	Pattern       string  `json:"pattern"`
	ProvisionTime string  `json:"provision_time"`
}

func (s *Simulator) createClusterHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.CKU <= 0 {
		req.CKU = 2
	}
	if req.BaseDemand <= 0 {
		req.BaseDemand = float64(req.CKU) / 2
	}

	cfg := s.clusterConfig(req.CKU, req.BaseDemand)
	if req.Environment != "" {
		cfg.Environment = req.Environment
	}
	if req.Variance > 0 {
		cfg.Variance = req.Variance
	}
	if req.Pattern != "" {
		cfg.Pattern = ParsePattern(req.Pattern, s.config.Now())
	}
	if req.ProvisionTime != "" {
		d, err := time.ParseDuration(req.ProvisionTime)
		if err != nil {
			http.Error(w, "invalid provision_time", http.StatusBadRequest)
			return
		}
		cfg.ProvisionTime = d
	}

	cluster := s.AddCluster(r.PathValue("id"), cfg)
	writeJSON(w, http.StatusCreated, cluster.Status())
}

type UpdateClusterRequest struct {
	BaseDemand *float64 `json:"base_demand"`
	Variance   *float64 `json:"variance"`
}

func (s *Simulator) updateClusterHandler(w http.ResponseWriter, r *http.Request) {
	cluster, exists := s.GetCluster(r.PathValue("id"))
	if !exists {
		http.Error(w, "cluster not found", http.StatusNotFound)
		return
	}

	var req UpdateClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.BaseDemand != nil {
		cluster.SetBaseDemand(*req.BaseDemand)
	}
	if req.Variance != nil {
		cluster.SetVariance(*req.Variance)
	}

	writeJSON(w, http.StatusOK, cluster.Status())
}

func (s *Simulator) deleteClusterHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	_, exists := s.clusters[id]
	delete(s.clusters, id)
	s.mu.Unlock()

	if !exists {
		http.Error(w, "cluster not found", http.StatusNotFound)
		return
	}

	logger.WithCluster(id).Info("Deleted simulated cluster")
	writeJSON(w, http.StatusOK, map[string]string{"message": "cluster deleted"})
}

type SpikeRequest struct {
	ClusterID    string  `json:"cluster_id"`
	TargetDemand float64 `json:"target_demand"`
	Duration     string  `json:"duration"`
	RampUp       string  `json:"ramp_up"`
}

func (s *Simulator) spikeHandler(w http.ResponseWriter, r *http.Request) {
	var req SpikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClusterID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cluster := s.GetOrCreateCluster(req.ClusterID)

	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		duration = 30 * time.Minute
	}
	rampUp, err := time.ParseDuration(req.RampUp)
	if err != nil {
		rampUp = 5 * time.Minute
	}

	cluster.InjectSpike(req.TargetDemand, duration, rampUp)

	logger.WithCluster(req.ClusterID).Infof("Injected spike: target=%.2f CKU, duration=%s", req.TargetDemand, duration)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "spike injected",
		"cluster_id":    req.ClusterID,
		"target_demand": req.TargetDemand,
		"duration":      duration.String(),
		"ramp_up":       rampUp.String(),
	})
}

type PatternRequest struct {
	ClusterID string `json:"cluster_id"`
	Pattern   string `json:"pattern"` // steady, daily, weekly, random, gradual_rise, sine_wave
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClusterID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cluster := s.GetOrCreateCluster(req.ClusterID)
	pattern := ParsePattern(req.Pattern, s.config.Now())
	cluster.SetPattern(pattern)

	logger.WithCluster(req.ClusterID).Infof("Set pattern %s", pattern.Name())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "pattern set",
		"cluster_id": req.ClusterID,
		"pattern":    pattern.Name(),
	})
}
