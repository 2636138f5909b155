package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cku-autoscaler/internal/auth"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cku-autoscaler/pkg/config"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

const operatorKey = "operator-key"

type fakeManager struct {
	mu       sync.Mutex
	clusters map[string]models.ClusterSnapshot
	running  []string
	events   map[string][]*models.Event
	eventCh  chan *models.Event
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		clusters: make(map[string]models.ClusterSnapshot),
		events:   make(map[string][]*models.Event),
		eventCh:  make(chan *models.Event, 16),
	}
}

func (f *fakeManager) add(snap models.ClusterSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters[snap.ID] = snap
	f.running = append(f.running, snap.ID)
}

func (f *fakeManager) ListClusters() []models.ClusterSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ClusterSnapshot, 0, len(f.clusters))
	for _, s := range f.clusters {
		out = append(out, s)
	}
	return out
}

func (f *fakeManager) GetCluster(id string) (models.ClusterSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.clusters[id]
	if !ok {
		return models.ClusterSnapshot{}, fmt.Errorf("%w for cluster %s", orchestrator.ErrPipelineNotFound, id)
	}
	return s, nil
}

func (f *fakeManager) ListRunningClusters() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.running...)
}

func (f *fakeManager) setStatus(id string, status models.ClusterStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.clusters[id]
	if !ok {
		return orchestrator.ErrPipelineNotFound
	}
	s.Status = status
	f.clusters[id] = s
	return nil
}

func (f *fakeManager) PauseCluster(id string) error {
	return f.setStatus(id, models.ClusterStatusPaused)
}

func (f *fakeManager) ResumeCluster(id string) error {
	return f.setStatus(id, models.ClusterStatusActive)
}

func (f *fakeManager) RecentEvents(id string, limit int) []*models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Event(nil), f.events[id]...)
}

func (f *fakeManager) SubscribeAllEvents() <-chan *models.Event {
	return f.eventCh
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := auth.HashKey(operatorKey)
	require.NoError(t, err)

	return &config.Config{
		App: config.AppConfig{Mode: "development"},
		API: config.APIConfig{
			RateLimit:       1000,
			TokenRateLimit:  5,
			JWTSecret:       "test-secret",
			JWTDuration:     time.Hour,
			JWTIssuer:       "cku-autoscaler",
			OperatorKeyHash: hash,
		},
		Prometheus: config.PrometheusConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, manager *fakeManager) (*Server, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	s := NewServer(testConfig(t), manager, m)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, m
}

func do(s *Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func token(t *testing.T, s *Server) string {
	t.Helper()
	tok, err := s.AuthService().GenerateToken("tester")
	require.NoError(t, err)
	return tok
}

func snapshot(id string) models.ClusterSnapshot {
	return models.ClusterSnapshot{
		Cluster: *models.NewCluster(id, "env-test"),
		State:   &models.ClusterState{ClusterID: id, CurrentCapacity: 2, TargetCapacity: 2},
		LastDecision: &models.ScalingDecision{
			ClusterID:       id,
			Action:          models.ActionNone,
			CurrentCapacity: 2,
			TargetCapacity:  2,
			Reason:          "no_consensus",
			Evaluations: []models.MetricEvaluation{
				{
					Metric:  models.MetricReceivedBytes,
					Outcome: models.OutcomeEvaluated,
					Verdict: models.VerdictNeutral,
					Window:  []models.UtilizationPoint{{Percent: 45}, {Percent: 52}},
				},
				{
					Metric:  models.MetricSentBytes,
					Outcome: models.OutcomeUnavailable,
					Verdict: models.VerdictNeutral,
				},
			},
		},
	}
}

func TestHealthEndpoints(t *testing.T) {
	manager := newFakeManager()
	s, _ := newTestServer(t, manager)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/health/ready", "", nil).Code)

	manager.add(snapshot("lkc-abc"))
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health/ready", "", nil).Code)

	w := do(s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status           string `json:"status"`
		RunningPipelines int    `json:"running_pipelines"`
		Clusters         []struct {
			ID string `json:"id"`
		} `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, 1, health.RunningPipelines)
	require.Len(t, health.Clusters, 1)
	assert.Equal(t, "lkc-abc", health.Clusters[0].ID)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestTokenExchange(t *testing.T) {
	s, _ := newTestServer(t, newFakeManager())

	bad, _ := json.Marshal(map[string]string{"operator": "ops", "key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodPost, "/auth/token", "", bad).Code)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/auth/token", "", []byte(`{}`)).Code)

	good, _ := json.Marshal(map[string]string{"operator": "ops", "key": operatorKey})
	w := do(s, http.MethodPost, "/auth/token", "", good)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3600, resp.ExpiresIn)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/clusters", resp.Token, nil).Code)
}

func TestTokenExchangeIsRateLimited(t *testing.T) {
	s, _ := newTestServer(t, newFakeManager())
	body, _ := json.Marshal(map[string]string{"operator": "ops", "key": "wrong"})

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, do(s, http.MethodPost, "/auth/token", "", body).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(s, http.MethodPost, "/auth/token", "", body).Code)
}

func TestClusterRoutesRequireToken(t *testing.T) {
	s, _ := newTestServer(t, newFakeManager())

	w := do(s, http.MethodGet, "/clusters", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")

	w = do(s, http.MethodGet, "/clusters", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClusterRoutes(t *testing.T) {
	manager := newFakeManager()
	manager.add(snapshot("lkc-abc"))
	s, _ := newTestServer(t, manager)
	tok := token(t, s)

	w := do(s, http.MethodGet, "/clusters", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = do(s, http.MethodGet, "/clusters/lkc-abc", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.ClusterSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "lkc-abc", snap.ID)
	require.NotNil(t, snap.LastDecision)
	assert.Equal(t, "no_consensus", snap.LastDecision.Reason)

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/clusters/lkc-nope", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/clusters/not-a-cluster", tok, nil).Code)

	w = do(s, http.MethodPost, "/clusters/lkc-abc/pause", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"paused"`)

	w = do(s, http.MethodPost, "/clusters/lkc-abc/resume", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"active"`)
}

func TestUtilizationRoute(t *testing.T) {
	manager := newFakeManager()
	manager.add(snapshot("lkc-abc"))
	s, _ := newTestServer(t, manager)

	w := do(s, http.MethodGet, "/clusters/lkc-abc/metrics", token(t, s), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Metrics []struct {
			Metric        string  `json:"metric"`
			Outcome       string  `json:"outcome"`
			LatestPercent *int64  `json:"latest_percent"`
			Window        []int64 `json:"window"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Metrics, 2)

	require.NotNil(t, resp.Metrics[0].LatestPercent)
	assert.Equal(t, int64(52), *resp.Metrics[0].LatestPercent)
	assert.Equal(t, []int64{45, 52}, resp.Metrics[0].Window)

	assert.Equal(t, "unavailable", resp.Metrics[1].Outcome)
	assert.Nil(t, resp.Metrics[1].LatestPercent)
}

func TestEventsRoute(t *testing.T) {
	manager := newFakeManager()
	manager.add(snapshot("lkc-abc"))
	manager.events["lkc-abc"] = []*models.Event{
		models.NewEvent(models.EventTypeCycleStarted, "lkc-abc", "one"),
		models.NewEvent(models.EventTypeDecisionMade, "lkc-abc", "two"),
		models.NewEvent(models.EventTypeCycleStarted, "lkc-abc", "three"),
	}
	s, _ := newTestServer(t, manager)
	tok := token(t, s)

	w := do(s, http.MethodGet, "/clusters/lkc-abc/events?limit=2", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.NotContains(t, w.Body.String(), `"one"`)

	w = do(s, http.MethodGet, "/clusters/lkc-abc/events?type=decision_made", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/clusters/lkc-abc/events?limit=x", tok, nil).Code)
}

func TestPrometheusRoute(t *testing.T) {
	s, m := newTestServer(t, newFakeManager())
	m.ObserveDecision(&models.ScalingDecision{ClusterID: "lkc-abc", Action: models.ActionExpand})

	w := do(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "cku_autoscaler_decisions_total"))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, newFakeManager())

	req := httptest.NewRequest(http.MethodOptions, "/clusters", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
