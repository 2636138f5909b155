package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cku-autoscaler/internal/analyzer"
	"github.com/OldStager01/cku-autoscaler/internal/collector"
	"github.com/OldStager01/cku-autoscaler/internal/scaler"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)}
}

func TestParseInterval(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 34, 56, 0, time.UTC)

	tests := []struct {
		in        string
		start     time.Time
		end       time.Time
		expectErr bool
	}{
		{"now-2h|h/now", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), now, false},
		{"now-30m/now|m", time.Date(2024, 3, 5, 12, 4, 56, 0, time.UTC), time.Date(2024, 3, 5, 12, 34, 0, 0, time.UTC), false},
		{"2024-03-05T10:00:00Z/PT1H", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC), false},
		{"PT2H/2024-03-05T10:00:00Z", time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), false},
		{"P1D/now|d", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"now/now-1h", time.Time{}, time.Time{}, true},
		{"PT1H/PT2H", time.Time{}, time.Time{}, true},
		{"yesterday/now", time.Time{}, time.Time{}, true},
		{"now", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start, end, err := ParseInterval(tt.in, now)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestClusterSim_SeriesMatchesDemand(t *testing.T) {
	c := newClock()
	cluster := NewClusterSim("lkc-sim", ClusterSimConfig{CKU: 2, BaseDemand: 1.8, Now: c.Now})

	start, end, err := ParseInterval("now-1h|h/now", c.Now())
	require.NoError(t, err)

	series, err := cluster.Series(models.MetricReceivedBytes, models.BucketPT5M, start, end)
	require.NoError(t, err)
	// 11:00 through 12:25, each bucket complete before 12:30
	require.Len(t, series, 18)
	assert.Equal(t, time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC), series[0].Timestamp)

	for _, s := range series {
		pct, err := analyzer.Utilization(models.MetricReceivedBytes, 2, s.Value, models.BucketPT5M)
		require.NoError(t, err)
		assert.Equal(t, int64(90), pct)
	}

	load, err := cluster.Sample(models.MetricClusterLoad, models.BucketPT5M, c.Now())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, load, 1e-9)

	sent, err := cluster.Sample(models.MetricSentBytes, models.BucketPT5M, c.Now())
	require.NoError(t, err)
	pct, err := analyzer.Utilization(models.MetricSentBytes, 2, sent, models.BucketPT5M)
	require.NoError(t, err)
	assert.Equal(t, int64(54), pct)
}

func TestClusterSim_ResizeProvisioning(t *testing.T) {
	c := newClock()
	cluster := NewClusterSim("lkc-sim", ClusterSimConfig{CKU: 2, ProvisionTime: 10 * time.Minute, Now: c.Now})

	require.NoError(t, cluster.Resize(3))
	v := cluster.View()
	assert.Equal(t, 2, v.Current)
	assert.Equal(t, 3, v.Target)
	assert.Equal(t, PhaseProvisioning, v.Phase)

	assert.ErrorIs(t, cluster.Resize(4), ErrClusterBusy)
	assert.ErrorIs(t, cluster.Resize(0), ErrInvalidCKU)

	c.Advance(10 * time.Minute)
	v = cluster.View()
	assert.Equal(t, 3, v.Current)
	assert.Equal(t, PhaseProvisioned, v.Phase)
}

func TestClusterSim_SpikeRampsDemand(t *testing.T) {
	c := newClock()
	cluster := NewClusterSim("lkc-sim", ClusterSimConfig{CKU: 2, BaseDemand: 1.0, Now: c.Now})

	cluster.InjectSpike(3.0, time.Hour, 10*time.Minute)
	c.Advance(5 * time.Minute)

	load, err := cluster.Sample(models.MetricClusterLoad, models.BucketPT1M, c.Now())
	require.NoError(t, err)
	// halfway up the ramp: 2.0 CKU of demand on 2 CKU
	assert.InDelta(t, 1.0, load, 1e-9)

	after, err := cluster.Sample(models.MetricClusterLoad, models.BucketPT1M, c.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, after, 1e-9)
}

func TestPatterns(t *testing.T) {
	morning := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	night := time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.4, PatternDaily.Apply(1, morning), 1e-9)
	assert.InDelta(t, 0.6, PatternDaily.Apply(1, night), 1e-9)
	assert.InDelta(t, 0.5, PatternWeekly.Apply(1, saturday), 1e-9)

	rise := ParsePattern("gradual_rise", morning)
	assert.InDelta(t, 1.0, rise.Apply(1, morning), 1e-9)
	assert.InDelta(t, 1.5, rise.Apply(1, morning.Add(5*time.Hour)), 1e-9)
	assert.InDelta(t, 2.0, rise.Apply(1, morning.Add(48*time.Hour)), 1e-9)

	assert.Equal(t, "steady", ParsePattern("unknown", morning).Name())
}

func newTestSimulator(t *testing.T) (*Simulator, *clock, *httptest.Server) {
	t.Helper()
	c := newClock()
	sim := New(Config{
		APIKey:        "key",
		APISecret:     "secret",
		Environment:   "env-sim",
		ProvisionTime: 10 * time.Minute,
		PageSize:      5,
		Now:           c.Now,
	})
	srv := httptest.NewServer(sim.Handler())
	t.Cleanup(srv.Close)
	return sim, c, srv
}

func TestSimulator_AddClusterInheritsProvisionTime(t *testing.T) {
	sim, c, _ := newTestSimulator(t)
	cluster := sim.AddCluster("lkc-inherit", ClusterSimConfig{CKU: 2, BaseDemand: 1})

	require.NoError(t, cluster.Resize(3))
	view := cluster.View()
	assert.Equal(t, PhaseProvisioning, view.Phase)
	assert.Equal(t, 2, view.Current)
	assert.ErrorIs(t, cluster.Resize(4), ErrClusterBusy)

	c.Advance(10 * time.Minute)
	view = cluster.View()
	assert.Equal(t, PhaseProvisioned, view.Phase)
	assert.Equal(t, 3, view.Current)
}

func TestSimulator_TelemetryCollectorPaginates(t *testing.T) {
	sim, _, srv := newTestSimulator(t)
	sim.AddCluster("lkc-sim", ClusterSimConfig{CKU: 2, BaseDemand: 1.8})

	coll := collector.NewTelemetryCollector(collector.TelemetryCollectorConfig{
		Endpoint:  srv.URL,
		APIKey:    "key",
		APISecret: "secret",
		MaxPages:  10,
	})

	samples, err := coll.ReadSeries(context.Background(), collector.SeriesQuery{
		ClusterID: "lkc-sim",
		Kind:      models.MetricReceivedBytes,
		Bucket:    models.BucketPT5M,
		Interval:  "now-2h|h/now",
	})
	require.NoError(t, err)
	// 10:00 through 12:25 across six pages
	assert.Len(t, samples, 30)

	require.NoError(t, coll.HealthCheck(context.Background()))

	empty, err := coll.ReadSeries(context.Background(), collector.SeriesQuery{
		ClusterID: "lkc-missing",
		Kind:      models.MetricReceivedBytes,
		Bucket:    models.BucketPT5M,
		Interval:  "now-2h|h/now",
	})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSimulator_RejectsBadCredentials(t *testing.T) {
	_, _, srv := newTestSimulator(t)

	coll := collector.NewTelemetryCollector(collector.TelemetryCollectorConfig{
		Endpoint:  srv.URL,
		APIKey:    "key",
		APISecret: "wrong",
	})
	err := coll.HealthCheck(context.Background())
	assert.ErrorIs(t, err, collector.ErrUnauthorized)
}

func TestSimulator_ConfluentScalerResizes(t *testing.T) {
	sim, c, srv := newTestSimulator(t)
	sim.AddCluster("lkc-sim", ClusterSimConfig{CKU: 2})

	s := scaler.NewConfluentScaler(scaler.ConfluentConfig{
		Endpoint:    srv.URL,
		Environment: "env-sim",
		APIKey:      "key",
		APISecret:   "secret",
	})
	ctx := context.Background()

	state, err := s.GetClusterState(ctx, "lkc-sim")
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentCapacity)
	assert.Equal(t, 2, state.TargetCapacity)

	require.NoError(t, s.Resize(ctx, "lkc-sim", 3))

	state, err = s.GetClusterState(ctx, "lkc-sim")
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentCapacity)
	assert.Equal(t, 3, state.TargetCapacity)
	assert.Equal(t, PhaseProvisioning, state.Phase)

	assert.ErrorIs(t, s.Resize(ctx, "lkc-sim", 4), scaler.ErrClusterBusy)

	c.Advance(10 * time.Minute)
	state, err = s.GetClusterState(ctx, "lkc-sim")
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentCapacity)

	_, err = s.GetClusterState(ctx, "lkc-missing")
	assert.ErrorIs(t, err, scaler.ErrClusterNotFound)

	other := scaler.NewConfluentScaler(scaler.ConfluentConfig{
		Endpoint:    srv.URL,
		Environment: "env-other",
		APIKey:      "key",
		APISecret:   "secret",
	})
	_, err = other.GetClusterState(ctx, "lkc-sim")
	assert.ErrorIs(t, err, scaler.ErrClusterNotFound)
}

func TestSimulator_ControlEndpoints(t *testing.T) {
	sim, _, srv := newTestSimulator(t)

	body, _ := json.Marshal(CreateClusterRequest{CKU: 3, BaseDemand: 1.2, Pattern: "daily"})
	resp, err := http.Post(srv.URL+"/clusters/lkc-new", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cluster, ok := sim.GetCluster("lkc-new")
	require.True(t, ok)
	assert.Equal(t, "daily", cluster.PatternName())
	assert.Equal(t, 3, cluster.View().Current)

	body, _ = json.Marshal(PatternRequest{ClusterID: "lkc-new", Pattern: "sine_wave"})
	resp, err = http.Post(srv.URL+"/pattern", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "sine_wave", cluster.PatternName())

	resp, err = http.Get(srv.URL + "/clusters")
	require.NoError(t, err)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Equal(t, 1, list.Count)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/clusters/lkc-new", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, ok = sim.GetCluster("lkc-new")
	assert.False(t, ok)
}
