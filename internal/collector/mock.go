package collector

import (
	"context"
	"sync"

	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

// MockCollector serves fixed series from memory.
type MockCollector struct {
	series   map[string]map[models.MetricKind][]models.MetricSample
	failures map[models.MetricKind]error
	clusterF map[string]error
	queries  []SeriesQuery
	failAll  error
	mu       sync.Mutex
}

func NewMockCollector() *MockCollector {
	return &MockCollector{
		series:   make(map[string]map[models.MetricKind][]models.MetricSample),
		failures: make(map[models.MetricKind]error),
		clusterF: make(map[string]error),
	}
}

func (c *MockCollector) SetSeries(clusterID string, kind models.MetricKind, samples []models.MetricSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.series[clusterID] == nil {
		c.series[clusterID] = make(map[models.MetricKind][]models.MetricSample)
	}
	c.series[clusterID][kind] = samples
}

// SetMetricFailure makes reads of one metric fail with err; nil clears it.
func (c *MockCollector) SetMetricFailure(kind models.MetricKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.failures, kind)
		return
	}
	c.failures[kind] = err
}

// SetClusterFailure makes every read for one cluster fail with err; nil clears it.
func (c *MockCollector) SetClusterFailure(clusterID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.clusterF, clusterID)
		return
	}
	c.clusterF[clusterID] = err
}

// SetShouldFail makes every read fail with err; nil clears it.
func (c *MockCollector) SetShouldFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAll = err
}

// Queries returns every query served so far.
func (c *MockCollector) Queries() []SeriesQuery {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SeriesQuery, len(c.queries))
	copy(out, c.queries)
	return out
}

func (c *MockCollector) ReadSeries(ctx context.Context, q SeriesQuery) ([]models.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries = append(c.queries, q)
	if c.failAll != nil {
		return nil, c.failAll
	}
	if err, ok := c.clusterF[q.ClusterID]; ok {
		return nil, err
	}
	if err, ok := c.failures[q.Kind]; ok {
		return nil, err
	}

	src := c.series[q.ClusterID][q.Kind]
	out := make([]models.MetricSample, len(src))
	copy(out, src)
	return out, nil
}

func (c *MockCollector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failAll
}

func (c *MockCollector) Close() error {
	return nil
}
