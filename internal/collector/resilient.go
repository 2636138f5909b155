package collector

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/resilience"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

// ResilientCollector puts a circuit breaker and an optional in-cycle retry in
// front of another collector. Each cluster gets its own breaker, so one
// failing cluster never blocks reads for the others.
type ResilientCollector struct {
	collector     Collector
	breakerConfig resilience.CircuitBreakerConfig
	retryAttempts int
	retryDelay    time.Duration

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

type ResilientCollectorConfig struct {
	Collector     Collector
	Name          string
	MaxFailures   int
	Cooldown      time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "telemetry"
	}

	return &ResilientCollector{
		collector: cfg.Collector,
		breakerConfig: resilience.CircuitBreakerConfig{
			Name:          cfg.Name,
			MaxFailures:   cfg.MaxFailures,
			Cooldown:      cfg.Cooldown,
			IsFailure:     IsRetryable,
			OnStateChange: cfg.OnStateChange,
		},
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		breakers:      make(map[string]*resilience.CircuitBreaker),
	}
}

// breaker returns the cluster's breaker, named "<name>/<cluster>".
func (c *ResilientCollector) breaker(clusterID string) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[clusterID]
	if !ok {
		cfg := c.breakerConfig
		cfg.Name = c.breakerConfig.Name + "/" + clusterID
		cb = resilience.NewCircuitBreaker(cfg)
		c.breakers[clusterID] = cb
	}
	return cb
}

func (c *ResilientCollector) ReadSeries(ctx context.Context, q SeriesQuery) ([]models.MetricSample, error) {
	var samples []models.MetricSample
	attempt := 0

	err := c.breaker(q.ClusterID).Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, c.retryAttempts, c.retryDelay, IsRetryable, func(ctx context.Context) error {
			attempt++
			var err error
			samples, err = c.collector.ReadSeries(ctx, q)
			if err != nil && attempt < c.retryAttempts {
				logger.WithClusterCtx(ctx, q.ClusterID).Warnf(
					"Read of %s attempt %d/%d failed: %v",
					q.Kind, attempt, c.retryAttempts, err,
				)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return samples, nil
}

func (c *ResilientCollector) HealthCheck(ctx context.Context) error {
	return c.collector.HealthCheck(ctx)
}

func (c *ResilientCollector) Close() error {
	return c.collector.Close()
}

func (c *ResilientCollector) CircuitStats(clusterID string) resilience.Stats {
	return c.breaker(clusterID).Stats()
}

func (c *ResilientCollector) ResetCircuit(clusterID string) {
	c.breaker(clusterID).Reset()
}
