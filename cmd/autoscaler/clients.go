package main

import (
	"github.com/OldStager01/cku-autoscaler/internal/collector"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/internal/resilience"
	"github.com/OldStager01/cku-autoscaler/internal/scaler"
	"github.com/OldStager01/cku-autoscaler/pkg/config"
)

// newCollector builds the telemetry client behind retrying per-cluster circuit
// breakers. Breaker transitions are exported as a gauge.
func newCollector(cfg *config.Config, m *metrics.Metrics) *collector.ResilientCollector {
	telemetry := collector.NewTelemetryCollector(collector.TelemetryCollectorConfig{
		Endpoint:  cfg.Confluent.TelemetryURL,
		APIKey:    cfg.Confluent.APIKey,
		APISecret: cfg.Confluent.APISecret,
		Timeout:   cfg.Confluent.Timeout,
		MaxPages:  cfg.Collector.MaxPages,
	})

	return collector.NewResilientCollector(collector.ResilientCollectorConfig{
		Collector:     telemetry,
		Name:          "telemetry",
		MaxFailures:   cfg.Collector.CircuitBreaker.MaxFailures,
		Cooldown:      cfg.Collector.CircuitBreaker.Cooldown,
		RetryAttempts: cfg.Collector.RetryAttempts,
		RetryDelay:    cfg.Collector.RetryDelay,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit %s: %s -> %s", name, from, to)
			m.SetCircuitState(name, to)
		},
	})
}

func newScaler(cfg *config.Config) *scaler.ConfluentScaler {
	return scaler.NewConfluentScaler(scaler.ConfluentConfig{
		Endpoint:    cfg.Confluent.CloudURL,
		Environment: cfg.Confluent.Environment,
		APIKey:      cfg.Confluent.APIKey,
		APISecret:   cfg.Confluent.APISecret,
		Timeout:     cfg.Confluent.Timeout,
	})
}
