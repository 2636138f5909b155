package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/OldStager01/cku-autoscaler/internal/decision"
	"github.com/OldStager01/cku-autoscaler/internal/limits"
	"github.com/OldStager01/cku-autoscaler/pkg/validation"
)

const defaultJWTSecret = "change-me-in-production"

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.Confluent.APIKey == "" || c.Confluent.APISecret == "" {
		errs = append(errs, errors.New("confluent.api_key and confluent.api_secret are required"))
	}
	if err := validation.ValidateEnvironmentID(c.Confluent.Environment); err != nil {
		errs = append(errs, fmt.Errorf("confluent.environment: %w", err))
	}
	for key, raw := range map[string]string{
		"confluent.cloud_url":     c.Confluent.CloudURL,
		"confluent.telemetry_url": c.Confluent.TelemetryURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", key))
		}
	}
	if c.Confluent.Timeout <= 0 {
		errs = append(errs, errors.New("confluent.timeout must be positive"))
	}

	errs = append(errs, c.Autoscaling.validate()...)

	if c.Collector.RetryAttempts < 1 {
		errs = append(errs, errors.New("collector.retry_attempts must be at least 1"))
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			errs = append(errs, errors.New("api.port must be between 1 and 65535"))
		}
		if c.App.Mode == "production" && c.API.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}

func (a AutoscalingConfig) validate() []error {
	var errs []error

	if len(a.Clusters) == 0 {
		errs = append(errs, errors.New("autoscaling.clusters must list at least one cluster"))
	} else if err := validation.ValidateClusterIDs(a.Clusters); err != nil {
		errs = append(errs, fmt.Errorf("autoscaling.clusters: %w", err))
	}
	if a.PollInterval <= 0 {
		errs = append(errs, errors.New("autoscaling.poll_interval must be positive"))
	}
	if a.CycleTimeout < 0 {
		errs = append(errs, errors.New("autoscaling.cycle_timeout must not be negative"))
	}
	if _, err := limits.ParseTimeBucket(a.Period); err != nil {
		errs = append(errs, fmt.Errorf("autoscaling.period: %w", err))
	}
	if a.Interval == "" {
		errs = append(errs, errors.New("autoscaling.interval is required"))
	}
	if a.EvaluationPeriods <= 0 {
		errs = append(errs, errors.New("autoscaling.evaluation_periods must be positive"))
	}
	if a.LowerThreshold >= a.UpperThreshold {
		errs = append(errs, errors.New("autoscaling.lower_threshold must be less than upper_threshold"))
	}
	if a.MinSize < 1 {
		errs = append(errs, errors.New("autoscaling.min_size must be at least 1"))
	}
	if a.MaxSize < a.MinSize {
		errs = append(errs, errors.New("autoscaling.max_size must be >= min_size"))
	}
	if len(a.Metrics) == 0 {
		errs = append(errs, errors.New("autoscaling.metrics must list at least one metric"))
	} else if _, err := limits.ParseMetricKinds(a.Metrics); err != nil {
		errs = append(errs, fmt.Errorf("autoscaling.metrics: %w", err))
	}

	return errs
}

// ToDecisionConfig converts the autoscaling section into engine settings.
func (a AutoscalingConfig) ToDecisionConfig() (decision.Config, error) {
	kinds, err := limits.ParseMetricKinds(a.Metrics)
	if err != nil {
		return decision.Config{}, err
	}
	bucket, err := limits.ParseTimeBucket(a.Period)
	if err != nil {
		return decision.Config{}, err
	}

	return decision.Config{
		Metrics:           kinds,
		Bucket:            bucket,
		EvaluationPeriods: a.EvaluationPeriods,
		LowerThreshold:    a.LowerThreshold,
		UpperThreshold:    a.UpperThreshold,
		MinCapacity:       a.MinSize,
		MaxCapacity:       a.MaxSize,
	}, nil
}
