package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CKU_AUTOSCALER"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cku-autoscaler")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Lists set through the environment arrive as one comma separated string.
	cfg.Autoscaling.Clusters = splitList(cfg.Autoscaling.Clusters)
	cfg.Autoscaling.Metrics = splitList(cfg.Autoscaling.Metrics)

	return &cfg, nil
}

func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cku-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	v.SetDefault("confluent.cloud_url", "https://api.confluent.cloud")
	v.SetDefault("confluent.telemetry_url", "https://api.telemetry.confluent.cloud")
	v.SetDefault("confluent.timeout", "10s")

	v.SetDefault("autoscaling.clusters", []string{})
	v.SetDefault("autoscaling.poll_interval", "60s")
	v.SetDefault("autoscaling.cycle_timeout", "45s")
	v.SetDefault("autoscaling.period", "PT5M")
	v.SetDefault("autoscaling.interval", "now-2h|h/now")
	v.SetDefault("autoscaling.evaluation_periods", 2)
	v.SetDefault("autoscaling.lower_threshold", 40)
	v.SetDefault("autoscaling.upper_threshold", 60)
	v.SetDefault("autoscaling.min_size", 1)
	v.SetDefault("autoscaling.max_size", 5)
	v.SetDefault("autoscaling.metrics", []string{"received_bytes", "sent_bytes", "request_count"})
	v.SetDefault("autoscaling.dry_run", false)

	v.SetDefault("collector.retry_attempts", 1)
	v.SetDefault("collector.retry_delay", "2s")
	v.SetDefault("collector.max_pages", 10)
	v.SetDefault("collector.circuit_breaker.max_failures", 5)
	v.SetDefault("collector.circuit_breaker.cooldown", "2m")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.token_rate_limit", 5)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "1h")
	v.SetDefault("api.jwt_issuer", "cku-autoscaler")
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Trace-ID"})

	v.SetDefault("websocket.max_connections", 100)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.client_buffer", 64)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.history_size", 200)
}
