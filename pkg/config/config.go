package config

import "time"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Confluent   ConfluentConfig   `mapstructure:"confluent"`
	Autoscaling AutoscalingConfig `mapstructure:"autoscaling"`
	Collector   CollectorConfig   `mapstructure:"collector"`
	API         APIConfig         `mapstructure:"api"`
	WebSocket   WebSocketConfig   `mapstructure:"websocket"`
	Prometheus  PrometheusConfig  `mapstructure:"prometheus"`
	Events      EventsConfig      `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ConfluentConfig holds credentials and endpoints for Confluent Cloud.
type ConfluentConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	APISecret    string        `mapstructure:"api_secret"`
	Environment  string        `mapstructure:"environment"`
	CloudURL     string        `mapstructure:"cloud_url"`
	TelemetryURL string        `mapstructure:"telemetry_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AutoscalingConfig struct {
	Clusters          []string      `mapstructure:"clusters"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	CycleTimeout      time.Duration `mapstructure:"cycle_timeout"`
	Period            string        `mapstructure:"period"`
	Interval          string        `mapstructure:"interval"`
	EvaluationPeriods int           `mapstructure:"evaluation_periods"`
	LowerThreshold    int64         `mapstructure:"lower_threshold"`
	UpperThreshold    int64         `mapstructure:"upper_threshold"`
	MinSize           int           `mapstructure:"min_size"`
	MaxSize           int           `mapstructure:"max_size"`
	Metrics           []string      `mapstructure:"metrics"`
	DryRun            bool          `mapstructure:"dry_run"`
}

type CollectorConfig struct {
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	MaxPages       int                  `mapstructure:"max_pages"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

type APIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	TokenRateLimit  int           `mapstructure:"token_rate_limit"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	JWTDuration     time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer       string        `mapstructure:"jwt_issuer"`
	OperatorKeyHash string        `mapstructure:"operator_key_hash"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type EventsConfig struct {
	BufferSize  int `mapstructure:"buffer_size"`
	HistorySize int `mapstructure:"history_size"`
}
