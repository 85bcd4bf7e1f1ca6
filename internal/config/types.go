package config

import "time"

type HTTPConfig struct {
	Addr              string        `yaml:"addr" env:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxRequestBytes   int64         `yaml:"max_request_bytes" env:"MAX_REQUEST_BYTES"`

	// CORSOrigins lists allowed browser origins. Empty falls back to the
	// local development origins.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

type EngineConfig struct {
	// DefaultMaxIterations is the stabilisation budget when a request does
	// not name one.
	DefaultMaxIterations int `yaml:"default_max_iterations" env:"DEFAULT_MAX_ITERATIONS"`
	// MaxIterationsLimit caps per-request budgets.
	MaxIterationsLimit int `yaml:"max_iterations_limit" env:"MAX_ITERATIONS_LIMIT"`
	// MaxSteps caps projections; 0 means unbounded.
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// RenderMaxPixels caps each side of a rendered image.
	RenderMaxPixels int `yaml:"render_max_pixels" env:"RENDER_MAX_PIXELS"`
}

type SnapshotConfig struct {
	Driver  string        `yaml:"driver" env:"DRIVER"`
	Mode    string        `yaml:"mode" env:"MODE"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// file
	Path string `yaml:"path" env:"PATH"`
	// sqlite, postgres
	DSN string `yaml:"dsn" env:"DSN"`
	// redis
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisKey      string `yaml:"redis_key" env:"REDIS_KEY"`
	// gcs
	GCSBucket string `yaml:"gcs_bucket" env:"GCS_BUCKET"`
	GCSObject string `yaml:"gcs_object" env:"GCS_OBJECT"`
}

// TracingConfig reads the standard OTEL_* variables so existing collector
// setups keep working.
type TracingConfig struct {
	Enabled     bool              `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint    string            `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool              `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	Headers     map[string]string `yaml:"headers" env:"OTEL_EXPORTER_OTLP_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	SampleRatio float64           `yaml:"sample_ratio" env:"OTEL_SAMPLER_RATIO"`
	ServiceName string            `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `yaml:"path" env:"METRICS_PATH"`
}

type Config struct {
	Env      string         `yaml:"env" env:"LOG_MODE"`
	Version  string         `yaml:"version" env:"LIFEBOARD_VERSION"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"LIFEBOARD_HTTP_"`
	Engine   EngineConfig   `yaml:"engine" envPrefix:"LIFEBOARD_ENGINE_"`
	Snapshot SnapshotConfig `yaml:"snapshot" envPrefix:"LIFEBOARD_SNAPSHOT_"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}
