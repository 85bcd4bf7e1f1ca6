package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverGCS      = "gcs"
	DriverNone     = "none"
)

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			MaxRequestBytes:   10 << 20,
		},
		Engine: EngineConfig{
			DefaultMaxIterations: 1000,
			MaxIterationsLimit:   100000,
			MaxSteps:             0,
			RenderMaxPixels:      4096,
		},
		Snapshot: SnapshotConfig{
			Driver:    DriverFile,
			Mode:      "sync",
			Timeout:   10 * time.Second,
			Path:      filepath.Join("data", "boards.json"),
			RedisKey:  "lifeboard:snapshot",
			GCSObject: "lifeboard/boards.json",
		},
		Tracing: TracingConfig{
			SampleRatio: 0.1,
			ServiceName: "lifeboard",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("LIFEBOARD_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		// Decoding over the defaults keeps every key the file leaves out.
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Env = strings.TrimSpace(c.Env)
	if c.Env == "" {
		c.Env = "development"
	}
	c.HTTP.Addr = strings.TrimSpace(c.HTTP.Addr)
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 10 << 20
	}
	origins := c.HTTP.CORSOrigins[:0]
	for _, o := range c.HTTP.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.HTTP.CORSOrigins = origins

	c.Snapshot.Driver = strings.ToLower(strings.TrimSpace(c.Snapshot.Driver))
	if c.Snapshot.Driver == "" {
		c.Snapshot.Driver = DriverFile
	}
	c.Snapshot.Mode = strings.ToLower(strings.TrimSpace(c.Snapshot.Mode))
	if c.Snapshot.Mode == "" {
		c.Snapshot.Mode = "sync"
	}
	if c.Snapshot.Timeout <= 0 {
		c.Snapshot.Timeout = 10 * time.Second
	}
	c.Snapshot.Path = strings.TrimSpace(c.Snapshot.Path)
	c.Snapshot.DSN = strings.TrimSpace(c.Snapshot.DSN)
	c.Snapshot.RedisAddr = strings.TrimSpace(c.Snapshot.RedisAddr)
	c.Snapshot.GCSBucket = strings.TrimSpace(c.Snapshot.GCSBucket)

	c.Tracing.ServiceName = strings.TrimSpace(c.Tracing.ServiceName)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "lifeboard"
	}
	if c.Tracing.SampleRatio < 0 {
		c.Tracing.SampleRatio = 0
	}
	if c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}

	c.Metrics.Path = strings.TrimSpace(c.Metrics.Path)
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		c.Metrics.Path = "/" + c.Metrics.Path
	}

	return c.Validate()
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine.DefaultMaxIterations <= 0 {
		errs = append(errs, errors.New("engine.default_max_iterations must be positive"))
	}
	if c.Engine.MaxIterationsLimit < c.Engine.DefaultMaxIterations {
		errs = append(errs, fmt.Errorf("engine.max_iterations_limit (%d) must be >= engine.default_max_iterations (%d)",
			c.Engine.MaxIterationsLimit, c.Engine.DefaultMaxIterations))
	}
	if c.Engine.MaxSteps < 0 {
		errs = append(errs, errors.New("engine.max_steps must not be negative"))
	}
	if c.Engine.RenderMaxPixels <= 0 {
		errs = append(errs, errors.New("engine.render_max_pixels must be positive"))
	}

	switch c.Snapshot.Mode {
	case "sync", "async":
	default:
		errs = append(errs, fmt.Errorf("snapshot.mode %q must be sync or async", c.Snapshot.Mode))
	}
	switch c.Snapshot.Driver {
	case DriverFile:
		if c.Snapshot.Path == "" {
			errs = append(errs, errors.New("snapshot.path is required for the file driver"))
		}
	case DriverSQLite, DriverPostgres:
		if c.Snapshot.DSN == "" {
			errs = append(errs, fmt.Errorf("snapshot.dsn is required for the %s driver", c.Snapshot.Driver))
		}
	case DriverRedis:
		if c.Snapshot.RedisAddr == "" {
			errs = append(errs, errors.New("snapshot.redis_addr is required for the redis driver"))
		}
		if c.Snapshot.RedisDB < 0 {
			errs = append(errs, errors.New("snapshot.redis_db must not be negative"))
		}
	case DriverGCS:
		if c.Snapshot.GCSBucket == "" {
			errs = append(errs, errors.New("snapshot.gcs_bucket is required for the gcs driver"))
		}
	case DriverNone:
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot.driver %q", c.Snapshot.Driver))
	}

	return errors.Join(errs...)
}
