package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-depgraph/pkg/fetch"
	"github.com/dd0wney/cluso-depgraph/pkg/logging"
	"github.com/dd0wney/cluso-depgraph/pkg/validation"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

// Environment variables that override the file
const (
	EnvAPIURL   = "DEPGRAPH_API_URL"
	EnvAPIToken = "DEPGRAPH_API_TOKEN"
	EnvLogLevel = "LOG_LEVEL"
)

// Default values
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultGraphInterval = time.Minute
	DefaultLogLevel      = "info"
	DefaultLogOutput     = "stderr"

	// MinPollInterval keeps a misconfigured viewer from hammering the API
	MinPollInterval = 500 * time.Millisecond
)

// Config is the full configuration of the depgraph binaries
type Config struct {
	API     APIConfig                  `yaml:"api"`
	Polling PollingConfig              `yaml:"polling"`
	Layout  visualization.LayoutConfig `yaml:"layout"`
	Logging LoggingConfig              `yaml:"logging"`
	Metrics MetricsConfig              `yaml:"metrics"`
}

// APIConfig points at the Airflow UI API. An empty BaseURL with a Fixture
// path serves graphs from a YAML fixture instead.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	Fixture string        `yaml:"fixture"`
}

// PollingConfig sets the refresh cadence. GraphInterval 0 refetches the
// graph only on structural invalidation.
type PollingConfig struct {
	Interval      time.Duration `yaml:"interval"`
	GraphInterval time.Duration `yaml:"graph_interval" validate:"gte=0"`
}

// LoggingConfig selects the log level and destination
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Output string `yaml:"output"`
}

// MetricsConfig enables the /metrics and /health listener when Addr is set
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout: fetch.DefaultTimeout,
		},
		Polling: PollingConfig{
			Interval:      DefaultPollInterval,
			GraphInterval: DefaultGraphInterval,
		},
		Layout: visualization.DefaultLayoutConfig(),
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Output: DefaultLogOutput,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path loads only defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvAPIToken); ok && v != "" {
		c.API.Token = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("config")

	cv.Struct(c)
	cv.MinDuration("polling.interval", c.Polling.Interval, MinPollInterval)
	cv.When(c.Polling.GraphInterval > 0, func(cv *validation.ConfigValidator) {
		cv.Custom("polling.graph_interval", func() error {
			if c.Polling.GraphInterval < c.Polling.Interval {
				return fmt.Errorf("must not be shorter than polling.interval (%v)", c.Polling.Interval)
			}
			return nil
		})
	})
	cv.Custom("api", func() error {
		if c.API.BaseURL == "" && c.API.Fixture == "" {
			return errors.New("one of base_url or fixture is required")
		}
		return nil
	})
	return cv.Validate()
}

// NewLogger builds the JSON logger described by the logging section.
// The closer releases a log file and is a no-op for stdout and stderr.
func (c *Config) NewLogger() (*logging.JSONLogger, io.Closer, error) {
	return logging.NewLogger(c.Logging.Output, logging.ParseLevel(c.Logging.Level))
}
