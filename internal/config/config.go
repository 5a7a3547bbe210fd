// Package config loads pipectl settings from defaults, a config file,
// and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

// Environment variables consulted by ApplyEnv
const (
	EnvHome         = "PIPECTL_HOME"
	EnvAPIURL       = "PIPECTL_API_URL"
	EnvViteAPIURL   = "VITE_API_URL"
	EnvPollInterval = "PIPECTL_POLL_INTERVAL"
	EnvLogLevel     = "PIPECTL_LOG_LEVEL"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// MinPollInterval is the shortest accepted poll interval
const MinPollInterval = 100 * time.Millisecond

// Config is the effective pipectl configuration
type Config struct {
	APIURL         string          `yaml:"api_url" toml:"api_url" json:"api_url"`
	PollInterval   Duration        `yaml:"poll_interval" toml:"poll_interval" json:"poll_interval"`
	RequestTimeout Duration        `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`
	Log            LogConfig       `yaml:"log" toml:"log" json:"log"`
	Output         OutputConfig    `yaml:"output" toml:"output" json:"output"`
	Telemetry      TelemetryConfig `yaml:"telemetry" toml:"telemetry" json:"telemetry"`

	// Source is the file the config was read from, empty when only defaults apply
	Source string `yaml:"-" toml:"-" json:"-"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format" json:"format"` // text, json
	File   string `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
}

// OutputConfig controls command output
type OutputConfig struct {
	Format  string `yaml:"format" toml:"format" json:"format"` // text, json, yaml
	NoColor bool   `yaml:"no_color,omitempty" toml:"no_color,omitempty" json:"no_color,omitempty"`
}

// TelemetryConfig controls OpenTelemetry trace export
type TelemetryConfig struct {
	Endpoint   string  `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Insecure   bool    `yaml:"insecure,omitempty" toml:"insecure,omitempty" json:"insecure,omitempty"`
	SampleRate float64 `yaml:"sample_rate" toml:"sample_rate" json:"sample_rate"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		APIURL:         client.DefaultBaseURL,
		PollInterval:   Duration{time.Second},
		RequestTimeout: Duration{30 * time.Second},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			SampleRate: 1.0,
		},
	}
}

// Home returns the pipectl directory, $PIPECTL_HOME or ~/.pipectl
func Home() string {
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pipectl"
	}
	return filepath.Join(home, ".pipectl")
}

// DefaultPath returns the config file looked up when --config is not given.
// config.yaml wins; config.toml is used when it is the only one present.
func DefaultPath() string {
	yamlPath := filepath.Join(Home(), "config.yaml")
	if fileExists(yamlPath) {
		return yamlPath
	}
	tomlPath := filepath.Join(Home(), "config.toml")
	if fileExists(tomlPath) {
		return tomlPath
	}
	return yamlPath
}

// Load reads the config file at path on top of the defaults.
// With an empty path the default location is used, and a missing default
// file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if !fileExists(path) {
		if explicit {
			return nil, errors.NewConfigReadError(path, os.ErrNotExist)
		}
		return cfg, nil
	}

	if err := decodeFile(path, cfg); err != nil {
		return nil, errors.NewConfigReadError(path, err)
	}
	cfg.Source = path

	return cfg, nil
}

// ApplyEnv overlays environment variables. lookup is os.LookupEnv in
// production and a map in tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvViteAPIURL); ok && v != "" {
		c.APIURL = v
	}
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.APIURL = v
	}
	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewConfigInvalidError(EnvPollInterval, err.Error())
		}
		c.PollInterval = Duration{d}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok && v != "" {
		c.Telemetry.Endpoint = v
	}
	return nil
}

// Validate normalizes the API URL and checks every value
func (c *Config) Validate() error {
	c.APIURL = client.NormalizeBaseURL(c.APIURL)
	if c.APIURL == "" {
		return errors.NewConfigInvalidError("api_url", "must not be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return errors.NewConfigInvalidError("api_url", err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigInvalidError("api_url", fmt.Sprintf("%q must be an absolute http(s) URL", c.APIURL))
	}

	if c.PollInterval.Duration < MinPollInterval {
		return errors.NewConfigInvalidError("poll_interval", fmt.Sprintf("%s is below the minimum of %s", c.PollInterval, MinPollInterval))
	}
	if c.RequestTimeout.Duration <= 0 {
		return errors.NewConfigInvalidError("request_timeout", "must be positive")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewConfigInvalidError("telemetry.sample_rate", fmt.Sprintf("%g is outside [0, 1]", c.Telemetry.SampleRate))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewConfigInvalidError("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.NewConfigInvalidError("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	switch strings.ToLower(c.Output.Format) {
	case "text", "json", "yaml":
	default:
		return errors.NewConfigInvalidError("output.format", fmt.Sprintf("unknown format %q", c.Output.Format))
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
