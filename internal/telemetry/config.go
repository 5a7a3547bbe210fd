package telemetry

import "strings"

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is reported as service.name on every span
	ServiceName string

	// ServiceVersion is reported as service.version on every span
	ServiceVersion string

	// Endpoint is the OTLP/HTTP collector, either host:port or a full URL.
	// Empty disables tracing.
	Endpoint string

	// Insecure sends host:port endpoints over plain HTTP
	Insecure bool

	// SampleRate is the fraction of traces to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a configuration with tracing disabled
func DefaultConfig() Config {
	return Config{
		ServiceName:    "pipectl",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}

// Enabled reports whether spans are exported
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

func (c Config) endpointIsURL() bool {
	return strings.Contains(c.Endpoint, "://")
}
