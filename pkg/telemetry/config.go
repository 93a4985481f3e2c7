package telemetry

import (
	"fmt"
	"time"
)

// Config contains the telemetry configuration for a controller process.
type Config struct {
	// ServiceName identifies this controller in traces. Defaults to "simbridge".
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the controller version.
	ServiceVersion string `yaml:"service_version"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures distributed tracing.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enable_caller"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter (otlp, stdout, none).
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64 `yaml:"sampling_rate"`

	// ExportTimeout bounds a single batch export.
	ExportTimeout time.Duration `yaml:"export_timeout"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name. Defaults to "simbridge".
	Namespace string `yaml:"namespace"`

	// ListenAddress is where the /metrics endpoint is served. Empty disables
	// the HTTP server; metrics can still be gathered from the registry.
	ListenAddress string `yaml:"listen_address"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "simbridge",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "simbridge",
		},
	}
}

// Validate checks the configuration for values the stack cannot start with.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp":
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("tracing endpoint is required for the otlp exporter")
			}
		case "stdout", "none":
		default:
			return fmt.Errorf("invalid trace exporter %q", c.Tracing.Exporter)
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("sampling rate %f out of range [0, 1]", c.Tracing.SamplingRate)
		}
	}
	return nil
}
