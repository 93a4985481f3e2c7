// Package config loads and validates the controller's YAML configuration
// file: build connection settings, model library paths, session recording,
// and the telemetry stack.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/simbridge/simbridge/pkg/telemetry"
	"github.com/simbridge/simbridge/pkg/transport"
)

// Config is the root configuration for a controller process.
type Config struct {
	// Build configures the connection to the build.
	Build BuildConfig `yaml:"build"`

	// Librarian configures model record libraries.
	Librarian LibrarianConfig `yaml:"librarian"`

	// Recorder configures session recording.
	Recorder RecorderConfig `yaml:"recorder"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// BuildConfig configures the connection to the build.
type BuildConfig struct {
	// Address is the build's host:port.
	Address string `yaml:"address" validate:"required,hostname_port"`

	// Path is the WebSocket endpoint path.
	Path string `yaml:"path"`

	// DialTimeout bounds the initial handshake.
	DialTimeout time.Duration `yaml:"dial_timeout" validate:"min=0"`

	// DialRetries is how many times to retry the initial dial while the
	// build is still launching.
	DialRetries int `yaml:"dial_retries" validate:"min=0"`

	// WriteTimeout bounds a single frame send.
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"min=0"`

	// TargetFramerate asks the build to cap its framerate. Zero leaves the
	// build's default in place.
	TargetFramerate int `yaml:"target_framerate" validate:"min=0"`
}

// WebSocketConfig converts the build settings to a transport config.
func (c BuildConfig) WebSocketConfig() transport.WebSocketConfig {
	return transport.WebSocketConfig{
		Address:      c.Address,
		Path:         c.Path,
		DialTimeout:  c.DialTimeout,
		DialRetries:  c.DialRetries,
		WriteTimeout: c.WriteTimeout,
	}
}

// URL returns the build's WebSocket URL.
func (c BuildConfig) URL() string {
	u := url.URL{Scheme: "ws", Host: c.Address, Path: c.Path}
	return u.String()
}

// LibrarianConfig configures model record libraries.
type LibrarianConfig struct {
	// Paths lists directories of additional library JSON files. The core
	// library is always loaded.
	Paths []string `yaml:"paths" validate:"dive,required"`

	// Watch reloads libraries when files under Paths change.
	Watch bool `yaml:"watch"`
}

// RecorderConfig configures session recording.
type RecorderConfig struct {
	// Enabled turns session recording on.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// Default returns a configuration suitable for a local build.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			Address:      "localhost:1071",
			Path:         "/frames",
			DialTimeout:  10 * time.Second,
			DialRetries:  10,
			WriteTimeout: 30 * time.Second,
		},
		Recorder: RecorderConfig{
			Path: "simbridge.db",
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads a YAML configuration file, fills in defaults, and validates it.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Build.Path == "" {
		c.Build.Path = "/frames"
	}
	if c.Build.DialTimeout == 0 {
		c.Build.DialTimeout = 10 * time.Second
	}
	if c.Build.DialRetries == 0 {
		c.Build.DialRetries = 10
	}
	if c.Build.WriteTimeout == 0 {
		c.Build.WriteTimeout = 30 * time.Second
	}
	if c.Recorder.Path == "" {
		c.Recorder.Path = "simbridge.db"
	}
}

// Validate checks the configuration for values the controller cannot start
// with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Recorder.Enabled && c.Recorder.Path == "" {
		return fmt.Errorf("recorder is enabled but has no database path")
	}
	return c.Telemetry.Validate()
}
