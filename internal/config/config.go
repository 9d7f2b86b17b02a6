// Package config provides configuration loading for otelsim.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for precedence details.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the complete otelsim configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Simulate  SimulateConfig  `koanf:"simulate"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// RateLimit caps simulate requests per second per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level  string              `koanf:"level"`
	Format string              `koanf:"format"`
	Output LoggingOutputConfig `koanf:"output"`
	Fields map[string]string   `koanf:"fields"`
}

// LoggingOutputConfig controls where logs are written.
type LoggingOutputConfig struct {
	Stdout bool `koanf:"stdout"`
	OTEL   bool `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled        bool                    `koanf:"enabled"`
	Endpoint       string                  `koanf:"endpoint"`
	Protocol       string                  `koanf:"protocol"` // "grpc" or "http/protobuf"
	ServiceName    string                  `koanf:"service_name"`
	ServiceVersion string                  `koanf:"service_version"`
	Insecure       bool                    `koanf:"insecure"`
	TLSSkipVerify  bool                    `koanf:"tls_skip_verify"`
	Sampling       TelemetrySamplingConfig `koanf:"sampling"`
	Metrics        TelemetryMetricsConfig  `koanf:"metrics"`
	Shutdown       TelemetryShutdownConfig `koanf:"shutdown"`
}

// TelemetrySamplingConfig controls trace sampling behavior.
type TelemetrySamplingConfig struct {
	Rate float64 `koanf:"rate"` // 0.0-1.0
}

// TelemetryMetricsConfig controls metrics export.
type TelemetryMetricsConfig struct {
	Enabled        bool     `koanf:"enabled"`
	ExportInterval Duration `koanf:"export_interval"`
}

// TelemetryShutdownConfig controls graceful shutdown behavior.
type TelemetryShutdownConfig struct {
	Timeout Duration `koanf:"timeout"`
}

// SimulateConfig tunes the workflow simulator.
type SimulateConfig struct {
	// DelayScale multiplies every step's planned delay. Lower it to make
	// demo runs snappier without changing workflow shape.
	DelayScale float64 `koanf:"delay_scale"`

	// Guards for request-supplied workflow definitions.
	MaxSteps int `koanf:"max_steps"`
	MaxDepth int `koanf:"max_depth"`
}

// NewDefaultConfig returns config with demo-ready defaults.
//
// Telemetry is enabled by default and points at a local OTLP collector;
// the service degrades gracefully when no collector is listening.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8081,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: LoggingOutputConfig{
				Stdout: true,
				OTEL:   false,
			},
			Fields: map[string]string{
				"service": "otelsim",
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			ServiceName:    "otelsim",
			ServiceVersion: "0.1.0",
			Insecure:       true,
			Sampling: TelemetrySamplingConfig{
				Rate: 1.0, // 100% for demos
			},
			Metrics: TelemetryMetricsConfig{
				Enabled:        true,
				ExportInterval: Duration(15 * time.Second),
			},
			Shutdown: TelemetryShutdownConfig{
				Timeout: Duration(5 * time.Second),
			},
		},
		Simulate: SimulateConfig{
			DelayScale: 1.0,
			MaxSteps:   100,
			MaxDepth:   8,
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Simulate.Validate(); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	return nil
}

// Validate checks server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be positive when rate_limit is set")
	}
	return nil
}

// Validate checks logging configuration.
func (c *LoggingConfig) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if !c.Output.Stdout && !c.Output.OTEL {
		return fmt.Errorf("at least one output must be enabled (stdout or otel)")
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}

// Validate checks telemetry configuration.
func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil // No validation needed if disabled
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required when telemetry is enabled")
	}
	if c.Protocol != "" && c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("protocol must be 'grpc' or 'http/protobuf', got %q", c.Protocol)
	}

	// Prevent insecure connections to remote endpoints
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false for TLS or use a local endpoint (localhost/127.0.0.1)")
	}

	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling.rate must be between 0 and 1, got %f", c.Sampling.Rate)
	}
	if c.Metrics.Enabled && c.Metrics.ExportInterval.Duration() <= 0 {
		return fmt.Errorf("metrics.export_interval must be positive when metrics enabled")
	}
	if c.Shutdown.Timeout.Duration() <= 0 {
		return fmt.Errorf("shutdown.timeout must be positive")
	}

	return nil
}

// Validate checks simulator configuration.
func (c *SimulateConfig) Validate() error {
	if c.DelayScale < 0 {
		return fmt.Errorf("delay_scale cannot be negative")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive")
	}
	return nil
}

// isLocalEndpoint checks if the endpoint is a local address.
func (c *TelemetryConfig) isLocalEndpoint() bool {
	host := c.Endpoint

	// Handle IPv6 addresses (may be bracketed like [::1]:4317)
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}

	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(c.Endpoint, "::1")
}
