package models

import "time"

// ConfigError represents a configuration validation failure
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port               int    `json:"port"`
	AdminToken         string `json:"adminToken,omitempty"`
	ReadTimeoutSec     int    `json:"readTimeoutSec"`
	WriteTimeoutSec    int    `json:"writeTimeoutSec"`
	IdleTimeoutSec     int    `json:"idleTimeoutSec"`
	RateLimitRequests  int    `json:"rateLimitRequests"`
	RateLimitWindowSec int    `json:"rateLimitWindowSec"`
}

// TracingConfig holds the OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

// WebhookConfig holds the global default delivery target
type WebhookConfig struct {
	DefaultURL string `json:"defaultUrl"`
	Secret     string `json:"secret,omitempty"`
	TimeoutSec int    `json:"timeoutSec"`
}

// MarketingConfig is the runtime-mutable marketing policy tuple
type MarketingConfig struct {
	WindowHours       int  `json:"windowHours"`
	MaxSendsPerWindow int  `json:"maxSendsPerWindow"`
	RequireOptIn      bool `json:"requireOptIn"`
}

// Window returns the frequency window as a duration
func (m MarketingConfig) Window() time.Duration {
	return time.Duration(m.WindowHours) * time.Hour
}

// Config is the top-level sandbox configuration
type Config struct {
	LogLevel  string          `json:"logLevel"`
	Server    ServerConfig    `json:"server"`
	Tracing   TracingConfig   `json:"tracing"`
	Webhook   WebhookConfig   `json:"webhook"`
	Marketing MarketingConfig `json:"marketing"`
}
