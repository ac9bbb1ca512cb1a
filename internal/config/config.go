package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/validation"
)

var (
	ErrBadPort         = models.ConfigError{Message: "server port must be between 1 and 65535"}
	ErrBadWebhookURL   = models.ConfigError{Message: "default webhook URL is not a valid http(s) URL"}
	ErrBadMarketingCfg = models.ConfigError{Message: "marketing window and max sends must be positive"}
)

// LoadConfig reads the sandbox configuration file, applies defaults and
// environment overrides, and validates the result. A missing file is not
// an error; the sandbox runs entirely on defaults.
func LoadConfig(path string) (*models.Config, error) {
	config := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(file, config); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvironmentOverrides(config)
	applyDefaults(config)

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the built-in configuration the sandbox starts from
func Default() *models.Config {
	return &models.Config{
		LogLevel: "info",
		Server: models.ServerConfig{
			Port:               constants.DefaultServerPort,
			ReadTimeoutSec:     constants.DefaultServerReadTimeoutSec,
			WriteTimeoutSec:    constants.DefaultServerWriteTimeoutSec,
			IdleTimeoutSec:     constants.DefaultServerIdleTimeoutSec,
			RateLimitRequests:  constants.DefaultRateLimitRequests,
			RateLimitWindowSec: constants.DefaultRateLimitWindowSec,
		},
		Tracing: models.TracingConfig{
			ServiceName:    "waba-sandbox",
			ServiceVersion: "dev",
			Environment:    "development",
			SampleRate:     1.0,
		},
		Webhook: models.WebhookConfig{
			TimeoutSec: constants.DefaultForwardTimeoutSec,
		},
		Marketing: models.MarketingConfig{
			WindowHours:       int(constants.DefaultMarketingWindow.Hours()),
			MaxSendsPerWindow: constants.DefaultMaxMarketingSends,
			RequireOptIn:      constants.DefaultRequireOptIn,
		},
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			c.Server.Port = parsed
		}
	}
	if url := os.Getenv("SANDBOX_WEBHOOK_URL"); url != "" {
		c.Webhook.DefaultURL = url
	}

	// Secrets should come from the environment rather than the config file
	if secret := os.Getenv("SANDBOX_WEBHOOK_SECRET"); secret != "" {
		c.Webhook.Secret = secret
	}
	if token := os.Getenv("SANDBOX_ADMIN_TOKEN"); token != "" {
		c.Server.AdminToken = token
	}
}

func applyDefaults(c *models.Config) {
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.RateLimitRequests <= 0 {
		c.Server.RateLimitRequests = constants.DefaultRateLimitRequests
	}
	if c.Server.RateLimitWindowSec <= 0 {
		c.Server.RateLimitWindowSec = constants.DefaultRateLimitWindowSec
	}
	if c.Webhook.TimeoutSec <= 0 {
		c.Webhook.TimeoutSec = constants.DefaultForwardTimeoutSec
	}
	if c.Marketing.WindowHours <= 0 {
		c.Marketing.WindowHours = int(constants.DefaultMarketingWindow.Hours())
	}
	if c.Marketing.MaxSendsPerWindow <= 0 {
		c.Marketing.MaxSendsPerWindow = constants.DefaultMaxMarketingSends
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "waba-sandbox"
	}
}

func validate(c *models.Config) error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrBadPort
	}
	if c.Webhook.DefaultURL != "" {
		if err := validation.ValidateWebhookURL(c.Webhook.DefaultURL); err != nil {
			return ErrBadWebhookURL
		}
	}
	if c.Marketing.WindowHours <= 0 || c.Marketing.MaxSendsPerWindow <= 0 {
		return ErrBadMarketingCfg
	}
	return nil
}
