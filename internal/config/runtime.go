package config

import (
	"sync"

	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/validation"
)

// Runtime holds the settings the admin API can change while the sandbox is
// running: the global webhook target and the marketing policy tuple. Reads
// vastly outnumber writes, so access goes through an RWMutex; evaluators
// read a value copy on every check and always see the latest settings.
type Runtime struct {
	mu        sync.RWMutex
	webhook   models.WebhookConfig
	marketing models.MarketingConfig
}

// NewRuntime seeds the runtime settings from the loaded configuration
func NewRuntime(cfg *models.Config) *Runtime {
	return &Runtime{
		webhook:   cfg.Webhook,
		marketing: cfg.Marketing,
	}
}

// WebhookConfig returns the current global webhook settings
func (r *Runtime) WebhookConfig() models.WebhookConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.webhook
}

// MarketingConfig returns the current marketing policy tuple
func (r *Runtime) MarketingConfig() models.MarketingConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.marketing
}

// UpdateWebhookParams patches the global webhook settings. Nil fields are
// left untouched.
type UpdateWebhookParams struct {
	DefaultURL *string
	Secret     *string
}

// UpdateWebhook applies a webhook settings patch
func (r *Runtime) UpdateWebhook(params UpdateWebhookParams) (models.WebhookConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := r.webhook
	if params.DefaultURL != nil {
		if *params.DefaultURL != "" {
			if err := validation.ValidateWebhookURL(*params.DefaultURL); err != nil {
				return models.WebhookConfig{}, err
			}
		}
		updated.DefaultURL = *params.DefaultURL
	}
	if params.Secret != nil {
		updated.Secret = *params.Secret
	}

	r.webhook = updated
	return updated, nil
}

// UpdateMarketingParams patches the marketing policy tuple. Nil fields are
// left untouched.
type UpdateMarketingParams struct {
	WindowHours       *int
	MaxSendsPerWindow *int
	RequireOptIn      *bool
}

// UpdateMarketing applies a marketing settings patch
func (r *Runtime) UpdateMarketing(params UpdateMarketingParams) (models.MarketingConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := r.marketing
	if params.WindowHours != nil {
		if *params.WindowHours <= 0 {
			return models.MarketingConfig{}, ErrBadMarketingCfg
		}
		updated.WindowHours = *params.WindowHours
	}
	if params.MaxSendsPerWindow != nil {
		if *params.MaxSendsPerWindow <= 0 {
			return models.MarketingConfig{}, ErrBadMarketingCfg
		}
		updated.MaxSendsPerWindow = *params.MaxSendsPerWindow
	}
	if params.RequireOptIn != nil {
		updated.RequireOptIn = *params.RequireOptIn
	}

	r.marketing = updated
	return updated, nil
}
