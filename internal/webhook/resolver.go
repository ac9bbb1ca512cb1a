package webhook

import (
	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
)

// PhoneDirectory is the slice of the phone store the resolver needs
type PhoneDirectory interface {
	Get(id string) (*models.PhoneNumberConfig, error)
	GetWaba(wabaID string) *models.WabaOverrideConfig
}

// Settings supplies the global default delivery target
type Settings interface {
	WebhookConfig() models.WebhookConfig
}

// Resolver picks the delivery destination for a simulated webhook.
// Precedence, first match wins: the phone's own override callback, the
// override of the phone's WABA, the override of an explicitly given WABA,
// then the global default.
type Resolver struct {
	phones   PhoneDirectory
	settings Settings
}

// NewResolver creates a resolver over the phone directory and runtime
// settings
func NewResolver(phones PhoneDirectory, settings Settings) *Resolver {
	return &Resolver{phones: phones, settings: settings}
}

// Resolve returns the delivery target for a phone and/or WABA. Both ids
// are optional. When no tier applies the result is an UNCONFIGURED error,
// deliberately distinct from not-found: the referenced entities may all
// exist and simply have nowhere to deliver to.
func (r *Resolver) Resolve(phoneID, wabaID string) (*models.ResolvedTarget, error) {
	if phoneID != "" {
		if number, err := r.phones.Get(phoneID); err == nil {
			if number.WebhookOverride != "" {
				return &models.ResolvedTarget{
					URL:    number.WebhookOverride,
					Source: models.TargetSourcePhoneOverride,
				}, nil
			}
			if number.WabaID != "" {
				if waba := r.phones.GetWaba(number.WabaID); waba != nil && waba.OverrideCallbackURI != "" {
					return &models.ResolvedTarget{
						URL:    waba.OverrideCallbackURI,
						Source: models.TargetSourceWabaOverride,
					}, nil
				}
			}
		}
	}

	if wabaID != "" {
		if waba := r.phones.GetWaba(wabaID); waba != nil && waba.OverrideCallbackURI != "" {
			return &models.ResolvedTarget{
				URL:    waba.OverrideCallbackURI,
				Source: models.TargetSourceWabaOverride,
			}, nil
		}
	}

	cfg := r.settings.WebhookConfig()
	if cfg.DefaultURL != "" {
		return &models.ResolvedTarget{
			URL:       cfg.DefaultURL,
			Source:    models.TargetSourceGlobalDefault,
			AppSecret: cfg.Secret,
		}, nil
	}

	return nil, errors.NewUnconfiguredError("no webhook target configured for this phone or waba")
}
