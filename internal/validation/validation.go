package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/errors"
)

// allowedRegions is the fixed set of data localization region codes the
// platform accepts
var allowedRegions = map[string]bool{
	"AE": true,
	"AU": true,
	"BH": true,
	"BR": true,
	"CA": true,
	"CH": true,
	"DE": true,
	"GB": true,
	"ID": true,
	"IN": true,
	"JP": true,
	"KR": true,
	"SG": true,
	"ZA": true,
}

// ValidatePhoneNumber validates recipient/number format and length
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return errors.NewValidationError("phone", "phone number cannot be empty")
	}

	cleaned := strings.TrimPrefix(phone, "+")
	if len(cleaned) < 7 {
		return errors.NewValidationError("phone", "phone number must be at least 7 digits")
	}
	if len(cleaned) > 20 {
		return errors.NewValidationError("phone", "phone number too long (max 20 digits)")
	}
	for _, char := range cleaned {
		if !unicode.IsDigit(char) {
			return errors.NewValidationError("phone", "phone number must contain only digits")
		}
	}
	return nil
}

// ValidatePin validates a two-step verification PIN: exactly 6 digits
func ValidatePin(pin string) error {
	if len(pin) != constants.PinLength {
		return errors.NewValidationError("pin", fmt.Sprintf("pin must be exactly %d digits", constants.PinLength))
	}
	for _, char := range pin {
		if !unicode.IsDigit(char) {
			return errors.NewValidationError("pin", "pin must contain only digits")
		}
	}
	return nil
}

// ValidateRegion validates a data localization region code against the
// allow-listed set
func ValidateRegion(region string) error {
	if !allowedRegions[strings.ToUpper(region)] {
		return errors.NewValidationError("data_localization_region", fmt.Sprintf("region %q is not supported", region))
	}
	return nil
}

// ValidateWebhookURL validates a webhook target: http(s) with a host
func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return errors.NewValidationError("url", "url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.NewValidationError("url", "url is not parseable")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.NewValidationError("url", "url scheme must be http or https")
	}
	if parsed.Host == "" {
		return errors.NewValidationError("url", "url must include a host")
	}
	return nil
}
