// Package privacy masks subscriber identifiers before they reach logs.
package privacy

import "strings"

// MaskPhone hides all but the last four digits of a phone number.
// "+15551234567" becomes "+*******4567".
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}

	prefix := ""
	digits := phone
	if strings.HasPrefix(phone, "+") {
		prefix = "+"
		digits = phone[1:]
	}

	if len(digits) <= 4 {
		return prefix + strings.Repeat("*", len(digits))
	}
	return prefix + strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// maskedKeys are log field names whose values are phone numbers
var maskedKeys = map[string]bool{
	"recipient": true,
	"to":        true,
	"from":      true,
	"phone":     true,
}

// MaskFields returns a copy of fields with phone-number values masked
func MaskFields(fields map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if maskedKeys[key] {
			if s, ok := value.(string); ok {
				masked[key] = MaskPhone(s)
				continue
			}
		}
		masked[key] = value
	}
	return masked
}
