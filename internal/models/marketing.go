package models

import "time"

// OptInStatus is the marketing consent state of a contact
type OptInStatus string

const (
	OptedIn      OptInStatus = "opted_in"
	OptedOut     OptInStatus = "opted_out"
	OptInUnknown OptInStatus = "unknown"
)

// MarketingContact is the per-contact opt-in record. A contact can be
// policy-allowed and marketing-opted-out at the same time; the namespaces
// are distinct.
type MarketingContact struct {
	ExternalID  string      `json:"external_id"`
	OptInStatus OptInStatus `json:"opt_in_status"`
	Source      string      `json:"source,omitempty"`
	Note        string      `json:"note,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MarketingSendRecord is an immutable entry in the marketing send ledger
type MarketingSendRecord struct {
	ID           string          `json:"id"`
	NumberID     string          `json:"number_id"`
	Recipient    string          `json:"recipient"`
	TemplateName string          `json:"template_name,omitempty"`
	LanguageCode string          `json:"language_code,omitempty"`
	Category     MessageCategory `json:"category"`
	SentAt       time.Time       `json:"sent_at"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
}

// EffectiveTime returns the time the send counts against the frequency cap:
// the scheduled time when present, else the send time.
func (r *MarketingSendRecord) EffectiveTime() time.Time {
	if r.ScheduledFor != nil {
		return *r.ScheduledFor
	}
	return r.SentAt
}

// MarketingConversionEvent is an immutable conversion record tied to an
// earlier send
type MarketingConversionEvent struct {
	ID        string                 `json:"id"`
	Recipient string                 `json:"recipient"`
	SendID    string                 `json:"send_id,omitempty"`
	EventName string                 `json:"event_name"`
	Value     float64                `json:"value,omitempty"`
	Currency  string                 `json:"currency,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// EligibilityResult is the outcome of the opt-in check
type EligibilityResult struct {
	Allowed bool        `json:"allowed"`
	Status  OptInStatus `json:"status"`
	Reason  string      `json:"reason"`
}

// FrequencyResult is the outcome of the per-(number, recipient) frequency
// cap check
type FrequencyResult struct {
	Allowed       bool          `json:"allowed"`
	SendsInWindow int           `json:"sends_in_window"`
	Max           int           `json:"max"`
	Window        time.Duration `json:"window"`
}
