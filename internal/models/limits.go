package models

import "time"

// MessagingTier is a named quota level bounding unique recipients reachable
// per rolling window
type MessagingTier string

const (
	Tier250       MessagingTier = "TIER_250"
	Tier1K        MessagingTier = "TIER_1K"
	Tier10K       MessagingTier = "TIER_10K"
	Tier100K      MessagingTier = "TIER_100K"
	TierUnlimited MessagingTier = "TIER_UNLIMITED"
)

// MessageCategory classifies a send for pricing and compliance
type MessageCategory string

const (
	CategoryMarketing      MessageCategory = "MARKETING"
	CategoryUtility        MessageCategory = "UTILITY"
	CategoryAuthentication MessageCategory = "AUTHENTICATION"
	CategoryUnknown        MessageCategory = "UNKNOWN"
)

// ValidCategory reports whether c is a known message category
func ValidCategory(c MessageCategory) bool {
	switch c {
	case CategoryMarketing, CategoryUtility, CategoryAuthentication, CategoryUnknown:
		return true
	}
	return false
}

// SendEvent is an immutable record of one send against a number's quota
type SendEvent struct {
	Recipient string          `json:"recipient"`
	Category  MessageCategory `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
	CostUnits int64           `json:"cost_units"`
}

// MessagingLimitSnapshot is a point-in-time view of one number's quota state
type MessagingLimitSnapshot struct {
	NumberID                 string        `json:"number_id"`
	Tier                     MessagingTier `json:"tier"`
	Window                   time.Duration `json:"window"`
	UniqueRecipientsInWindow int           `json:"unique_recipients_in_window"`
	SendsInWindow            int           `json:"sends_in_window"`
	CumulativeCostUnits      int64         `json:"cumulative_cost_units"`
}

// LimitEvaluation is the outcome of a messaging-limit check
type LimitEvaluation struct {
	Allowed                  bool          `json:"allowed"`
	Tier                     MessagingTier `json:"tier"`
	UniqueRecipientsInWindow int           `json:"unique_recipients_in_window"`
	Limit                    int           `json:"limit"`
	Reason                   string        `json:"reason,omitempty"`
}
