package models

import "time"

// TemplateStatus is the review lifecycle state of a message template
type TemplateStatus string

const (
	TemplatePending  TemplateStatus = "PENDING"
	TemplateApproved TemplateStatus = "APPROVED"
	TemplateRejected TemplateStatus = "REJECTED"
	TemplateInAppeal TemplateStatus = "IN_APPEAL"
	TemplateDisabled TemplateStatus = "DISABLED"
	TemplatePaused   TemplateStatus = "PAUSED"
)

// ValidTemplateStatus reports whether s is a known lifecycle state
func ValidTemplateStatus(s TemplateStatus) bool {
	switch s {
	case TemplatePending, TemplateApproved, TemplateRejected,
		TemplateInAppeal, TemplateDisabled, TemplatePaused:
		return true
	}
	return false
}

// RejectionReason is the fixed set of reasons a template review can cite
type RejectionReason string

const (
	RejectionPolicy            RejectionReason = "POLICY"
	RejectionSpam              RejectionReason = "SPAM"
	RejectionTrademark         RejectionReason = "TRADEMARK"
	RejectionIncorrectFormat   RejectionReason = "INCORRECT_FORMAT"
	RejectionProhibitedContent RejectionReason = "PROHIBITED_CONTENT"
	RejectionOther             RejectionReason = "OTHER"
)

// ValidRejectionReason reports whether r is a known rejection reason
func ValidRejectionReason(r RejectionReason) bool {
	switch r {
	case RejectionPolicy, RejectionSpam, RejectionTrademark,
		RejectionIncorrectFormat, RejectionProhibitedContent, RejectionOther:
		return true
	}
	return false
}

// Template component types
const (
	ComponentHeader  = "HEADER"
	ComponentBody    = "BODY"
	ComponentFooter  = "FOOTER"
	ComponentButtons = "BUTTONS"
)

// TemplateComponent is one structured piece of a template
type TemplateComponent struct {
	Type    string                   `json:"type"`
	Format  string                   `json:"format,omitempty"`
	Text    string                   `json:"text,omitempty"`
	Buttons []map[string]interface{} `json:"buttons,omitempty"`
}

// TemplateStatusChange is one audit entry in a template's status history
type TemplateStatusChange struct {
	Status    TemplateStatus  `json:"status"`
	Reason    RejectionReason `json:"reason,omitempty"`
	Note      string          `json:"note,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MessageTemplate is a reviewable message template. Lookup identity is the
// (name, language, wabaId) triple; the storage key is the opaque ID. Status
// changes append to StatusHistory, never rewrite it, and the last history
// entry always matches Status.
type MessageTemplate struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	LanguageCode    string                 `json:"language_code"`
	Category        string                 `json:"category,omitempty"`
	BodyText        string                 `json:"body_text"`
	HeaderText      string                 `json:"header_text,omitempty"`
	FooterText      string                 `json:"footer_text,omitempty"`
	Components      []TemplateComponent    `json:"components"`
	WabaID          string                 `json:"waba_id,omitempty"`
	Status          TemplateStatus         `json:"status"`
	StatusHistory   []TemplateStatusChange `json:"status_history"`
	RejectionReason RejectionReason        `json:"rejection_reason,omitempty"`
	RejectionNote   string                 `json:"rejection_note,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// TemplateFilter selects templates in list queries. Zero values mean "no
// constraint"; set fields are ANDed together.
type TemplateFilter struct {
	Name             string
	LanguageCode     string
	Statuses         []TemplateStatus
	Categories       []string
	RejectionReasons []RejectionReason
	Search           string
}

// TemplatePage is a cursor-delimited window of a template listing
type TemplatePage struct {
	Templates []*MessageTemplate `json:"templates"`
	Total     int                `json:"total"`
	Before    string             `json:"before,omitempty"`
	After     string             `json:"after,omitempty"`
	HasMore   bool               `json:"has_more"`
}
