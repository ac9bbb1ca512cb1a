package models

import "time"

// SendParams is the fully-validated input to a send simulation. Transport
// parsing and coercion happen in the route layer; the core only sees typed
// values.
type SendParams struct {
	NumberID     string
	Recipient    string
	Category     MessageCategory
	TemplateName string
	LanguageCode string
	Body         string
	ScheduledFor *time.Time
}

// SendRejection describes why a send was refused, with the evaluation
// snapshot that produced the refusal
type SendRejection struct {
	Stage   string                 `json:"stage"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

// SendDecision is the structured outcome of a send simulation
type SendDecision struct {
	Accepted    bool                   `json:"accepted"`
	MessageID   string                 `json:"message_id,omitempty"`
	Rejection   *SendRejection         `json:"rejection,omitempty"`
	Evaluations map[string]interface{} `json:"evaluations,omitempty"`
}

// ResolvedTarget is the webhook destination picked for a delivery
type ResolvedTarget struct {
	URL       string `json:"url"`
	Source    string `json:"source"`
	AppSecret string `json:"-"`
}

// Webhook target sources, recorded for observability
const (
	TargetSourcePhoneOverride = "phone_override"
	TargetSourceWabaOverride  = "waba_override"
	TargetSourceGlobalDefault = "global_default"
)
