package models

import "time"

// PolicyStatus is the explicit allow/block state of a contact
type PolicyStatus string

const (
	PolicyAllowed PolicyStatus = "allowed"
	PolicyBlocked PolicyStatus = "blocked"
	PolicyUnknown PolicyStatus = "unknown"
)

// ContactPolicy is the per-contact allow/block record. One per external id,
// mutated only via upsert, never deleted.
type ContactPolicy struct {
	ExternalID string       `json:"external_id"`
	Status     PolicyStatus `json:"status"`
	Label      string       `json:"label,omitempty"`
	Note       string       `json:"note,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// PolicyEvaluation is the result of evaluating a contact against the policy
// registry. Callers can distinguish explicit-allow, explicit-block, and
// no-record-default-allow via Status and Reason.
type PolicyEvaluation struct {
	Allowed bool         `json:"allowed"`
	Status  PolicyStatus `json:"status"`
	Reason  string       `json:"reason"`
}
