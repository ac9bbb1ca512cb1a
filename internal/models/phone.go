package models

import "time"

// VerificationStatus is the code-verification state of a phone number
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "UNVERIFIED"
	VerificationPending    VerificationStatus = "PENDING"
	VerificationVerified   VerificationStatus = "VERIFIED"
)

// QualityRating mirrors the platform's traffic-quality signal
type QualityRating string

const (
	QualityGreen   QualityRating = "GREEN"
	QualityYellow  QualityRating = "YELLOW"
	QualityRed     QualityRating = "RED"
	QualityUnknown QualityRating = "UNKNOWN"
)

// ConversationalAutomationConfig holds the ice-breaker / command settings a
// number advertises to clients
type ConversationalAutomationConfig struct {
	EnableWelcomeMessage bool      `json:"enable_welcome_message"`
	Prompts              []string  `json:"prompts,omitempty"`
	Commands             []Command `json:"commands,omitempty"`
}

// Command is a single conversational command definition
type Command struct {
	Name        string `json:"command_name"`
	Description string `json:"command_description"`
}

// PhoneNumberConfig is the full lifecycle record of an originating number.
// Created on first registration reference, mutated in place, never deleted;
// deregistration flips Registered rather than removing the record.
type PhoneNumberConfig struct {
	ID                       string                         `json:"id"`
	DisplayNumber            string                         `json:"display_number"`
	WabaID                   string                         `json:"waba_id,omitempty"`
	WebhookOverride          string                         `json:"webhook_override,omitempty"`
	VerifiedName             string                         `json:"verified_name,omitempty"`
	QualityRating            QualityRating                  `json:"quality_rating"`
	VerificationStatus       VerificationStatus             `json:"verification_status"`
	PendingVerificationCode  string                         `json:"-"`
	TwoStepPin               string                         `json:"-"`
	AccountMode              string                         `json:"account_mode,omitempty"`
	Registered               bool                           `json:"registered"`
	DataLocalizationRegion   string                         `json:"data_localization_region,omitempty"`
	RegisterAttempts         []time.Time                    `json:"-"`
	DeregisterAttempts       []time.Time                    `json:"-"`
	ConversationalAutomation ConversationalAutomationConfig `json:"conversational_automation"`
}

// WabaOverrideConfig supplies a fallback webhook target for every number
// under a business account
type WabaOverrideConfig struct {
	WabaID              string `json:"waba_id"`
	OverrideCallbackURI string `json:"override_callback_uri,omitempty"`
	VerifyToken         string `json:"verify_token,omitempty"`
}
