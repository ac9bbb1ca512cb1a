package models

import "time"

// EventDirection marks which way a sandbox event flowed
type EventDirection string

const (
	DirectionInbound  EventDirection = "inbound"
	DirectionOutbound EventDirection = "outbound"
	DirectionSystem   EventDirection = "system"
)

// Sandbox event types published to the bus
const (
	EventSendAccepted      = "send.accepted"
	EventSendRejected      = "send.rejected"
	EventWebhookDelivered  = "webhook.delivered"
	EventWebhookFailed     = "webhook.failed"
	EventTemplateCreated   = "template.created"
	EventTemplateUpdated   = "template.updated"
	EventTemplateDeleted   = "template.deleted"
	EventPhoneRegistered   = "phone.registered"
	EventPhoneDeregistered = "phone.deregistered"
	EventPhoneVerified     = "phone.verified"
	EventConversion        = "marketing.conversion"
	EventSettingsUpdated   = "settings.updated"
)

// SandboxEvent is one immutable entry in the observation log. Events are
// kept in a capped ring and broadcast to live subscribers.
type SandboxEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Direction EventDirection         `json:"direction"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Payload   interface{}            `json:"payload"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}
