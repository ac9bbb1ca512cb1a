package constants

import "time"

// Messaging limit defaults
const (
	DefaultMessagingWindow = 24 * time.Hour

	TierLimit250  = 250
	TierLimit1K   = 1000
	TierLimit10K  = 10000
	TierLimit100K = 100000
)

// Per-category send cost in milli-cents. Illustrative unit pricing, not any
// vendor's actual rate card.
const (
	CostMarketingMillicents      = 75
	CostUtilityMillicents        = 20
	CostAuthenticationMillicents = 15
	CostUnknownMillicents        = 20
)

// Marketing defaults
const (
	DefaultMarketingWindow   = 24 * time.Hour
	DefaultMaxMarketingSends = 1
	DefaultRequireOptIn      = true
	MarketingLedgerCap       = 500
	ConversionLedgerCap      = 500
)

// Phone lifecycle defaults
const (
	RegistrationWindow      = 72 * time.Hour
	MaxRegistrationAttempts = 10
	VerificationCodeLength  = 6
	PinLength               = 6
)

// Event bus defaults
const (
	EventLogCap = 200
)

// Server defaults
const (
	DefaultServerPort            = 8082
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultRateLimitRequests     = 100
	DefaultRateLimitWindowSec    = 60
)

// Webhook forwarding defaults
const (
	DefaultForwardTimeoutSec = 10

	BreakerMaxFailures = 5
	BreakerCooldown    = 30 * time.Second

	DeliveryRetryAttempts     = 3
	DeliveryRetryInitialDelay = 200 * time.Millisecond
	DeliveryRetryMaxDelay     = 2 * time.Second
)
