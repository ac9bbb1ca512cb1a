package marketing

import (
	"sort"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"

	"github.com/google/uuid"
)

// Eligibility reasons, kept stable for observability consumers
const (
	ReasonOptedIn        = "contact opted in"
	ReasonOptedOut       = "contact opted out"
	ReasonUnknownBlocked = "no opt-in record and opt-in is required"
	ReasonUnknownAllowed = "no opt-in record, opt-in not required"
)

// Settings supplies the runtime-mutable marketing policy tuple
type Settings interface {
	MarketingConfig() models.MarketingConfig
}

// Store is the marketing engine: opt-in registry, frequency-cap evaluator,
// and the send/conversion ledgers. Eligibility and frequency checks are
// advisory; RegisterSend records unconditionally and trusts the caller to
// have evaluated first.
type Store struct {
	mu          sync.RWMutex
	contacts    map[string]*models.MarketingContact
	ledger      []*models.MarketingSendRecord
	buckets     map[string][]time.Time
	conversions []*models.MarketingConversionEvent
	settings    Settings
	now         func() time.Time
}

// NewStore creates an empty marketing store bound to runtime settings
func NewStore(settings Settings) *Store {
	return &Store{
		contacts: make(map[string]*models.MarketingContact),
		buckets:  make(map[string][]time.Time),
		settings: settings,
		now:      time.Now,
	}
}

func bucketKey(numberID, recipient string) string {
	return numberID + "|" + recipient
}

// UpsertContactParams carries an opt-in record mutation
type UpsertContactParams struct {
	ExternalID string
	Status     models.OptInStatus
	Source     string
	Note       string
}

// UpsertContact creates or replaces the opt-in record for a contact
func (s *Store) UpsertContact(params UpsertContactParams) (*models.MarketingContact, error) {
	if params.ExternalID == "" {
		return nil, errors.NewValidationError("external_id", "external id is required")
	}
	switch params.Status {
	case models.OptedIn, models.OptedOut, models.OptInUnknown:
	default:
		return nil, errors.NewValidationError("opt_in_status", "status must be opted_in, opted_out, or unknown")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contact := &models.MarketingContact{
		ExternalID:  params.ExternalID,
		OptInStatus: params.Status,
		Source:      params.Source,
		Note:        params.Note,
		UpdatedAt:   s.now(),
	}
	s.contacts[params.ExternalID] = contact

	copied := *contact
	return &copied, nil
}

// GetContact returns the opt-in record for a contact, or nil when none
// exists
func (s *Store) GetContact(externalID string) *models.MarketingContact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[externalID]
	if !ok {
		return nil
	}
	copied := *contact
	return &copied
}

// ListContacts returns all opt-in records ordered by external id
func (s *Store) ListContacts() []*models.MarketingContact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MarketingContact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		copied := *contact
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}

// EvaluateEligibility applies the opt-in policy: opted_out always rejects,
// opted_in always allows, and an unknown contact is allowed only when
// requireOptIn is off.
func (s *Store) EvaluateEligibility(recipient string) models.EligibilityResult {
	cfg := s.settings.MarketingConfig()

	s.mu.RLock()
	contact, ok := s.contacts[recipient]
	s.mu.RUnlock()

	if !ok || contact.OptInStatus == models.OptInUnknown {
		if cfg.RequireOptIn {
			return models.EligibilityResult{Allowed: false, Status: models.OptInUnknown, Reason: ReasonUnknownBlocked}
		}
		return models.EligibilityResult{Allowed: true, Status: models.OptInUnknown, Reason: ReasonUnknownAllowed}
	}

	if contact.OptInStatus == models.OptedOut {
		return models.EligibilityResult{Allowed: false, Status: models.OptedOut, Reason: ReasonOptedOut}
	}
	return models.EligibilityResult{Allowed: true, Status: models.OptedIn, Reason: ReasonOptedIn}
}

// EvaluateFrequency applies the per-(number, recipient) cap over the
// configured window, independent of eligibility
func (s *Store) EvaluateFrequency(numberID, recipient string) models.FrequencyResult {
	cfg := s.settings.MarketingConfig()
	window := cfg.Window()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketKey(numberID, recipient)
	s.pruneBucket(key, window)
	count := len(s.buckets[key])

	return models.FrequencyResult{
		Allowed:       count < cfg.MaxSendsPerWindow,
		SendsInWindow: count,
		Max:           cfg.MaxSendsPerWindow,
		Window:        window,
	}
}

// pruneBucket drops entries older than the window. Callers hold s.mu.
func (s *Store) pruneBucket(key string, window time.Duration) {
	entries, ok := s.buckets[key]
	if !ok {
		return
	}
	cutoff := s.now().Add(-window)
	kept := entries[:0]
	for _, at := range entries {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.buckets, key)
		return
	}
	s.buckets[key] = kept
}

// RegisterSendParams carries a marketing send registration
type RegisterSendParams struct {
	NumberID     string
	Recipient    string
	TemplateName string
	LanguageCode string
	Category     models.MessageCategory
	ScheduledFor *time.Time
}

// RegisterSend records a send into the capped global ledger and the
// frequency bucket. It does not re-check eligibility or frequency.
func (s *Store) RegisterSend(params RegisterSendParams) (*models.MarketingSendRecord, error) {
	if params.NumberID == "" {
		return nil, errors.NewValidationError("number_id", "number id is required")
	}
	if params.Recipient == "" {
		return nil, errors.NewValidationError("recipient", "recipient is required")
	}

	category := params.Category
	if category == "" {
		category = models.CategoryMarketing
	}

	record := &models.MarketingSendRecord{
		ID:           uuid.NewString(),
		NumberID:     params.NumberID,
		Recipient:    params.Recipient,
		TemplateName: params.TemplateName,
		LanguageCode: params.LanguageCode,
		Category:     category,
		SentAt:       s.now(),
		ScheduledFor: params.ScheduledFor,
	}

	cfg := s.settings.MarketingConfig()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = append(s.ledger, record)
	if len(s.ledger) > constants.MarketingLedgerCap {
		s.ledger = s.ledger[len(s.ledger)-constants.MarketingLedgerCap:]
	}

	key := bucketKey(params.NumberID, params.Recipient)
	s.buckets[key] = append(s.buckets[key], record.EffectiveTime())
	s.pruneBucket(key, cfg.Window())

	copied := *record
	return &copied, nil
}

// ListSends returns up to limit most recent ledger entries, newest first.
// limit <= 0 returns the whole ledger.
func (s *Store) ListSends(limit int) []*models.MarketingSendRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.ledger) {
		limit = len(s.ledger)
	}
	out := make([]*models.MarketingSendRecord, 0, limit)
	for i := len(s.ledger) - 1; i >= len(s.ledger)-limit; i-- {
		copied := *s.ledger[i]
		out = append(out, &copied)
	}
	return out
}

// RecordConversionParams carries a conversion event registration
type RecordConversionParams struct {
	Recipient string
	SendID    string
	EventName string
	Value     float64
	Currency  string
	Metadata  map[string]interface{}
}

// RecordConversion appends an immutable conversion event to the capped ring
func (s *Store) RecordConversion(params RecordConversionParams) (*models.MarketingConversionEvent, error) {
	if params.Recipient == "" {
		return nil, errors.NewValidationError("recipient", "recipient is required")
	}
	if params.EventName == "" {
		return nil, errors.NewValidationError("event_name", "event name is required")
	}

	event := &models.MarketingConversionEvent{
		ID:        uuid.NewString(),
		Recipient: params.Recipient,
		SendID:    params.SendID,
		EventName: params.EventName,
		Value:     params.Value,
		Currency:  params.Currency,
		Metadata:  params.Metadata,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversions = append(s.conversions, event)
	if len(s.conversions) > constants.ConversionLedgerCap {
		s.conversions = s.conversions[len(s.conversions)-constants.ConversionLedgerCap:]
	}

	copied := *event
	return &copied, nil
}

// ListConversions returns up to limit most recent conversions, newest
// first. limit <= 0 returns everything.
func (s *Store) ListConversions(limit int) []*models.MarketingConversionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.conversions) {
		limit = len(s.conversions)
	}
	out := make([]*models.MarketingConversionEvent, 0, limit)
	for i := len(s.conversions) - 1; i >= len(s.conversions)-limit; i-- {
		copied := *s.conversions[i]
		out = append(out, &copied)
	}
	return out
}

// SendsInWindow reports the current bucket count for a (number, recipient)
// pair, for observability snapshots
func (s *Store) SendsInWindow(numberID, recipient string) int {
	cfg := s.settings.MarketingConfig()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketKey(numberID, recipient)
	s.pruneBucket(key, cfg.Window())
	return len(s.buckets[key])
}
