package phone

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/validation"
)

// Store holds the registration, verification, and routing state of every
// originating number, plus the WABA-level override registry. Number records
// are created lazily on first registration reference and never deleted;
// deregistration flips a flag.
type Store struct {
	mu      sync.RWMutex
	numbers map[string]*models.PhoneNumberConfig
	wabas   map[string]*models.WabaOverrideConfig
	now     func() time.Time
}

// NewStore creates an empty phone lifecycle store
func NewStore() *Store {
	return &Store{
		numbers: make(map[string]*models.PhoneNumberConfig),
		wabas:   make(map[string]*models.WabaOverrideConfig),
		now:     time.Now,
	}
}

// UpsertParams carries a phone config creation or patch. Nil pointer fields
// leave the existing value untouched.
type UpsertParams struct {
	ID                       string
	DisplayNumber            *string
	WabaID                   *string
	WebhookOverride          *string
	VerifiedName             *string
	QualityRating            *models.QualityRating
	AccountMode              *string
	ConversationalAutomation *models.ConversationalAutomationConfig
}

// Upsert creates or patches a phone config
func (s *Store) Upsert(params UpsertParams) (*models.PhoneNumberConfig, error) {
	if params.ID == "" {
		return nil, errors.NewValidationError("id", "phone number id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	number := s.ensureLocked(params.ID)
	if params.DisplayNumber != nil {
		number.DisplayNumber = *params.DisplayNumber
	}
	if params.WabaID != nil {
		number.WabaID = *params.WabaID
	}
	if params.WebhookOverride != nil {
		number.WebhookOverride = *params.WebhookOverride
	}
	if params.VerifiedName != nil {
		number.VerifiedName = *params.VerifiedName
	}
	if params.QualityRating != nil {
		number.QualityRating = *params.QualityRating
	}
	if params.AccountMode != nil {
		number.AccountMode = *params.AccountMode
	}
	if params.ConversationalAutomation != nil {
		number.ConversationalAutomation = *params.ConversationalAutomation
	}

	copied := *number
	return &copied, nil
}

// ensureLocked returns the record for id, creating it if absent. Callers
// hold s.mu.
func (s *Store) ensureLocked(id string) *models.PhoneNumberConfig {
	number, ok := s.numbers[id]
	if !ok {
		number = &models.PhoneNumberConfig{
			ID:                 id,
			QualityRating:      models.QualityUnknown,
			VerificationStatus: models.VerificationUnverified,
		}
		s.numbers[id] = number
	}
	return number
}

// Get returns a phone config, or a not-found error
func (s *Store) Get(id string) (*models.PhoneNumberConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	number, ok := s.numbers[id]
	if !ok {
		return nil, errors.NewNotFoundError("phone number", id)
	}
	copied := *number
	return &copied, nil
}

// List returns all phone configs ordered by id
func (s *Store) List() []*models.PhoneNumberConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.PhoneNumberConfig, 0, len(s.numbers))
	for _, number := range s.numbers {
		copied := *number
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// RequestCode starts (or restarts) verification for an existing number.
// Each request overwrites any prior pending code; there is only ever one
// outstanding code. The generated code is returned so the sandbox caller
// can complete the flow.
func (s *Store) RequestCode(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	number, ok := s.numbers[id]
	if !ok {
		return "", errors.NewNotFoundError("phone number", id)
	}

	code := fmt.Sprintf("%06d", rand.Intn(1000000))
	number.PendingVerificationCode = code
	number.VerificationStatus = models.VerificationPending
	return code, nil
}

// VerifyCode completes verification when the code matches the outstanding
// one
func (s *Store) VerifyCode(id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	number, ok := s.numbers[id]
	if !ok {
		return errors.NewNotFoundError("phone number", id)
	}
	if number.VerificationStatus != models.VerificationPending || number.PendingVerificationCode == "" {
		return errors.NewValidationError("code", "no verification code outstanding for this number")
	}
	if number.PendingVerificationCode != code {
		return errors.NewValidationError("code", "verification code does not match")
	}

	number.VerificationStatus = models.VerificationVerified
	number.PendingVerificationCode = ""
	return nil
}

// throttleLocked enforces the per-operation rolling-window attempt cap.
// It prunes the attempt list in place, and on success records the new
// attempt. Callers hold s.mu.
func (s *Store) throttleLocked(attempts *[]time.Time, operation string) error {
	now := s.now()
	cutoff := now.Add(-constants.RegistrationWindow)

	kept := (*attempts)[:0]
	for _, at := range *attempts {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	*attempts = kept

	if len(kept) >= constants.MaxRegistrationAttempts {
		retryAfter := kept[0].Add(constants.RegistrationWindow).Sub(now)
		return errors.NewRateLimitError(
			fmt.Sprintf("%s throttled: too many attempts", operation),
			len(kept), constants.MaxRegistrationAttempts, constants.RegistrationWindow,
		).WithRetryAfter(retryAfter)
	}

	*attempts = append(*attempts, now)
	return nil
}

// Register marks a number as registered. The number record is created
// lazily here. Requires a 6-digit numeric PIN; the optional data
// localization region must come from the allow-listed set. Throttled to 10
// calls per 72h per number.
func (s *Store) Register(id, pin, dataLocalizationRegion string) (*models.PhoneNumberConfig, error) {
	if id == "" {
		return nil, errors.NewValidationError("id", "phone number id is required")
	}
	if err := validation.ValidatePin(pin); err != nil {
		return nil, err
	}
	if dataLocalizationRegion != "" {
		if err := validation.ValidateRegion(dataLocalizationRegion); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	number := s.ensureLocked(id)
	if err := s.throttleLocked(&number.RegisterAttempts, "registration"); err != nil {
		return nil, err
	}

	number.TwoStepPin = pin
	number.Registered = true
	number.DataLocalizationRegion = dataLocalizationRegion

	copied := *number
	return &copied, nil
}

// Deregister clears the registered flag and the localization region,
// independent of PIN. Throttled like Register, on its own attempt window.
func (s *Store) Deregister(id string) (*models.PhoneNumberConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	number, ok := s.numbers[id]
	if !ok {
		return nil, errors.NewNotFoundError("phone number", id)
	}
	if err := s.throttleLocked(&number.DeregisterAttempts, "deregistration"); err != nil {
		return nil, err
	}

	number.Registered = false
	number.DataLocalizationRegion = ""

	copied := *number
	return &copied, nil
}

// VerifyPin checks a caller-supplied PIN against the stored one
func (s *Store) VerifyPin(id, pin string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	number, ok := s.numbers[id]
	if !ok {
		return errors.NewNotFoundError("phone number", id)
	}
	if number.TwoStepPin == "" || number.TwoStepPin != pin {
		return errors.NewValidationError("pin", "pin does not match")
	}
	return nil
}

// UpsertWaba creates or replaces a WABA-level override config
func (s *Store) UpsertWaba(config models.WabaOverrideConfig) (*models.WabaOverrideConfig, error) {
	if config.WabaID == "" {
		return nil, errors.NewValidationError("waba_id", "waba id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := config
	s.wabas[config.WabaID] = &copied

	out := copied
	return &out, nil
}

// GetWaba returns a WABA override config, or nil when none exists
func (s *Store) GetWaba(wabaID string) *models.WabaOverrideConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	waba, ok := s.wabas[wabaID]
	if !ok {
		return nil
	}
	copied := *waba
	return &copied
}

// ListWabas returns all WABA override configs ordered by id
func (s *Store) ListWabas() []*models.WabaOverrideConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.WabaOverrideConfig, 0, len(s.wabas))
	for _, waba := range s.wabas {
		copied := *waba
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WabaID < out[j].WabaID
	})
	return out
}
