package policy

import (
	"sort"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
)

// Evaluation reasons, kept stable for observability consumers
const (
	ReasonExplicitAllow = "contact explicitly allowed"
	ReasonExplicitBlock = "contact explicitly blocked"
	ReasonDefaultAllow  = "no policy record, default allowed"
)

// Store is the per-contact allow/block registry. Records are keyed by
// external id, mutated only via upsert, and never deleted.
type Store struct {
	mu       sync.RWMutex
	contacts map[string]*models.ContactPolicy
	now      func() time.Time
}

// NewStore creates an empty policy registry
func NewStore() *Store {
	return &Store{
		contacts: make(map[string]*models.ContactPolicy),
		now:      time.Now,
	}
}

// UpsertParams carries a policy record mutation
type UpsertParams struct {
	ExternalID string
	Status     models.PolicyStatus
	Label      string
	Note       string
}

// Upsert creates or replaces the policy record for a contact
func (s *Store) Upsert(params UpsertParams) (*models.ContactPolicy, error) {
	if params.ExternalID == "" {
		return nil, errors.NewValidationError("external_id", "external id is required")
	}
	switch params.Status {
	case models.PolicyAllowed, models.PolicyBlocked, models.PolicyUnknown:
	default:
		return nil, errors.NewValidationError("status", "status must be allowed, blocked, or unknown")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contact := &models.ContactPolicy{
		ExternalID: params.ExternalID,
		Status:     params.Status,
		Label:      params.Label,
		Note:       params.Note,
		UpdatedAt:  s.now(),
	}
	s.contacts[params.ExternalID] = contact

	copied := *contact
	return &copied, nil
}

// Get returns the policy record for a contact, or nil when none exists
func (s *Store) Get(externalID string) *models.ContactPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[externalID]
	if !ok {
		return nil
	}
	copied := *contact
	return &copied
}

// Evaluate decides whether a contact may be messaged. A contact with no
// record is allowed by default, with a reason distinct from an explicit
// allow so callers can tell the cases apart. Only an explicit block is a
// hard rejection.
func (s *Store) Evaluate(externalID string) models.PolicyEvaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[externalID]
	if !ok {
		return models.PolicyEvaluation{
			Allowed: true,
			Status:  models.PolicyUnknown,
			Reason:  ReasonDefaultAllow,
		}
	}

	switch contact.Status {
	case models.PolicyBlocked:
		return models.PolicyEvaluation{
			Allowed: false,
			Status:  models.PolicyBlocked,
			Reason:  ReasonExplicitBlock,
		}
	case models.PolicyAllowed:
		return models.PolicyEvaluation{
			Allowed: true,
			Status:  models.PolicyAllowed,
			Reason:  ReasonExplicitAllow,
		}
	default:
		return models.PolicyEvaluation{
			Allowed: true,
			Status:  models.PolicyUnknown,
			Reason:  ReasonDefaultAllow,
		}
	}
}

// List returns all policy records ordered by external id
func (s *Store) List() []*models.ContactPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ContactPolicy, 0, len(s.contacts))
	for _, contact := range s.contacts {
		copied := *contact
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}
