package limits

import (
	"fmt"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"
)

// tierLimits maps each tier to its unique-recipient bound. -1 means
// unlimited. Thresholds are illustrative, not any vendor's published
// numbers.
var tierLimits = map[models.MessagingTier]int{
	models.Tier250:       constants.TierLimit250,
	models.Tier1K:        constants.TierLimit1K,
	models.Tier10K:       constants.TierLimit10K,
	models.Tier100K:      constants.TierLimit100K,
	models.TierUnlimited: -1,
}

// TierLimit returns the unique-recipient bound for a tier, -1 for
// unlimited, and false for an unknown tier
func TierLimit(tier models.MessagingTier) (int, bool) {
	limit, ok := tierLimits[tier]
	return limit, ok
}

func categoryCost(category models.MessageCategory) int64 {
	switch category {
	case models.CategoryMarketing:
		return constants.CostMarketingMillicents
	case models.CategoryUtility:
		return constants.CostUtilityMillicents
	case models.CategoryAuthentication:
		return constants.CostAuthenticationMillicents
	default:
		return constants.CostUnknownMillicents
	}
}

// numberState is one number's quota state. All access goes through its own
// mutex so updates for a number are serialized while different numbers
// proceed in parallel.
type numberState struct {
	mu             sync.Mutex
	tier           models.MessagingTier
	window         time.Duration
	events         []models.SendEvent
	cumulativeCost int64
}

// prune drops events older than the rolling window. Callers hold s.mu.
func (s *numberState) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	idx := 0
	for idx < len(s.events) && s.events[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		s.events = append([]models.SendEvent(nil), s.events[idx:]...)
	}
}

// uniqueRecipients returns the distinct recipient set in-window. Callers
// hold s.mu and must prune first.
func (s *numberState) uniqueRecipients() map[string]struct{} {
	set := make(map[string]struct{}, len(s.events))
	for _, e := range s.events {
		set[e.Recipient] = struct{}{}
	}
	return set
}

// Tracker maintains per-number tiered quotas over distinct recipients in a
// rolling window, with per-category cost accounting. Number state is
// created lazily on first reference and lives for the process lifetime.
type Tracker struct {
	mu      sync.Mutex
	numbers map[string]*numberState
	window  time.Duration
	now     func() time.Time
}

// NewTracker creates a tracker with the default 24h window
func NewTracker() *Tracker {
	return NewTrackerWithWindow(constants.DefaultMessagingWindow)
}

// NewTrackerWithWindow creates a tracker with an explicit rolling window
func NewTrackerWithWindow(window time.Duration) *Tracker {
	if window <= 0 {
		window = constants.DefaultMessagingWindow
	}
	return &Tracker{
		numbers: make(map[string]*numberState),
		window:  window,
		now:     time.Now,
	}
}

func (t *Tracker) state(numberID string) *numberState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.numbers[numberID]
	if !ok {
		state = &numberState{
			tier:   models.Tier250,
			window: t.window,
		}
		t.numbers[numberID] = state
	}
	return state
}

// Evaluate decides whether a send to recipient counts against free quota.
// A recipient already inside the window's distinct set is always admitted;
// a new recipient is admitted only while the distinct set is below the
// tier bound.
func (t *Tracker) Evaluate(numberID, recipient string) models.LimitEvaluation {
	state := t.state(numberID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.prune(t.now())
	set := state.uniqueRecipients()
	limit := tierLimits[state.tier]

	eval := models.LimitEvaluation{
		Tier:                     state.tier,
		UniqueRecipientsInWindow: len(set),
		Limit:                    limit,
	}

	if _, known := set[recipient]; known {
		eval.Allowed = true
		return eval
	}
	if limit < 0 || len(set) < limit {
		eval.Allowed = true
		return eval
	}

	eval.Reason = fmt.Sprintf("messaging limit reached: %d unique recipients in window (tier %s)", len(set), state.tier)
	return eval
}

// Register appends a send event and accrues its category cost. It never
// re-checks the limit; callers must Evaluate first.
func (t *Tracker) Register(numberID, recipient string, category models.MessageCategory) (models.SendEvent, models.MessagingLimitSnapshot) {
	state := t.state(numberID)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := t.now()
	state.prune(now)

	event := models.SendEvent{
		Recipient: recipient,
		Category:  category,
		Timestamp: now,
		CostUnits: categoryCost(category),
	}
	state.events = append(state.events, event)
	state.cumulativeCost += event.CostUnits

	return event, t.snapshotLocked(numberID, state)
}

// SetTier changes a number's tier. The window and recorded events are
// unaffected; the new bound applies from the next evaluation.
func (t *Tracker) SetTier(numberID string, tier models.MessagingTier) error {
	if _, ok := tierLimits[tier]; !ok {
		return errors.NewValidationError("tier", fmt.Sprintf("unknown tier %q", tier))
	}

	state := t.state(numberID)
	state.mu.Lock()
	defer state.mu.Unlock()
	state.tier = tier
	return nil
}

// State returns a point-in-time snapshot of a number's quota state
func (t *Tracker) State(numberID string) models.MessagingLimitSnapshot {
	state := t.state(numberID)
	state.mu.Lock()
	defer state.mu.Unlock()

	state.prune(t.now())
	return t.snapshotLocked(numberID, state)
}

func (t *Tracker) snapshotLocked(numberID string, state *numberState) models.MessagingLimitSnapshot {
	return models.MessagingLimitSnapshot{
		NumberID:                 numberID,
		Tier:                     state.tier,
		Window:                   state.window,
		UniqueRecipientsInWindow: len(state.uniqueRecipients()),
		SendsInWindow:            len(state.events),
		CumulativeCostUnits:      state.cumulativeCost,
	}
}

// Reset drops a number's recorded sends and cost, keeping its tier
func (t *Tracker) Reset(numberID string) {
	state := t.state(numberID)
	state.mu.Lock()
	defer state.mu.Unlock()
	state.events = nil
	state.cumulativeCost = 0
}
