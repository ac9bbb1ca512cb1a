package policy

import (
	"testing"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_Validation(t *testing.T) {
	store := NewStore()

	_, err := store.Upsert(UpsertParams{Status: models.PolicyAllowed})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetCode(err))

	_, err = store.Upsert(UpsertParams{ExternalID: "c1", Status: "banned"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetCode(err))
}

func TestUpsert_CreatesAndReplaces(t *testing.T) {
	store := NewStore()

	first, err := store.Upsert(UpsertParams{ExternalID: "c1", Status: models.PolicyAllowed, Label: "vip"})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyAllowed, first.Status)
	assert.False(t, first.UpdatedAt.IsZero())

	second, err := store.Upsert(UpsertParams{ExternalID: "c1", Status: models.PolicyBlocked})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyBlocked, second.Status)
	assert.Empty(t, second.Label)

	got := store.Get("c1")
	require.NotNil(t, got)
	assert.Equal(t, models.PolicyBlocked, got.Status)
}

func TestUpsert_StampsInjectedClock(t *testing.T) {
	store := NewStore()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	contact, err := store.Upsert(UpsertParams{ExternalID: "c1", Status: models.PolicyAllowed})
	require.NoError(t, err)
	assert.True(t, contact.UpdatedAt.Equal(fixed))
}

func TestGet_MissingContact(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.Get("nobody"))
}

func TestEvaluate(t *testing.T) {
	store := NewStore()
	_, err := store.Upsert(UpsertParams{ExternalID: "allowed", Status: models.PolicyAllowed})
	require.NoError(t, err)
	_, err = store.Upsert(UpsertParams{ExternalID: "blocked", Status: models.PolicyBlocked})
	require.NoError(t, err)
	_, err = store.Upsert(UpsertParams{ExternalID: "unknown", Status: models.PolicyUnknown})
	require.NoError(t, err)

	tests := []struct {
		name        string
		externalID  string
		wantAllowed bool
		wantStatus  models.PolicyStatus
		wantReason  string
	}{
		{"explicit allow", "allowed", true, models.PolicyAllowed, ReasonExplicitAllow},
		{"explicit block", "blocked", false, models.PolicyBlocked, ReasonExplicitBlock},
		{"explicit unknown", "unknown", true, models.PolicyUnknown, ReasonDefaultAllow},
		{"no record", "stranger", true, models.PolicyUnknown, ReasonDefaultAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := store.Evaluate(tt.externalID)
			assert.Equal(t, tt.wantAllowed, eval.Allowed)
			assert.Equal(t, tt.wantStatus, eval.Status)
			assert.Equal(t, tt.wantReason, eval.Reason)
		})
	}
}

func TestList_OrderedByExternalID(t *testing.T) {
	store := NewStore()
	for _, id := range []string{"charlie", "alice", "bob"} {
		_, err := store.Upsert(UpsertParams{ExternalID: id, Status: models.PolicyAllowed})
		require.NoError(t, err)
	}

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].ExternalID)
	assert.Equal(t, "bob", list[1].ExternalID)
	assert.Equal(t, "charlie", list[2].ExternalID)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	_, err := store.Upsert(UpsertParams{ExternalID: "c1", Status: models.PolicyAllowed})
	require.NoError(t, err)

	got := store.Get("c1")
	got.Status = models.PolicyBlocked

	assert.True(t, store.Evaluate("c1").Allowed, "mutating a returned record must not affect the store")
}
