package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cssbruno/waba-sandbox/internal/config"
	apperrors "github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/eventbus"
	"github.com/cssbruno/waba-sandbox/internal/limits"
	"github.com/cssbruno/waba-sandbox/internal/marketing"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/phone"
	"github.com/cssbruno/waba-sandbox/internal/policy"
	"github.com/cssbruno/waba-sandbox/internal/template"
	"github.com/cssbruno/waba-sandbox/internal/webhook"
)

type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []models.ResolvedTarget
	delivered  chan struct{}
	err        error
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{delivered: make(chan struct{}, 16)}
}

func (d *recordingDeliverer) Deliver(ctx context.Context, target models.ResolvedTarget, payload interface{}) error {
	d.mu.Lock()
	d.deliveries = append(d.deliveries, target)
	d.mu.Unlock()
	d.delivered <- struct{}{}
	return d.err
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deliveries)
}

type sandboxFixture struct {
	sandbox   *Sandbox
	policies  *policy.Store
	marketing *marketing.Store
	limits    *limits.Tracker
	phones    *phone.Store
	templates *template.Store
	runtime   *config.Runtime
	bus       *eventbus.Bus
	deliverer *recordingDeliverer
}

func newFixture(t *testing.T) *sandboxFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Default()
	cfg.Webhook.DefaultURL = "https://receiver.example.com/webhook"
	runtime := config.NewRuntime(cfg)

	policies := policy.NewStore()
	marketingStore := marketing.NewStore(runtime)
	tracker := limits.NewTracker()
	phones := phone.NewStore()
	templates := template.NewStore()
	resolver := webhook.NewResolver(phones, runtime)
	bus := eventbus.New(logger)
	deliverer := newRecordingDeliverer()

	sandbox := NewSandbox(policies, marketingStore, tracker, phones, templates, resolver, deliverer, bus, logger)

	return &sandboxFixture{
		sandbox:   sandbox,
		policies:  policies,
		marketing: marketingStore,
		limits:    tracker,
		phones:    phones,
		templates: templates,
		runtime:   runtime,
		bus:       bus,
		deliverer: deliverer,
	}
}

func (f *sandboxFixture) waitForDelivery(t *testing.T) {
	t.Helper()
	select {
	case <-f.deliverer.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestSimulateSend_Accepted(t *testing.T) {
	f := newFixture(t)

	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryUtility,
	})
	require.NoError(t, err)
	require.True(t, decision.Accepted)
	assert.True(t, strings.HasPrefix(decision.MessageID, "wamid."))
	assert.Equal(t, models.TargetSourceGlobalDefault, decision.Evaluations["target_source"])

	f.waitForDelivery(t)
	assert.Equal(t, 1, f.deliverer.count())

	events := f.bus.Recent(10)
	require.NotEmpty(t, events)
	var sawAccepted bool
	for _, event := range events {
		if event.Type == models.EventSendAccepted {
			sawAccepted = true
		}
	}
	assert.True(t, sawAccepted)
}

func TestSimulateSend_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		params models.SendParams
	}{
		{"missing number id", models.SendParams{Recipient: "15551234567"}},
		{"bad recipient", models.SendParams{NumberID: "phone-1", Recipient: "abc"}},
		{"unknown category", models.SendParams{NumberID: "phone-1", Recipient: "15551234567", Category: "PROMO"}},
		{"template without language", models.SendParams{NumberID: "phone-1", Recipient: "15551234567", TemplateName: "promo_blast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := f.sandbox.SimulateSend(context.Background(), tt.params)
			require.Error(t, err)
			assert.Nil(t, decision)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
		})
	}
}

func TestSimulateSend_PolicyBlocked(t *testing.T) {
	f := newFixture(t)

	_, err := f.policies.Upsert(policy.UpsertParams{
		ExternalID: "15551234567",
		Status:     models.PolicyBlocked,
	})
	require.NoError(t, err)

	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryUtility,
	})
	require.NoError(t, err)
	require.False(t, decision.Accepted)
	require.NotNil(t, decision.Rejection)
	assert.Equal(t, StagePolicy, decision.Rejection.Stage)
	assert.Equal(t, string(apperrors.ErrCodePolicyRejected), decision.Rejection.Code)

	// Nothing was registered against the messaging limit
	assert.Equal(t, 0, f.deliverer.count())
}

func TestSimulateSend_MarketingOptOut(t *testing.T) {
	f := newFixture(t)

	_, err := f.marketing.UpsertContact(marketing.UpsertContactParams{
		ExternalID: "15551234567",
		Status:     models.OptedOut,
	})
	require.NoError(t, err)

	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryMarketing,
	})
	require.NoError(t, err)
	require.False(t, decision.Accepted)
	assert.Equal(t, StageMarketing, decision.Rejection.Stage)
}

func TestSimulateSend_MarketingRequiresOptIn(t *testing.T) {
	f := newFixture(t)

	// No contact record and RequireOptIn defaults to true
	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryMarketing,
	})
	require.NoError(t, err)
	require.False(t, decision.Accepted)
	assert.Equal(t, StageMarketing, decision.Rejection.Stage)

	// Utility sends to the same recipient remain unaffected
	decision, err = f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryUtility,
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	f.waitForDelivery(t)
}

func TestSimulateSend_MarketingFrequencyCap(t *testing.T) {
	f := newFixture(t)

	_, err := f.marketing.UpsertContact(marketing.UpsertContactParams{
		ExternalID: "15551234567",
		Status:     models.OptedIn,
	})
	require.NoError(t, err)

	first, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryMarketing,
	})
	require.NoError(t, err)
	require.True(t, first.Accepted)
	f.waitForDelivery(t)

	second, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryMarketing,
	})
	require.NoError(t, err)
	require.False(t, second.Accepted)
	assert.Equal(t, StageFrequency, second.Rejection.Stage)
	assert.Equal(t, string(apperrors.ErrCodeRateLimit), second.Rejection.Code)
}

func TestSimulateSend_LimitReached(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 250; i++ {
		recipient := "15550" + itoa6(i)
		f.limits.Register("phone-1", recipient, models.CategoryUtility)
	}

	// A known recipient is still deliverable
	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15550" + itoa6(0),
		Category:  models.CategoryUtility,
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	f.waitForDelivery(t)

	// A new recipient trips the tier bound
	decision, err = f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15559999999",
		Category:  models.CategoryUtility,
	})
	require.NoError(t, err)
	require.False(t, decision.Accepted)
	assert.Equal(t, StageLimits, decision.Rejection.Stage)
}

func itoa6(n int) string {
	digits := "000000"
	b := []byte(digits)
	for i := len(b) - 1; i >= 0 && n > 0; i-- {
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b)
}

func TestSimulateSend_ConcurrentSendsHoldTierBound(t *testing.T) {
	f := newFixture(t)

	// One short of the TIER_250 bound, so exactly one new recipient fits
	for i := 0; i < 249; i++ {
		f.limits.Register("phone-1", "15550"+itoa6(i), models.CategoryUtility)
	}

	const contenders = 8
	var wg sync.WaitGroup
	decisions := make(chan *models.SendDecision, contenders)
	failures := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		recipient := "15551" + itoa6(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
				NumberID:  "phone-1",
				Recipient: recipient,
				Category:  models.CategoryUtility,
			})
			if err != nil {
				failures <- err
				return
			}
			decisions <- decision
		}()
	}
	wg.Wait()
	close(decisions)
	close(failures)

	for err := range failures {
		require.NoError(t, err)
	}

	accepted := 0
	for decision := range decisions {
		if decision.Accepted {
			accepted++
			continue
		}
		assert.Equal(t, StageLimits, decision.Rejection.Stage)
	}
	assert.Equal(t, 1, accepted)

	snapshot := f.limits.State("phone-1")
	assert.Equal(t, 250, snapshot.UniqueRecipientsInWindow)
	f.waitForDelivery(t)
}

func TestSimulateSend_ConcurrentMarketingSendsHoldFrequencyCap(t *testing.T) {
	f := newFixture(t)

	_, err := f.marketing.UpsertContact(marketing.UpsertContactParams{
		ExternalID: "15551234567",
		Status:     models.OptedIn,
	})
	require.NoError(t, err)

	const contenders = 8
	var wg sync.WaitGroup
	decisions := make(chan *models.SendDecision, contenders)
	failures := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
				NumberID:  "phone-1",
				Recipient: "15551234567",
				Category:  models.CategoryMarketing,
			})
			if err != nil {
				failures <- err
				return
			}
			decisions <- decision
		}()
	}
	wg.Wait()
	close(decisions)
	close(failures)

	for err := range failures {
		require.NoError(t, err)
	}

	accepted := 0
	for decision := range decisions {
		if decision.Accepted {
			accepted++
			continue
		}
		assert.Equal(t, StageFrequency, decision.Rejection.Stage)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, f.marketing.SendsInWindow("phone-1", "15551234567"))
	assert.Len(t, f.marketing.ListSends(0), 1)
	f.waitForDelivery(t)
}

func TestSimulateSend_UnconfiguredTarget(t *testing.T) {
	f := newFixture(t)

	url := ""
	_, err := f.runtime.UpdateWebhook(config.UpdateWebhookParams{DefaultURL: &url})
	require.NoError(t, err)

	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryUtility,
	})
	require.Error(t, err)
	assert.Nil(t, decision)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnconfigured))
}

func TestSimulateSend_TemplateGate(t *testing.T) {
	f := newFixture(t)

	created, err := f.templates.Create(template.CreateParams{
		Name:         "order_update",
		LanguageCode: "en_US",
		Category:     "UTILITY",
		BodyText:     "Your order has shipped",
	})
	require.NoError(t, err)

	// Pending template is not sendable
	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:     "phone-1",
		Recipient:    "15551234567",
		Category:     models.CategoryUtility,
		TemplateName: "order_update",
		LanguageCode: "en_US",
	})
	require.NoError(t, err)
	require.False(t, decision.Accepted)
	assert.Equal(t, StageTemplate, decision.Rejection.Stage)

	_, err = f.templates.UpdateStatus(template.UpdateStatusParams{
		ID:     created.ID,
		Status: models.TemplateApproved,
	})
	require.NoError(t, err)

	decision, err = f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:     "phone-1",
		Recipient:    "15551234567",
		Category:     models.CategoryUtility,
		TemplateName: "order_update",
		LanguageCode: "en_US",
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	f.waitForDelivery(t)

	// Unknown template is an error, not a rejection
	decision, err = f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:     "phone-1",
		Recipient:    "15551234567",
		Category:     models.CategoryUtility,
		TemplateName: "never_created",
		LanguageCode: "en_US",
	})
	require.Error(t, err)
	assert.Nil(t, decision)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestSimulateSend_PhoneOverrideTarget(t *testing.T) {
	f := newFixture(t)

	override := "https://override.example.com/hook"
	_, err := f.phones.Upsert(phone.UpsertParams{
		ID:              "phone-1",
		WebhookOverride: &override,
	})
	require.NoError(t, err)

	decision, err := f.sandbox.SimulateSend(context.Background(), models.SendParams{
		NumberID:  "phone-1",
		Recipient: "15551234567",
		Category:  models.CategoryUtility,
	})
	require.NoError(t, err)
	require.True(t, decision.Accepted)
	assert.Equal(t, models.TargetSourcePhoneOverride, decision.Evaluations["target_source"])

	f.waitForDelivery(t)
	assert.Equal(t, override, f.deliverer.deliveries[0].URL)
}

func TestSendTestEvent(t *testing.T) {
	f := newFixture(t)

	target, err := f.sandbox.SendTestEvent(context.Background(), "phone-1", "", "", "")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, models.TargetSourceGlobalDefault, target.Source)

	f.waitForDelivery(t)

	events := f.bus.Recent(5)
	require.NotEmpty(t, events)
	var sawTest bool
	for _, event := range events {
		if event.Type == "webhook.test" {
			sawTest = true
			assert.Equal(t, models.DirectionInbound, event.Direction)
		}
	}
	assert.True(t, sawTest)
}

func TestSendTestEvent_Unconfigured(t *testing.T) {
	f := newFixture(t)

	url := ""
	_, err := f.runtime.UpdateWebhook(config.UpdateWebhookParams{DefaultURL: &url})
	require.NoError(t, err)

	target, err := f.sandbox.SendTestEvent(context.Background(), "phone-1", "", "", "")
	require.Error(t, err)
	assert.Nil(t, target)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnconfigured))
}
