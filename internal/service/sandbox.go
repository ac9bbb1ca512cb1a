package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/eventbus"
	"github.com/cssbruno/waba-sandbox/internal/limits"
	"github.com/cssbruno/waba-sandbox/internal/marketing"
	"github.com/cssbruno/waba-sandbox/internal/metrics"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/internal/phone"
	"github.com/cssbruno/waba-sandbox/internal/policy"
	"github.com/cssbruno/waba-sandbox/internal/privacy"
	"github.com/cssbruno/waba-sandbox/internal/retry"
	"github.com/cssbruno/waba-sandbox/internal/template"
	"github.com/cssbruno/waba-sandbox/internal/validation"
	"github.com/cssbruno/waba-sandbox/internal/webhook"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Rejection stages, in pipeline order
const (
	StageValidation = "validation"
	StageTemplate   = "template"
	StagePolicy     = "policy"
	StageMarketing  = "marketing"
	StageFrequency  = "frequency"
	StageLimits     = "limits"
)

// Deliverer abstracts the forwarding collaborator so tests can observe
// deliveries without a live HTTP target
type Deliverer interface {
	Deliver(ctx context.Context, target models.ResolvedTarget, payload interface{}) error
}

// Sandbox runs the send-simulation pipeline across the core stores:
// policy, then marketing eligibility and frequency for marketing sends,
// then the messaging limit, then target resolution, short-circuiting on
// the first rejection. Acceptance registers the send and hands the
// delivery receipt to the forwarder.
type Sandbox struct {
	policies  *policy.Store
	marketing *marketing.Store
	limits    *limits.Tracker
	phones    *phone.Store
	templates *template.Store
	resolver  *webhook.Resolver
	forwarder Deliverer
	bus       *eventbus.Bus
	logger    *logrus.Logger

	mu          sync.Mutex
	numberLocks map[string]*sync.Mutex
}

// NewSandbox wires the send pipeline over its stores
func NewSandbox(
	policies *policy.Store,
	marketingStore *marketing.Store,
	tracker *limits.Tracker,
	phones *phone.Store,
	templates *template.Store,
	resolver *webhook.Resolver,
	forwarder Deliverer,
	bus *eventbus.Bus,
	logger *logrus.Logger,
) *Sandbox {
	return &Sandbox{
		policies:  policies,
		marketing: marketingStore,
		limits:    tracker,
		phones:    phones,
		templates: templates,
		resolver:  resolver,
		forwarder: forwarder,
		bus:       bus,
		logger:    logger,

		numberLocks: make(map[string]*sync.Mutex),
	}
}

// numberLock returns the mutex serializing quota admission for one number.
// Locks are created lazily and live for the process lifetime.
func (s *Sandbox) numberLock(numberID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.numberLocks[numberID]
	if !ok {
		lock = &sync.Mutex{}
		s.numberLocks[numberID] = lock
	}
	return lock
}

// SimulateSend runs the full decision pipeline for one send. Rejections
// come back as a non-accepted decision with the evaluation snapshot;
// validation failures, missing templates, and a missing delivery target
// come back as errors.
func (s *Sandbox) SimulateSend(ctx context.Context, params models.SendParams) (*models.SendDecision, error) {
	if params.NumberID == "" {
		return nil, errors.NewValidationError("number_id", "number id is required")
	}
	if err := validation.ValidatePhoneNumber(params.Recipient); err != nil {
		return nil, err
	}
	if params.Category == "" {
		params.Category = models.CategoryUnknown
	}
	if !models.ValidCategory(params.Category) {
		return nil, errors.NewValidationError("category", "unknown message category")
	}
	if params.TemplateName != "" && params.LanguageCode == "" {
		return nil, errors.NewValidationError("language_code", "language code is required with a template name")
	}

	evaluations := make(map[string]interface{})

	if params.TemplateName != "" {
		approved, err := s.templateApproved(params)
		if err != nil {
			return nil, err
		}
		if !approved {
			return s.reject(params, StageTemplate, errors.ErrCodePolicyRejected,
				"template is not approved for sending", evaluations), nil
		}
	}

	policyEval := s.policies.Evaluate(params.Recipient)
	evaluations["policy"] = policyEval
	if !policyEval.Allowed {
		return s.reject(params, StagePolicy, errors.ErrCodePolicyRejected, policyEval.Reason, evaluations), nil
	}

	if params.Category == models.CategoryMarketing {
		eligibility := s.marketing.EvaluateEligibility(params.Recipient)
		evaluations["eligibility"] = eligibility
		if !eligibility.Allowed {
			return s.reject(params, StageMarketing, errors.ErrCodePolicyRejected, eligibility.Reason, evaluations), nil
		}
	}

	rejected, target, messageID, err := s.admitAndRegister(params, evaluations)
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return rejected, nil
	}

	s.logger.WithFields(logrus.Fields(privacy.MaskFields(map[string]interface{}{
		"number_id":  params.NumberID,
		"recipient":  params.Recipient,
		"category":   params.Category,
		"message_id": messageID,
		"target":     target.Source,
	}))).Info("Send accepted")
	metrics.IncrementCounter("sends_accepted_total", map[string]string{
		"category": string(params.Category),
	}, "Accepted simulated sends")

	s.bus.Publish(models.SandboxEvent{
		Direction: models.DirectionOutbound,
		Type:      models.EventSendAccepted,
		Source:    "sandbox",
		Payload: map[string]interface{}{
			"message_id": messageID,
			"number_id":  params.NumberID,
			"recipient":  params.Recipient,
			"category":   params.Category,
		},
		Meta: evaluations,
	})

	go s.deliverReceipt(*target, params, messageID)

	return &models.SendDecision{
		Accepted:    true,
		MessageID:   messageID,
		Evaluations: evaluations,
	}, nil
}

// admitAndRegister runs the frequency and messaging-limit checks and, once
// both admit, registers the send. It holds the number's lock across the
// whole section so the registrations of concurrent sends for one number are
// serialized with their checks and neither bound can be jointly overshot.
// The accounting stores themselves never re-check on register.
func (s *Sandbox) admitAndRegister(params models.SendParams, evaluations map[string]interface{}) (*models.SendDecision, *models.ResolvedTarget, string, error) {
	lock := s.numberLock(params.NumberID)
	lock.Lock()
	defer lock.Unlock()

	if params.Category == models.CategoryMarketing {
		frequency := s.marketing.EvaluateFrequency(params.NumberID, params.Recipient)
		evaluations["frequency"] = frequency
		if !frequency.Allowed {
			return s.reject(params, StageFrequency, errors.ErrCodeRateLimit,
				"marketing frequency cap reached for this recipient", evaluations), nil, "", nil
		}
	}

	limitEval := s.limits.Evaluate(params.NumberID, params.Recipient)
	evaluations["limit"] = limitEval
	if !limitEval.Allowed {
		return s.reject(params, StageLimits, errors.ErrCodeRateLimit, limitEval.Reason, evaluations), nil, "", nil
	}

	wabaID := s.wabaFor(params.NumberID)
	target, err := s.resolver.Resolve(params.NumberID, wabaID)
	if err != nil {
		return nil, nil, "", err
	}
	evaluations["target_source"] = target.Source

	messageID := newMessageID()
	_, limitState := s.limits.Register(params.NumberID, params.Recipient, params.Category)
	evaluations["limit_state"] = limitState

	if params.Category == models.CategoryMarketing {
		record, err := s.marketing.RegisterSend(marketing.RegisterSendParams{
			NumberID:     params.NumberID,
			Recipient:    params.Recipient,
			TemplateName: params.TemplateName,
			LanguageCode: params.LanguageCode,
			Category:     params.Category,
			ScheduledFor: params.ScheduledFor,
		})
		if err != nil {
			return nil, nil, "", err
		}
		evaluations["marketing_send_id"] = record.ID
	}

	return nil, target, messageID, nil
}

// templateApproved applies the send gate: the referenced template must
// exist (under the number's WABA, falling back to the unscoped identity)
// and be APPROVED
func (s *Sandbox) templateApproved(params models.SendParams) (bool, error) {
	wabaID := s.wabaFor(params.NumberID)

	approved, err := s.templates.IsApproved(params.TemplateName, params.LanguageCode, wabaID)
	if err != nil && wabaID != "" && errors.IsCode(err, errors.ErrCodeNotFound) {
		approved, err = s.templates.IsApproved(params.TemplateName, params.LanguageCode, "")
	}
	if err != nil {
		return false, err
	}
	return approved, nil
}

func (s *Sandbox) wabaFor(numberID string) string {
	number, err := s.phones.Get(numberID)
	if err != nil {
		return ""
	}
	return number.WabaID
}

func (s *Sandbox) reject(params models.SendParams, stage string, code errors.ErrorCode, message string, evaluations map[string]interface{}) *models.SendDecision {
	s.logger.WithFields(logrus.Fields(privacy.MaskFields(map[string]interface{}{
		"number_id": params.NumberID,
		"recipient": params.Recipient,
		"stage":     stage,
		"reason":    message,
	}))).Info("Send rejected")
	metrics.IncrementCounter("sends_rejected_total", map[string]string{
		"stage": stage,
	}, "Rejected simulated sends")

	s.bus.Publish(models.SandboxEvent{
		Direction: models.DirectionSystem,
		Type:      models.EventSendRejected,
		Source:    "sandbox",
		Payload: map[string]interface{}{
			"number_id": params.NumberID,
			"recipient": params.Recipient,
			"stage":     stage,
			"reason":    message,
		},
		Meta: evaluations,
	})

	return &models.SendDecision{
		Accepted: false,
		Rejection: &models.SendRejection{
			Stage:   stage,
			Code:    string(code),
			Message: message,
			Detail:  evaluations,
		},
		Evaluations: evaluations,
	}
}

// deliverReceipt forwards the delivery-status webhook for an accepted
// send. Runs detached; the forwarder owns the timeout and records each
// attempt on the bus. Retryable failures are retried on a backoff
// schedule.
func (s *Sandbox) deliverReceipt(target models.ResolvedTarget, params models.SendParams, messageID string) {
	payload := statusPayload(params, messageID)
	schedule := retry.Policy{
		InitialDelay: constants.DeliveryRetryInitialDelay,
		MaxDelay:     constants.DeliveryRetryMaxDelay,
		Multiplier:   2.0,
		MaxAttempts:  constants.DeliveryRetryAttempts,
		Jitter:       true,
	}
	err := schedule.RetryIf(context.Background(), func() error {
		return s.forwarder.Deliver(context.Background(), target, payload)
	}, errors.IsRetryable)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"message_id": messageID,
			"url":        target.URL,
		}).Warnf("Delivery receipt forwarding failed: %v", err)
	}
}

// SendTestEvent resolves a target for the given phone/WABA and delivers a
// canned inbound message, exercising the full delivery path
func (s *Sandbox) SendTestEvent(ctx context.Context, phoneID, wabaID, from, body string) (*models.ResolvedTarget, error) {
	target, err := s.resolver.Resolve(phoneID, wabaID)
	if err != nil {
		return nil, err
	}

	if from == "" {
		from = "15550000001"
	}
	if body == "" {
		body = "Test message from the sandbox"
	}

	payload := inboundMessagePayload(phoneID, wabaID, from, body)
	s.bus.Publish(models.SandboxEvent{
		Direction: models.DirectionInbound,
		Type:      "webhook.test",
		Source:    "sandbox",
		Payload:   payload,
		Meta: map[string]interface{}{
			"target_source": target.Source,
			"url":           target.URL,
		},
	})

	if err := s.forwarder.Deliver(ctx, *target, payload); err != nil {
		return target, err
	}
	return target, nil
}

func newMessageID() string {
	return "wamid." + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// statusPayload builds the platform-shaped delivery receipt for an
// accepted send
func statusPayload(params models.SendParams, messageID string) map[string]interface{} {
	return map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []map[string]interface{}{{
			"id": params.NumberID,
			"changes": []map[string]interface{}{{
				"field": "messages",
				"value": map[string]interface{}{
					"messaging_product": "whatsapp",
					"metadata": map[string]interface{}{
						"phone_number_id": params.NumberID,
					},
					"statuses": []map[string]interface{}{{
						"id":           messageID,
						"status":       "sent",
						"timestamp":    time.Now().Unix(),
						"recipient_id": params.Recipient,
					}},
				},
			}},
		}},
	}
}

// inboundMessagePayload builds the platform-shaped inbound text message
// used by the webhook test endpoint
func inboundMessagePayload(phoneID, wabaID, from, body string) map[string]interface{} {
	entryID := wabaID
	if entryID == "" {
		entryID = phoneID
	}
	return map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []map[string]interface{}{{
			"id": entryID,
			"changes": []map[string]interface{}{{
				"field": "messages",
				"value": map[string]interface{}{
					"messaging_product": "whatsapp",
					"metadata": map[string]interface{}{
						"phone_number_id": phoneID,
					},
					"contacts": []map[string]interface{}{{
						"profile": map[string]interface{}{"name": "Sandbox Tester"},
						"wa_id":   from,
					}},
					"messages": []map[string]interface{}{{
						"id":        newMessageID(),
						"from":      from,
						"timestamp": time.Now().Unix(),
						"type":      "text",
						"text":      map[string]interface{}{"body": body},
					}},
				},
			}},
		}},
	}
}
