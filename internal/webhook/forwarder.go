package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/eventbus"
	"github.com/cssbruno/waba-sandbox/internal/models"
	"github.com/cssbruno/waba-sandbox/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the HMAC of the delivery body, in the
// "sha256=<hex>" form the platform uses
const SignatureHeader = "X-Hub-Signature-256"

// Forwarder delivers resolved webhook payloads over HTTP, signing the body
// when the target carries a secret, and records the outcome on the event
// bus. It owns its own timeout; the core stays free of blocking I/O.
type Forwarder struct {
	client *http.Client
	bus    *eventbus.Bus
	logger *logrus.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Breaker
}

// NewForwarder creates a forwarder with the default delivery timeout
func NewForwarder(bus *eventbus.Bus, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		client: &http.Client{
			Timeout: time.Duration(constants.DefaultForwardTimeoutSec) * time.Second,
		},
		bus:      bus,
		logger:   logger,
		breakers: make(map[string]*circuitbreaker.Breaker),
	}
}

// breakerFor returns the circuit breaker guarding a target URL
func (f *Forwarder) breakerFor(url string) *circuitbreaker.Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	breaker, ok := f.breakers[url]
	if !ok {
		breaker = circuitbreaker.New(url, constants.BreakerMaxFailures, constants.BreakerCooldown)
		f.breakers[url] = breaker
	}
	return breaker
}

// Sign computes the hex HMAC-SHA256 of body under secret
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver POSTs payload to the resolved target and publishes a delivery
// event describing the outcome
func (f *Forwarder) Deliver(ctx context.Context, target models.ResolvedTarget, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to encode webhook payload")
	}

	breaker := f.breakerFor(target.URL)
	if !breaker.Allow() {
		openErr := &circuitbreaker.OpenError{Name: target.URL}
		f.recordOutcome(target, 0, openErr)
		return &errors.AppError{
			Code:    errors.ErrCodeDelivery,
			Message: "webhook target is unavailable",
			Cause:   openErr,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDelivery, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	if target.AppSecret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(body, target.AppSecret))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		breaker.RecordFailure()
		f.recordOutcome(target, 0, err)
		return &errors.AppError{
			Code:      errors.ErrCodeDelivery,
			Message:   "webhook delivery failed",
			Cause:     err,
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	retryable := resp.StatusCode >= 500 || resp.StatusCode == 429
	if retryable {
		breaker.RecordFailure()
	} else {
		// 4xx means the target is reachable; only transport-level and
		// server-side failures count against the breaker
		breaker.RecordSuccess()
	}

	f.recordOutcome(target, resp.StatusCode, nil)

	if resp.StatusCode >= 300 {
		appErr := errors.New(errors.ErrCodeDelivery, fmt.Sprintf("webhook target returned status %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("url", target.URL)
		appErr.Retryable = retryable
		return appErr
	}
	return nil
}

func (f *Forwarder) recordOutcome(target models.ResolvedTarget, status int, deliveryErr error) {
	eventType := models.EventWebhookDelivered
	if deliveryErr != nil || status >= 300 {
		eventType = models.EventWebhookFailed
	}

	meta := map[string]interface{}{
		"url":    target.URL,
		"source": target.Source,
	}
	if status > 0 {
		meta["status"] = status
	}
	if deliveryErr != nil {
		meta["error"] = deliveryErr.Error()
	}

	f.logger.WithFields(logrus.Fields{
		"url":    target.URL,
		"source": target.Source,
		"status": status,
	}).Debug("Webhook delivery finished")

	f.bus.Publish(models.SandboxEvent{
		Direction: models.DirectionOutbound,
		Type:      eventType,
		Source:    "forwarder",
		Payload:   map[string]interface{}{"url": target.URL},
		Meta:      meta,
	})
}
