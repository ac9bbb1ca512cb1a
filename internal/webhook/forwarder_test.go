package webhook

import (
	"context"
	"crypto/hmac"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/eventbus"
	"github.com/cssbruno/waba-sandbox/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestForwarder() (*Forwarder, *eventbus.Bus) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := eventbus.New(logger)
	return NewForwarder(bus, logger), bus
}

func TestDeliver_SignsBody(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	forwarder, bus := newTestForwarder()
	err := forwarder.Deliver(context.Background(), models.ResolvedTarget{
		URL:       server.URL,
		Source:    models.TargetSourceGlobalDefault,
		AppSecret: "s3cret",
	}, map[string]string{"hello": "world"})
	require.NoError(t, err)

	require.NotEmpty(t, gotSignature)
	assert.True(t, hmac.Equal(
		[]byte("sha256="+Sign(gotBody, "s3cret")),
		[]byte(gotSignature),
	))

	events := bus.Recent(0)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventWebhookDelivered, events[0].Type)
	assert.Equal(t, 200, events[0].Meta["status"])
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	var sawHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get(SignatureHeader) != ""
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	forwarder, _ := newTestForwarder()
	err := forwarder.Deliver(context.Background(), models.ResolvedTarget{URL: server.URL}, nil)
	require.NoError(t, err)
	assert.False(t, sawHeader)
}

func TestDeliver_TargetErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	forwarder, bus := newTestForwarder()
	err := forwarder.Deliver(context.Background(), models.ResolvedTarget{URL: server.URL}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDelivery, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))

	events := bus.Recent(0)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventWebhookFailed, events[0].Type)
}

func TestDeliver_ConnectionFailure(t *testing.T) {
	forwarder, bus := newTestForwarder()
	err := forwarder.Deliver(context.Background(), models.ResolvedTarget{
		URL: "http://127.0.0.1:1/unreachable",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDelivery, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))

	events := bus.Recent(0)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventWebhookFailed, events[0].Type)
	assert.Contains(t, events[0].Meta, "error")
}

func TestDeliver_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	forwarder, _ := newTestForwarder()
	target := models.ResolvedTarget{URL: server.URL}

	for i := 0; i < 5; i++ {
		err := forwarder.Deliver(context.Background(), target, nil)
		require.Error(t, err)
	}
	require.Equal(t, 5, hits)

	// The breaker is open; deliveries fail without reaching the target
	err := forwarder.Deliver(context.Background(), target, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDelivery, errors.GetCode(err))
	assert.False(t, errors.IsRetryable(err))
	assert.Equal(t, 5, hits)
}

func TestDeliver_ClientErrorDoesNotTripBreaker(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	forwarder, _ := newTestForwarder()
	target := models.ResolvedTarget{URL: server.URL}

	for i := 0; i < 10; i++ {
		err := forwarder.Deliver(context.Background(), target, nil)
		require.Error(t, err)
		assert.False(t, errors.IsRetryable(err))
	}
	assert.Equal(t, 10, hits)
}
