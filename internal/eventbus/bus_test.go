package eventbus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cssbruno/waba-sandbox/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(cap int) *Bus {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewWithCap(cap, logger)
}

func TestPublish_AssignsIDAndTimestamp(t *testing.T) {
	bus := newTestBus(10)

	event := bus.Publish(models.SandboxEvent{
		Direction: models.DirectionSystem,
		Type:      models.EventSettingsUpdated,
		Source:    "test",
	})

	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestPublish_TrimsToCapPreservingOrder(t *testing.T) {
	bus := newTestBus(200)

	for i := 0; i < 250; i++ {
		bus.Publish(models.SandboxEvent{
			Direction: models.DirectionOutbound,
			Type:      models.EventSendAccepted,
			Source:    "test",
			Payload:   i,
		})
	}

	log := bus.Recent(0)
	require.Len(t, log, 200)
	for i, event := range log {
		assert.Equal(t, 50+i, event.Payload, "log should keep the most recent 200 in original order")
	}
}

func TestSubscribe_ReceivesEventsUntilUnsubscribed(t *testing.T) {
	bus := newTestBus(10)

	var received []models.SandboxEvent
	unsubscribe := bus.Subscribe(func(e models.SandboxEvent) {
		received = append(received, e)
	})

	bus.Publish(models.SandboxEvent{Type: "first"})
	unsubscribe()
	bus.Publish(models.SandboxEvent{Type: "second"})

	require.Len(t, received, 1)
	assert.Equal(t, "first", received[0].Type)
	assert.Equal(t, 0, bus.SubscriberCount())

	// Double unsubscribe is harmless
	unsubscribe()
}

func TestPublish_PanickingSubscriberIsIsolated(t *testing.T) {
	bus := newTestBus(10)

	var received int
	bus.Subscribe(func(e models.SandboxEvent) {
		panic("subscriber failure")
	})
	bus.Subscribe(func(e models.SandboxEvent) {
		received++
	})

	bus.Publish(models.SandboxEvent{Type: "test"})
	bus.Publish(models.SandboxEvent{Type: "test"})

	assert.Equal(t, 2, received, "healthy subscriber should still receive events")
	assert.Len(t, bus.Recent(0), 2, "log should not be corrupted by a failing subscriber")
}

func TestRecent_ReturnsRequestedWindow(t *testing.T) {
	bus := newTestBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(models.SandboxEvent{Payload: i})
	}

	recent := bus.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Payload)
	assert.Equal(t, 4, recent[1].Payload)

	assert.Len(t, bus.Recent(100), 5)
}

func TestReset_DropsLogKeepsSubscribers(t *testing.T) {
	bus := newTestBus(10)
	var received int
	bus.Subscribe(func(e models.SandboxEvent) { received++ })

	bus.Publish(models.SandboxEvent{})
	bus.Reset()
	assert.Empty(t, bus.Recent(0))

	bus.Publish(models.SandboxEvent{})
	assert.Equal(t, 2, received)
}

func TestPublish_ConcurrentPublishes(t *testing.T) {
	bus := newTestBus(1000)

	const goroutines = 20
	const perGoroutine = 10

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				bus.Publish(models.SandboxEvent{
					Source:  fmt.Sprintf("worker-%d", g),
					Payload: i,
				})
			}
		}(g)
	}
	wg.Wait()

	assert.Len(t, bus.Recent(0), goroutines*perGoroutine)
}
