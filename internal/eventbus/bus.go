package eventbus

import (
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/constants"
	"github.com/cssbruno/waba-sandbox/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Subscriber receives every event published after its registration.
// Callbacks run synchronously under the publish lock, so they must be fast
// and must not publish back into the bus.
type Subscriber func(models.SandboxEvent)

// Bus is an append-only bounded event log with synchronous fan-out. The log
// keeps the most recent entries up to its cap, oldest evicted first. Bus
// state lives for the process lifetime; there is no persistence.
type Bus struct {
	mu          sync.Mutex
	log         []models.SandboxEvent
	cap         int
	subscribers map[int]Subscriber
	nextSubID   int
	logger      *logrus.Logger
}

// New creates a bus with the default log cap
func New(logger *logrus.Logger) *Bus {
	return NewWithCap(constants.EventLogCap, logger)
}

// NewWithCap creates a bus with an explicit log cap
func NewWithCap(cap int, logger *logrus.Logger) *Bus {
	if cap <= 0 {
		cap = constants.EventLogCap
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Bus{
		cap:         cap,
		subscribers: make(map[int]Subscriber),
		logger:      logger,
	}
}

// Publish assigns an id and timestamp, appends the event to the log, and
// notifies all current subscribers. Append and fan-out happen as one atomic
// unit relative to concurrent publishes, so subscribers observe events in
// log order. A panicking subscriber is isolated from the log and from the
// other subscribers.
func (b *Bus) Publish(event models.SandboxEvent) models.SandboxEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	event.ID = uuid.NewString()
	event.Timestamp = time.Now()

	b.log = append(b.log, event)
	if len(b.log) > b.cap {
		b.log = b.log[len(b.log)-b.cap:]
	}

	for id, sub := range b.subscribers {
		b.notify(id, sub, event)
	}

	return event
}

func (b *Bus) notify(id int, sub Subscriber, event models.SandboxEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"event_type": event.Type,
				"panic":      r,
			}).Error("Event subscriber panicked")
		}
	}()
	sub(event)
}

// Subscribe registers a callback for future events and returns an
// unsubscribe func. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(sub Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = sub

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Recent returns up to n most recent events, oldest first. n <= 0 returns
// the whole log.
func (b *Bus) Recent(n int) []models.SandboxEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.log) {
		n = len(b.log)
	}
	out := make([]models.SandboxEvent, n)
	copy(out, b.log[len(b.log)-n:])
	return out
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Reset drops the log. Subscriptions survive.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = nil
}
