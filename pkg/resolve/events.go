package resolve

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names a resolution lifecycle event.
type Event string

const (
	// EventResolutionStarted fires when a resolution request begins.
	EventResolutionStarted Event = "resolution-started"
	// EventResolutionCompleted fires when a resolution succeeds
	// (including cache hits).
	EventResolutionCompleted Event = "resolution-completed"
	// EventResolutionFailed fires when a resolution ends with errors.
	EventResolutionFailed Event = "resolution-failed"
)

// EventPayload carries the context of a lifecycle event.
type EventPayload struct {
	Event     Event
	RequestID string
	Request   *Request
	// Result is nil for EventResolutionStarted; for failures it carries
	// the partial result with Errors populated.
	Result   *Result
	Duration time.Duration
}

// Callback receives event payloads. Callbacks run synchronously on the
// resolving goroutine and must not block.
type Callback func(EventPayload)

// eventBus is a subscription registry with explicit unsubscribe tokens.
// Subscriptions are keyed by UUID so repeated subscribe/unsubscribe cycles
// never accumulate dead listeners.
type eventBus struct {
	mu   sync.RWMutex
	subs map[Event]map[string]Callback
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[Event]map[string]Callback)}
}

// subscribe registers fn for the event and returns an unsubscribe func.
// Unsubscribing twice is harmless.
func (b *eventBus) subscribe(event Event, fn Callback) func() {
	id := uuid.NewString()

	b.mu.Lock()
	if b.subs[event] == nil {
		b.subs[event] = make(map[string]Callback)
	}
	b.subs[event][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[event], id)
		b.mu.Unlock()
	}
}

// publish delivers the payload to all subscribers of payload.Event.
// The subscriber snapshot is taken under the read lock but callbacks run
// outside it, so a callback may itself subscribe or unsubscribe.
func (b *eventBus) publish(payload EventPayload) {
	b.mu.RLock()
	callbacks := make([]Callback, 0, len(b.subs[payload.Event]))
	for _, fn := range b.subs[payload.Event] {
		callbacks = append(callbacks, fn)
	}
	b.mu.RUnlock()

	for _, fn := range callbacks {
		fn(payload)
	}
}
