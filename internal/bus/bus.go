// Package bus implements the process-wide typed publish/subscribe event
// bus described in §4.A: handlers register by event kind, emission is
// best-effort and never raises to the emitter, and handler failures are
// isolated from each other and from the caller.
package bus

import (
	"log/slog"
	"sync"
)

// Kind identifies a registered event category. The core emits the fixed
// set named in §6 "Event bus topology"; downstream consumers may define
// their own for local fan-out.
type Kind string

const (
	KindSystemEvent   Kind = "system_event"
	KindToolCall      Kind = "tool_call"
	KindLLMRequest    Kind = "llm_request"
	KindLLMResponse   Kind = "llm_response"
	KindAgentResponse Kind = "agent_response"
)

// Event is the envelope delivered to handlers. Payload is kind-specific;
// handlers type-assert it the same way the donor's event store readers do.
type Event struct {
	Kind      Kind
	SessionID string
	Payload   any
}

// Handler processes one event. A handler that panics or returns is
// otherwise isolated: the bus recovers from panics so one bad handler
// cannot take down the emitter or other handlers (§4.A).
type Handler func(Event)

// Bus is the owning actor for subscriptions. Its exported methods are
// safe for concurrent use; subscription changes take a write lock but
// emission only takes a read lock, so emitting never blocks on other
// emitters (only on registration, which is rare and cheap).
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]subscription
	nextID   uint64
	log      *slog.Logger
}

type subscription struct {
	id uint64
	fn Handler
}

// SubscriptionID can be passed to Unsubscribe.
type SubscriptionID struct {
	kind Kind
	id   uint64
}

// New creates an empty Bus. log may be nil, in which case slog.Default() is used.
func New(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{handlers: make(map[Kind][]subscription), log: log}
}

// Subscribe registers fn to receive every event of the given kind.
// Handlers for the same kind are invoked in FIFO registration order
// (§4.A "FIFO per handler"); there is no ordering guarantee across kinds
// or across concurrent emitters.
func (b *Bus) Subscribe(kind Kind, fn Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, fn: fn})
	return SubscriptionID{kind: kind, id: id}
}

// Unsubscribe removes a previously registered handler. Unknown ids are ignored.
func (b *Bus) Unsubscribe(sub SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[sub.kind]
	for i, s := range subs {
		if s.id == sub.id {
			b.handlers[sub.kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to every handler registered for ev.Kind. Emit never
// returns an error and never panics: a handler panic is recovered and
// logged, and the remaining handlers still run.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.runIsolated(s.fn, ev)
	}
}

func (b *Bus) runIsolated(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event bus handler panicked", "kind", ev.Kind, "recover", r)
		}
	}()
	fn(ev)
}

// SystemEvent is the payload shape for KindSystemEvent, matching the
// fixed vocabulary in §6.
type SystemEvent struct {
	Name string
	Data map[string]any
}

// EmitSystem is a convenience wrapper for the common system_event case.
func (b *Bus) EmitSystem(sessionID, name string, data map[string]any) {
	b.Emit(Event{Kind: KindSystemEvent, SessionID: sessionID, Payload: SystemEvent{Name: name, Data: data}})
}
