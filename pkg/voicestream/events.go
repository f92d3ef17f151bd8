package voicestream

import "sync"

// EventType names an event on one of the SDK's event channels.
type EventType string

// Session-level events.
const (
	EventConnected              EventType = "connected"
	EventDisconnected           EventType = "disconnected"
	EventError                  EventType = "error"
	EventMessage                EventType = "message"
	EventAudioReceived          EventType = "audioReceived"
	EventAudioSent              EventType = "audioSent"
	EventTranscript             EventType = "transcript"
	EventAssistantMessage       EventType = "assistantMessage"
	EventFillerStarted          EventType = "fillerStarted"
	EventLlmRequired            EventType = "llmRequired"
	EventReady                  EventType = "ready"
	EventInterrupt              EventType = "interrupt"
	EventDiagnostic             EventType = "diagnostic"
	EventConnectionStateChanged EventType = "connectionStateChanged"
)

// Component-level events, observable on Transport, CapturePipeline and
// PlaybackPipeline directly.
const (
	EventTransportOpen  EventType = "open"
	EventTransportClose EventType = "close"
	EventBinaryMessage  EventType = "binaryMessage"
	EventTextMessage    EventType = "textMessage"
	EventCaptureData    EventType = "data"
	EventPlaybackStart  EventType = "started"
	EventPlaybackIdle   EventType = "idle"
)

// Event is delivered to subscribers. Data holds the event-specific payload
// (see the *Data types and *Error) and is nil for signal-only events.
type Event struct {
	Type EventType
	Data interface{}
}

// emitter is a minimal publish/subscribe channel with multiple subscribers
// per event type and unsubscribe handles. A panicking subscriber neither
// stops delivery to the others nor reaches the emitter.
type emitter struct {
	log  Logger
	mu   sync.Mutex
	next int
	subs map[EventType]map[int]func(Event)
}

func newEmitter(log Logger) *emitter {
	return &emitter{
		log:  log,
		subs: make(map[EventType]map[int]func(Event)),
	}
}

// on registers fn for events of type t and returns an unsubscribe handle.
// Unsubscribing twice is harmless.
func (e *emitter) on(t EventType, fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs[t] == nil {
		e.subs[t] = make(map[int]func(Event))
	}
	id := e.next
	e.next++
	e.subs[t][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[t]; m != nil {
			delete(m, id)
		}
	}
}

// emit delivers the event to every subscriber of t. Delivery order between
// subscribers is unspecified.
func (e *emitter) emit(t EventType, data interface{}) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs[t]))
	for _, fn := range e.subs[t] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	ev := Event{Type: t, Data: data}
	for _, fn := range fns {
		e.deliver(fn, ev)
	}
}

func (e *emitter) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event subscriber panicked", "event", string(ev.Type), "panic", r)
		}
	}()
	fn(ev)
}

// removeAll drops every subscription. Idempotent; used during teardown.
func (e *emitter) removeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = make(map[EventType]map[int]func(Event))
}
