package voicestream

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Session is the top-level orchestrator. It owns one transport, one capture
// pipeline, one playback pipeline and one echo coordinator, translates
// transport traffic into a unified session event stream, routes captured
// audio upstream and server audio into playback, and never exposes the
// internals of its components.
type Session struct {
	cfg    Config
	id     string
	log    Logger
	events *emitter

	transport *Transport
	capture   *CapturePipeline
	playback  *PlaybackPipeline
	echo      *EchoCoordinator

	mu        sync.Mutex
	streaming bool
	unsubs    []func()
}

// New creates a session with null audio devices. Useful for text-only or
// server-driven interactions; audio streaming will surface capture/playback
// errors if started.
func New(cfg Config) (*Session, error) {
	return NewWithDevices(cfg, NullCaptureDevice{}, NullPlaybackFactory)
}

// NewWithDevices creates a session with the given audio capabilities and no
// logging.
func NewWithDevices(cfg Config, capture CaptureDevice, playback PlaybackDeviceFactory) (*Session, error) {
	return NewWithLogger(cfg, capture, playback, &NoOpLogger{})
}

// NewWithLogger creates a fully wired session. The logger is threaded
// through to every subcomponent.
func NewWithLogger(cfg Config, capture CaptureDevice, playback PlaybackDeviceFactory, log Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = &NoOpLogger{}
	}

	s := &Session{
		cfg:       cfg,
		id:        uuid.NewString(),
		log:       log,
		events:    newEmitter(log),
		transport: newTransport(cfg, log),
		capture:   newCapturePipeline(cfg, capture, log),
		playback:  newPlaybackPipeline(cfg, playback, log),
	}
	s.echo = newEchoCoordinator(s.capture, s.playback, echoTailDelay, log)

	s.wireTransport()
	s.wireCapture()

	log.Debug("session created", "sessionID", s.id)
	return s, nil
}

// ID returns the unique id of this session, used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// On subscribes to session events and returns an unsubscribe handle.
func (s *Session) On(event EventType, fn func(Event)) func() {
	return s.events.on(event, fn)
}

// Connect opens the connection to the voice server.
func (s *Session) Connect() {
	s.log.Debug("connecting", "sessionID", s.id)
	s.transport.Connect()
}

// Disconnect stops audio streaming and closes the connection.
func (s *Session) Disconnect() {
	s.log.Debug("disconnecting", "sessionID", s.id)
	s.StopAudioStreaming()
	s.transport.Disconnect()
}

// IsConnected reports whether the session is connected to the server.
func (s *Session) IsConnected() bool {
	return s.transport.IsConnected()
}

// ConnectionState returns the current transport state.
func (s *Session) ConnectionState() ConnectionState {
	return s.transport.State()
}

// StartAudioStreaming starts microphone capture and marks the session as
// streaming. No-op if already streaming; logs and returns if not connected.
func (s *Session) StartAudioStreaming() {
	if !s.IsConnected() {
		s.log.Error("cannot start streaming: not connected")
		return
	}

	// Claim the flag in one critical section so concurrent callers cannot
	// both pass the guard.
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return
	}
	s.streaming = true
	s.mu.Unlock()

	s.capture.StartCapture()
	s.log.Debug("audio streaming started")
}

// StopAudioStreaming stops capture, clears pending playback and opens the
// mic. No-op if not streaming.
func (s *Session) StopAudioStreaming() {
	s.mu.Lock()
	if !s.streaming {
		s.mu.Unlock()
		return
	}
	s.streaming = false
	s.mu.Unlock()

	s.capture.StopCapture()
	s.playback.ClearQueue()
	s.echo.ForceUnmute()
	s.log.Debug("audio streaming stopped")
}

// IsStreaming reports whether audio streaming is active.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// EnsurePlayback documents playback-only mode (e.g. greeting audio before
// the mic is live): playback starts automatically when server audio
// arrives, so there is nothing to do.
func (s *Session) EnsurePlayback() {
	s.log.Debug("playback-only mode ensured")
}

// SendMessage sends a raw text frame to the server.
func (s *Session) SendMessage(text string) {
	s.transport.SendText(text)
}

// SendChatMessage sends a chat message (clinic mode).
func (s *Session) SendChatMessage(text string) {
	s.transport.SendJSON(map[string]interface{}{
		"type": "chat_message",
		"text": text,
	})
}

// SendLlmResponse sends a caller-supplied LLM answer to be spoken via TTS
// (clinic mode).
func (s *Session) SendLlmResponse(text string) {
	s.transport.SendJSON(map[string]interface{}{
		"type": "llm_response",
		"text": text,
	})
}

// ClearAudioQueue discards pending playback and force-unmutes the mic.
// Called internally on server interrupts and available to callers for
// user-triggered interrupts.
func (s *Session) ClearAudioQueue() {
	s.playback.ClearQueue()
	s.echo.ForceUnmute()
}

// Cleanup releases every resource owned by the session. The session must
// not be used afterwards.
func (s *Session) Cleanup() {
	s.StopAudioStreaming()
	s.echo.Destroy()
	s.capture.Cleanup()
	s.playback.Cleanup()
	s.transport.Cleanup()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.events.removeAll()
	s.log.Debug("session cleaned up", "sessionID", s.id)
}

func (s *Session) wireTransport() {
	s.unsubs = append(s.unsubs,
		s.transport.On(EventConnectionStateChanged, func(ev Event) {
			s.events.emit(EventConnectionStateChanged, ev.Data)
		}),
		s.transport.On(EventTransportOpen, func(Event) {
			s.events.emit(EventConnected, nil)
		}),
		s.transport.On(EventTransportClose, func(ev Event) {
			if s.IsStreaming() {
				s.StopAudioStreaming()
			}
			data, _ := ev.Data.(CloseData)
			s.events.emit(EventDisconnected, DisconnectedData{Reason: data.Reason})
		}),
		s.transport.On(EventError, func(ev Event) {
			s.events.emit(EventError, ev.Data)
		}),
		s.transport.On(EventBinaryMessage, func(ev Event) {
			pcm, _ := ev.Data.([]byte)
			s.playback.EnqueueAudio(pcm)
			s.events.emit(EventAudioReceived, pcm)
		}),
		s.transport.On(EventTextMessage, func(ev Event) {
			text, _ := ev.Data.(string)
			s.routeTextMessage(text)
		}),
	)
}

func (s *Session) wireCapture() {
	s.unsubs = append(s.unsubs,
		s.capture.On(EventCaptureData, func(ev Event) {
			pcm, _ := ev.Data.([]byte)
			s.transport.SendBinary(pcm)
			s.events.emit(EventAudioSent, pcm)
		}),
		s.capture.On(EventError, func(ev Event) {
			s.events.emit(EventError, ev.Data)
		}),
	)
}

// routeTextMessage parses an inbound text frame and routes it by its type
// discriminator. Anything unparseable or unrecognized passes through
// verbatim as EventMessage.
func (s *Session) routeTextMessage(text string) {
	var msg wireMessage
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		s.events.emit(EventMessage, text)
		return
	}

	switch msg.Type {
	case "transcript":
		lang := msg.Language
		if lang == "" {
			lang = "en"
		}
		s.events.emit(EventTranscript, TranscriptData{
			Text:             msg.Text,
			IsFinal:          msg.IsFinal,
			Language:         lang,
			RequiresResponse: msg.RequiresResponse,
		})

	case "assistant_message":
		s.events.emit(EventAssistantMessage, AssistantMessageData{Text: msg.Text})

	case "llm_required":
		question := msg.Question
		if question == "" {
			question = msg.Text
		}
		s.events.emit(EventLlmRequired, LlmRequiredData{Question: question})

	case "filler_started":
		s.events.emit(EventFillerStarted, nil)

	case "ready":
		s.events.emit(EventReady, nil)

	case "interrupt":
		s.ClearAudioQueue()
		s.events.emit(EventInterrupt, nil)

	case "diagnostic":
		s.events.emit(EventDiagnostic, DiagnosticData{Code: msg.Code, Message: msg.Message})

	case "pong":
		// Heartbeat ack.

	default:
		s.events.emit(EventMessage, text)
	}
}
