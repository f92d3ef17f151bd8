package voicestream

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ConnectionState is the transport lifecycle state. Exactly one value holds
// at any time; changes are announced via EventConnectionStateChanged, and
// only when the value actually changes.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// CloseData is the payload of EventTransportClose.
type CloseData struct {
	Code   int
	Reason string
}

const (
	channelMarker = "go-sdk"
	writeTimeout  = 10 * time.Second
	readLimit     = 10 * 1024 * 1024
)

// Transport owns the websocket connection lifecycle: connect, manual
// disconnect, reconnect with jittered backoff, keep-alive pings, the
// tenant handshake, and binary/text message framing.
type Transport struct {
	cfg    Config
	log    Logger
	events *emitter

	mu       sync.Mutex
	state    ConnectionState
	conn     *websocket.Conn
	gen      int // bumped on every teardown so stale read loops are ignored
	attempts int
	manual   bool

	reconnectTimer *time.Timer
	pingStop       chan struct{}
}

func newTransport(cfg Config, log Logger) *Transport {
	return &Transport{
		cfg:    cfg,
		log:    log,
		events: newEmitter(log),
		state:  StateDisconnected,
	}
}

// On subscribes to transport events and returns an unsubscribe handle.
func (t *Transport) On(event EventType, fn func(Event)) func() {
	return t.events.on(event, fn)
}

// State returns the current connection state.
func (t *Transport) State() ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsConnected reports whether the connection is open.
func (t *Transport) IsConnected() bool {
	return t.State() == StateConnected
}

// Connect opens the connection. No-op while already connected or
// connecting. Resets the retry counter and the manual-disconnect flag.
func (t *Transport) Connect() {
	t.mu.Lock()
	if t.state == StateConnected || t.state == StateConnecting {
		t.mu.Unlock()
		return
	}
	t.manual = false
	t.attempts = 0
	t.stopReconnectTimerLocked()
	changed := t.transitionLocked(StateConnecting)
	t.mu.Unlock()

	t.emitStateIfChanged(changed, StateConnecting)
	go t.open()
}

// Disconnect closes the connection and suppresses reconnection. A close
// notification is synthesized even if the connection was never open, so
// callers always observe a terminal close.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.manual = true
	t.stopReconnectTimerLocked()
	t.stopPingLocked()
	conn := t.conn
	t.conn = nil
	t.gen++
	changed := t.transitionLocked(StateDisconnected)
	t.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	t.emitStateIfChanged(changed, StateDisconnected)
	t.events.emit(EventTransportClose, CloseData{Code: int(websocket.StatusNormalClosure), Reason: "client disconnect"})
}

// SendText sends a text frame. Warns and drops if the connection is not
// open; never fails, never queues.
func (t *Transport) SendText(text string) {
	conn := t.openConn()
	if conn == nil {
		t.log.Warn("cannot send text: connection not open")
		return
	}
	t.write(conn, websocket.MessageText, []byte(text))
}

// SendBinary sends a binary frame, silently dropping it if the connection
// is not open.
func (t *Transport) SendBinary(data []byte) {
	conn := t.openConn()
	if conn == nil {
		return
	}
	t.write(conn, websocket.MessageBinary, data)
}

// SendJSON serializes payload and sends it as a text frame.
func (t *Transport) SendJSON(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		t.log.Error("failed to marshal outbound message", "error", err)
		return
	}
	t.SendText(string(data))
}

// Cleanup disconnects and drops all subscribers.
func (t *Transport) Cleanup() {
	t.Disconnect()
	t.events.removeAll()
}

func (t *Transport) openConn() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateConnected {
		return nil
	}
	return t.conn
}

func (t *Transport) write(conn *websocket.Conn, typ websocket.MessageType, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, typ, data); err != nil {
		t.log.Warn("websocket write failed", "error", err)
	}
}

// open dials the server. Runs off the caller's goroutine; only one open is
// ever in flight because it is reached solely through Connect's state guard
// or the single reconnect timer.
func (t *Transport) open() {
	wsURL := t.buildURL()
	t.log.Debug("connecting", "url", wsURL)

	conn, _, err := websocket.Dial(context.Background(), wsURL, nil)
	if err != nil {
		t.log.Error("connection failed", "error", err)
		t.events.emit(EventError, &Error{Code: ErrCodeConnectionFailed, Message: err.Error()})
		t.scheduleReconnect()
		return
	}
	conn.SetReadLimit(readLimit)

	t.mu.Lock()
	if t.manual {
		t.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
		return
	}
	t.conn = conn
	t.gen++
	gen := t.gen
	t.attempts = 0
	changed := t.transitionLocked(StateConnected)
	t.startPingLocked()
	t.mu.Unlock()

	t.emitStateIfChanged(changed, StateConnected)
	t.log.Debug("websocket connected")

	// Tenant handshake goes out before anything else on the wire.
	t.SendJSON(t.handshakeMessage())

	t.events.emit(EventTransportOpen, nil)
	go t.readLoop(conn, gen)
}

func (t *Transport) handshakeMessage() map[string]interface{} {
	msg := map[string]interface{}{
		"type":        "tenant_info",
		"tenant_id":   t.cfg.TenantID,
		"tenant_name": t.cfg.TenantName,
	}
	if t.cfg.AuthToken != "" {
		msg["auth_token"] = t.cfg.AuthToken
	}
	if t.cfg.AIClinicMode {
		msg["ai_clinic_mode"] = true
	}
	if t.cfg.FillerPhraseEn != "" {
		msg["filler_phrase_en"] = t.cfg.FillerPhraseEn
	}
	if t.cfg.FillerPhraseAr != "" {
		msg["filler_phrase_ar"] = t.cfg.FillerPhraseAr
	}
	return msg
}

func (t *Transport) buildURL() string {
	params := url.Values{}
	params.Set("tenantId", t.cfg.TenantID)
	if t.cfg.AuthToken != "" {
		params.Set("token", t.cfg.AuthToken)
	}
	params.Set("channel", channelMarker)

	sep := "?"
	if strings.Contains(t.cfg.ServerURL, "?") {
		sep = "&"
	}
	return t.cfg.ServerURL + sep + params.Encode()
}

func (t *Transport) readLoop(conn *websocket.Conn, gen int) {
	for {
		typ, data, err := conn.Read(context.Background())
		if err != nil {
			code := int(websocket.CloseStatus(err))
			t.handleClose(gen, code, err.Error())
			return
		}

		switch typ {
		case websocket.MessageBinary:
			t.events.emit(EventBinaryMessage, data)
		case websocket.MessageText:
			t.events.emit(EventTextMessage, string(data))
		default:
			t.log.Warn("unknown message type received", "type", int(typ))
		}
	}
}

func (t *Transport) handleClose(gen, code int, reason string) {
	t.mu.Lock()
	if gen != t.gen {
		// A newer connection (or a manual disconnect) already owns the state.
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.gen++
	t.stopPingLocked()
	manual := t.manual
	t.mu.Unlock()

	t.log.Debug("websocket closed", "code", code, "reason", reason)
	t.events.emit(EventTransportClose, CloseData{Code: code, Reason: reason})

	if manual {
		t.mu.Lock()
		changed := t.transitionLocked(StateDisconnected)
		t.mu.Unlock()
		t.emitStateIfChanged(changed, StateDisconnected)
		return
	}
	t.scheduleReconnect()
}

func (t *Transport) scheduleReconnect() {
	t.mu.Lock()
	if t.manual || !t.cfg.Reconnect.Enabled {
		changed := t.transitionLocked(StateDisconnected)
		t.mu.Unlock()
		t.emitStateIfChanged(changed, StateDisconnected)
		return
	}

	if t.cfg.Reconnect.MaxAttempts > 0 && t.attempts >= t.cfg.Reconnect.MaxAttempts {
		changed := t.transitionLocked(StateDisconnected)
		t.mu.Unlock()
		t.log.Error("max reconnection attempts reached")
		t.emitStateIfChanged(changed, StateDisconnected)
		t.events.emit(EventError, &Error{Code: ErrCodeConnectionFailed, Message: "max reconnection attempts reached"})
		return
	}

	changed := t.transitionLocked(StateReconnecting)
	delay := backoffDelay(t.attempts, t.cfg.Reconnect.InitialDelay, t.cfg.Reconnect.MaxDelay)
	attempt := t.attempts + 1
	t.reconnectTimer = time.AfterFunc(delay, t.retry)
	t.mu.Unlock()

	t.log.Debug("reconnecting", "delay", delay, "attempt", attempt)
	t.emitStateIfChanged(changed, StateReconnecting)
}

func (t *Transport) retry() {
	t.mu.Lock()
	if t.manual {
		t.mu.Unlock()
		return
	}
	t.attempts++
	changed := t.transitionLocked(StateConnecting)
	t.mu.Unlock()

	t.emitStateIfChanged(changed, StateConnecting)
	t.open()
}

func (t *Transport) startPingLocked() {
	t.stopPingLocked()
	stop := make(chan struct{})
	t.pingStop = stop

	interval := t.cfg.PingInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if t.IsConnected() {
					t.SendJSON(map[string]interface{}{
						"type": "ping",
						"ts":   time.Now().UnixMilli(),
					})
				}
			}
		}
	}()
}

func (t *Transport) stopPingLocked() {
	if t.pingStop != nil {
		close(t.pingStop)
		t.pingStop = nil
	}
}

func (t *Transport) stopReconnectTimerLocked() {
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
}

// transitionLocked changes the state and reports whether it actually
// changed. Callers emit the state-change event after releasing the lock.
func (t *Transport) transitionLocked(s ConnectionState) bool {
	if t.state == s {
		return false
	}
	t.state = s
	return true
}

func (t *Transport) emitStateIfChanged(changed bool, s ConnectionState) {
	if changed {
		t.events.emit(EventConnectionStateChanged, s)
	}
}
