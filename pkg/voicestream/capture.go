package voicestream

import (
	"sync"

	"github.com/voicestream-ai/voicestream-go/pkg/audio"
)

// CapturePipeline owns the microphone lifecycle: permission, start/stop,
// mute, and decoding raw base64 frames into PCM16 buffers emitted as
// EventCaptureData.
//
// Mute discards frames without stopping the hardware stream, so unmuting
// carries no restart latency. The discard check happens inside the frame
// callback itself: a mute takes effect strictly before the next emitted
// frame.
type CapturePipeline struct {
	cfg    Config
	log    Logger
	device CaptureDevice
	events *emitter

	mu        sync.Mutex
	capturing bool
	muted     bool
}

func newCapturePipeline(cfg Config, device CaptureDevice, log Logger) *CapturePipeline {
	return &CapturePipeline{
		cfg:    cfg,
		log:    log,
		device: device,
		events: newEmitter(log),
	}
}

// On subscribes to capture events (EventCaptureData, EventError).
func (c *CapturePipeline) On(event EventType, fn func(Event)) func() {
	return c.events.on(event, fn)
}

// Capturing reports whether the hardware stream is running.
func (c *CapturePipeline) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// Muted reports whether captured frames are currently being discarded.
func (c *CapturePipeline) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// StartCapture requests permission and starts the hardware stream. No-op if
// already capturing. Failures are surfaced as EventError
// (AUDIO_PERMISSION_DENIED or AUDIO_CAPTURE_FAILED), never returned.
func (c *CapturePipeline) StartCapture() {
	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()
		return
	}
	c.capturing = true
	c.muted = false
	c.mu.Unlock()

	if !c.device.RequestPermission() {
		c.reset()
		c.events.emit(EventError, &Error{
			Code:    ErrCodePermissionDenied,
			Message: "microphone permission denied",
		})
		return
	}

	err := c.device.Start(CaptureConfig{
		SampleRate: c.cfg.Audio.InputSampleRate,
		Channels:   c.cfg.Audio.Channels,
		BitDepth:   c.cfg.Audio.BitDepth,
		BufferSize: c.cfg.Audio.BufferSize,
	}, c.onFrame)
	if err != nil {
		c.log.Error("audio capture start failed", "error", err)
		c.reset()
		c.events.emit(EventError, &Error{
			Code:    ErrCodeCaptureFailed,
			Message: "failed to start audio capture: " + err.Error(),
		})
		return
	}

	c.log.Debug("audio capture started")
}

// StopCapture stops the hardware stream. No-op if not capturing; errors on
// stop are swallowed.
func (c *CapturePipeline) StopCapture() {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return
	}
	c.capturing = false
	c.muted = false
	c.mu.Unlock()

	if err := c.device.Stop(); err != nil {
		c.log.Debug("capture device stop failed", "error", err)
	}
	c.log.Debug("audio capture stopped")
}

// Mute discards captured frames starting with the very next one.
func (c *CapturePipeline) Mute() {
	c.mu.Lock()
	c.muted = true
	c.mu.Unlock()
	c.log.Debug("mic muted")
}

// Unmute resumes frame emission.
func (c *CapturePipeline) Unmute() {
	c.mu.Lock()
	c.muted = false
	c.mu.Unlock()
	c.log.Debug("mic unmuted")
}

// Cleanup stops capture and drops all subscribers.
func (c *CapturePipeline) Cleanup() {
	c.StopCapture()
	c.events.removeAll()
}

func (c *CapturePipeline) onFrame(base64Frame string) {
	c.mu.Lock()
	muted := c.muted
	c.mu.Unlock()
	if muted {
		return
	}

	data, err := audio.DecodeBase64(base64Frame)
	if err != nil {
		// Per-frame failure: drop it, keep the stream alive.
		c.log.Error("audio frame decode failed", "error", err)
		return
	}
	c.events.emit(EventCaptureData, data)
}

func (c *CapturePipeline) reset() {
	c.mu.Lock()
	c.capturing = false
	c.muted = false
	c.mu.Unlock()
}
