package voicestream

import (
	"sync"
	"time"

	"github.com/voicestream-ai/voicestream-go/pkg/audio"
)

const (
	// volumeFactor is the fixed amplification applied to every inbound
	// frame before scheduling.
	volumeFactor = 3.0

	// idleDebounce batches rapid buffer completions into a single idle
	// check so a burst of back-to-back finishes yields one idle event.
	idleDebounce = 50 * time.Millisecond
)

// PlaybackPipeline owns the speaker output queue. Frames are amplified and
// scheduled back-to-back on the device clock: every buffer starts at
// max(deviceNow, scheduledEnd) and advances scheduledEnd by its duration,
// which makes playback gapless and strictly ordered by enqueue order.
//
// The device is created lazily on first enqueue. A failed creation is
// remembered and never retried; subsequent enqueues become silent no-ops.
// ClearQueue tears the device down entirely, since recreating a fresh device
// is the only way to guarantee all previously scheduled sound stops at once.
// It always emits idle, even when nothing was playing, because callers use
// that emission as confirmation the speaker is silent.
type PlaybackPipeline struct {
	cfg     Config
	log     Logger
	factory PlaybackDeviceFactory
	events  *emitter

	mu           sync.Mutex
	device       PlaybackDevice
	queue        [][]byte
	playing      bool
	inFlight     int
	scheduledEnd float64
	initFailed   bool
	idleTimer    *time.Timer
}

func newPlaybackPipeline(cfg Config, factory PlaybackDeviceFactory, log Logger) *PlaybackPipeline {
	return &PlaybackPipeline{
		cfg:     cfg,
		log:     log,
		factory: factory,
		events:  newEmitter(log),
	}
}

// On subscribes to playback events (EventPlaybackStart, EventPlaybackIdle,
// EventError).
func (p *PlaybackPipeline) On(event EventType, fn func(Event)) func() {
	return p.events.on(event, fn)
}

// Playing reports whether playback is active.
func (p *PlaybackPipeline) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// EnqueueAudio amplifies a PCM16 frame and appends it to the queue,
// starting playback if idle or draining immediately if already playing.
func (p *PlaybackPipeline) EnqueueAudio(pcm []byte) {
	p.mu.Lock()
	if p.initFailed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, audio.Amplify(pcm, volumeFactor))

	if p.playing {
		p.drainLocked()
		p.mu.Unlock()
		return
	}

	if p.device == nil {
		dev, err := p.factory(p.cfg.Audio.OutputSampleRate)
		if err != nil {
			p.initFailed = true
			p.queue = nil
			p.mu.Unlock()
			p.log.Error("playback device init failed", "error", err)
			p.events.emit(EventError, &Error{
				Code:    ErrCodePlaybackFailed,
				Message: "failed to initialize playback device: " + err.Error(),
			})
			return
		}
		p.device = dev
		p.log.Debug("playback device created", "sampleRate", p.cfg.Audio.OutputSampleRate)
	}

	p.playing = true
	p.scheduledEnd = p.device.CurrentTime()
	p.mu.Unlock()

	p.log.Debug("playback started")
	p.events.emit(EventPlaybackStart, nil)

	p.mu.Lock()
	p.drainLocked()
	p.mu.Unlock()
}

// ClearQueue discards all pending audio, tears down the device so scheduled
// sound stops immediately, and unconditionally emits idle.
func (p *PlaybackPipeline) ClearQueue() {
	p.mu.Lock()
	p.queue = nil
	p.inFlight = 0
	p.playing = false
	p.scheduledEnd = 0
	p.stopIdleTimerLocked()
	dev := p.device
	p.device = nil
	p.mu.Unlock()

	if dev != nil {
		if err := dev.Close(); err != nil {
			p.log.Debug("playback device close failed", "error", err)
		}
	}

	p.log.Debug("audio queue cleared")
	p.events.emit(EventPlaybackIdle, nil)
}

// Cleanup clears the queue, cancels timers and drops all subscribers.
func (p *PlaybackPipeline) Cleanup() {
	p.ClearQueue()
	p.mu.Lock()
	p.stopIdleTimerLocked()
	p.mu.Unlock()
	p.events.removeAll()
}

// drainLocked schedules every queued frame on the device timeline.
func (p *PlaybackPipeline) drainLocked() {
	if p.device == nil {
		return
	}
	rate := float64(p.cfg.Audio.OutputSampleRate)

	for len(p.queue) > 0 {
		pcm := p.queue[0]
		p.queue = p.queue[1:]

		samples := audio.DecodePCM16LE(pcm)
		if len(samples) == 0 {
			continue
		}

		start := p.scheduledEnd
		if now := p.device.CurrentTime(); now > start {
			start = now
		}

		p.inFlight++
		if err := p.device.ScheduleBuffer(samples, start, p.onBufferComplete); err != nil {
			// Transient: skip this buffer, keep the pipeline running.
			p.inFlight--
			p.log.Error("buffer scheduling failed", "error", err)
			continue
		}
		p.scheduledEnd = start + float64(len(samples))/rate
	}
}

func (p *PlaybackPipeline) onBufferComplete() {
	p.mu.Lock()
	if p.inFlight > 0 {
		p.inFlight--
	}
	p.stopIdleTimerLocked()
	p.idleTimer = time.AfterFunc(idleDebounce, p.idleCheck)
	p.mu.Unlock()
}

// idleCheck flips to idle only when the queue is empty, nothing is in
// flight, and we are still marked playing, so a burst of completions
// produces one idle event.
func (p *PlaybackPipeline) idleCheck() {
	p.mu.Lock()
	if !p.playing || len(p.queue) > 0 || p.inFlight > 0 {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.mu.Unlock()

	p.log.Debug("playback idle, all audio finished")
	p.events.emit(EventPlaybackIdle, nil)
}

func (p *PlaybackPipeline) stopIdleTimerLocked() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
}
