package voicestream

import (
	"sync"
	"time"
)

// echoTailDelay is how long the mic stays muted after playback goes idle,
// letting acoustic echo tails decay before frames flow again.
const echoTailDelay = 500 * time.Millisecond

// EchoCoordinator keeps the microphone from hearing the speaker: it mutes
// capture the moment playback starts and unmutes only after playback has
// drained plus a tail delay. At most one deferred unmute exists at a time;
// any new playback start cancels it before it can fire.
type EchoCoordinator struct {
	capture  *CapturePipeline
	playback *PlaybackPipeline
	log      Logger
	tail     time.Duration

	mu          sync.Mutex
	unmuteTimer *time.Timer
	unsubs      []func()
}

func newEchoCoordinator(capture *CapturePipeline, playback *PlaybackPipeline, tail time.Duration, log Logger) *EchoCoordinator {
	e := &EchoCoordinator{
		capture:  capture,
		playback: playback,
		log:      log,
		tail:     tail,
	}
	e.unsubs = append(e.unsubs,
		playback.On(EventPlaybackStart, func(Event) { e.onPlaybackStarted() }),
		playback.On(EventPlaybackIdle, func(Event) { e.onPlaybackIdle() }),
	)
	return e
}

func (e *EchoCoordinator) onPlaybackStarted() {
	e.cancelPendingUnmute()
	// Same synchronous turn as the started event: the mute must land
	// before the speaker output can reach the microphone.
	e.capture.Mute()
	e.log.Debug("echo prevention: mic muted, playback started")
}

func (e *EchoCoordinator) onPlaybackIdle() {
	e.mu.Lock()
	if e.unmuteTimer != nil {
		e.unmuteTimer.Stop()
	}
	e.unmuteTimer = time.AfterFunc(e.tail, func() {
		e.mu.Lock()
		e.unmuteTimer = nil
		e.mu.Unlock()
		e.capture.Unmute()
		e.log.Debug("echo prevention: mic unmuted after tail delay")
	})
	e.mu.Unlock()
}

// ForceUnmute cancels any pending unmute and opens the mic immediately.
// Used when the playback queue is cleared deliberately and the caller wants
// the mic live without waiting for the tail delay.
func (e *EchoCoordinator) ForceUnmute() {
	e.cancelPendingUnmute()
	e.capture.Unmute()
}

// Destroy cancels the pending timer and unsubscribes from both pipelines.
func (e *EchoCoordinator) Destroy() {
	e.cancelPendingUnmute()
	for _, unsub := range e.unsubs {
		unsub()
	}
	e.unsubs = nil
}

func (e *EchoCoordinator) cancelPendingUnmute() {
	e.mu.Lock()
	if e.unmuteTimer != nil {
		e.unmuteTimer.Stop()
		e.unmuteTimer = nil
	}
	e.mu.Unlock()
}
