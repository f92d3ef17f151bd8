package voicestream

import "errors"

// CaptureConfig carries the hardware stream parameters handed to a
// CaptureDevice on start.
type CaptureConfig struct {
	SampleRate int
	Channels   int
	BitDepth   int
	BufferSize int
}

// CaptureDevice is the microphone capability the SDK is built against.
// Implementations deliver PCM16 frames as base64 text, the way the native
// capture APIs hand them out.
type CaptureDevice interface {
	// RequestPermission resolves whether microphone access is granted.
	// It never fails; denial is an answer, not an error.
	RequestPermission() bool

	// Start opens the hardware stream and invokes onFrame for every
	// captured frame until Stop. onFrame may be called from an internal
	// audio goroutine.
	Start(cfg CaptureConfig, onFrame func(base64Frame string)) error

	// Stop closes the hardware stream. Best effort.
	Stop() error
}

// PlaybackDevice is the speaker capability. Time values are seconds on the
// device's own clock, which starts near zero when the device is created and
// only moves while the device renders.
type PlaybackDevice interface {
	// CurrentTime returns the device clock.
	CurrentTime() float64

	// ScheduleBuffer queues samples to start playing at startAt on the
	// device clock. onComplete fires once the buffer has finished playing;
	// it must not be invoked synchronously from within ScheduleBuffer.
	ScheduleBuffer(samples []float32, startAt float64, onComplete func()) error

	// Close stops all scheduled sound immediately and releases the device.
	Close() error
}

// PlaybackDeviceFactory creates a playback device at the given sample rate.
// The playback pipeline calls it lazily on first enqueue and again after
// every queue clear, since a cleared device session is fully torn down.
type PlaybackDeviceFactory func(sampleRate int) (PlaybackDevice, error)

var errNoAudioHardware = errors.New("audio hardware unavailable")

// NullCaptureDevice is the stub for environments without microphone
// hardware: permission is granted but the stream can never start, so the
// pipeline surfaces a capture-failed error instead of crashing.
type NullCaptureDevice struct{}

func (NullCaptureDevice) RequestPermission() bool { return true }

func (NullCaptureDevice) Start(cfg CaptureConfig, onFrame func(string)) error {
	return errNoAudioHardware
}

func (NullCaptureDevice) Stop() error { return nil }

// NullPlaybackFactory always fails, letting the playback pipeline memoize
// the device as unavailable after a single error event.
func NullPlaybackFactory(sampleRate int) (PlaybackDevice, error) {
	return nil, errNoAudioHardware
}
