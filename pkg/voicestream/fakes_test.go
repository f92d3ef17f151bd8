package voicestream

import (
	"sync"
	"testing"
	"time"
)

// fakeCaptureDevice is a scripted microphone: tests push base64 frames at
// will and control permission/start outcomes.
type fakeCaptureDevice struct {
	mu         sync.Mutex
	permission bool
	startErr   error
	started    bool
	stopCalls  int
	startCalls int
	onFrame    func(string)
}

func newFakeCaptureDevice() *fakeCaptureDevice {
	return &fakeCaptureDevice{permission: true}
}

func (d *fakeCaptureDevice) RequestPermission() bool { return d.permission }

func (d *fakeCaptureDevice) Start(cfg CaptureConfig, onFrame func(string)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startCalls++
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	d.onFrame = onFrame
	return nil
}

func (d *fakeCaptureDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopCalls++
	d.started = false
	return nil
}

func (d *fakeCaptureDevice) push(b64 string) {
	d.mu.Lock()
	fn := d.onFrame
	d.mu.Unlock()
	if fn != nil {
		fn(b64)
	}
}

func (d *fakeCaptureDevice) isStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// fakePlaybackDevice is a manual-clock speaker: tests advance the clock
// explicitly and completions fire for buffers that finished by then.
type fakePlaybackDevice struct {
	rate float64

	mu      sync.Mutex
	now     float64
	buffers []*fakeScheduled
	closed  bool
}

type fakeScheduled struct {
	start      float64
	dur        float64
	samples    []float32
	onComplete func()
	completed  bool
}

func (d *fakePlaybackDevice) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *fakePlaybackDevice) ScheduleBuffer(samples []float32, startAt float64, onComplete func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers = append(d.buffers, &fakeScheduled{
		start:      startAt,
		dur:        float64(len(samples)) / d.rate,
		samples:    samples,
		onComplete: onComplete,
	})
	return nil
}

func (d *fakePlaybackDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// advance moves the device clock and fires completions outside the lock,
// the way a real device signals from its own goroutine.
func (d *fakePlaybackDevice) advance(dt float64) {
	var done []func()
	d.mu.Lock()
	d.now += dt
	for _, b := range d.buffers {
		if !b.completed && b.start+b.dur <= d.now {
			b.completed = true
			if b.onComplete != nil {
				done = append(done, b.onComplete)
			}
		}
	}
	d.mu.Unlock()
	for _, cb := range done {
		cb()
	}
}

func (d *fakePlaybackDevice) scheduledAt(i int) (float64, []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.buffers[i]
	return b.start, b.samples
}

func (d *fakePlaybackDevice) scheduledCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

func (d *fakePlaybackDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakePlaybackFactory creates fake devices and records every call.
type fakePlaybackFactory struct {
	mu      sync.Mutex
	err     error
	calls   int
	devices []*fakePlaybackDevice
}

func (f *fakePlaybackFactory) create(sampleRate int) (PlaybackDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	dev := &fakePlaybackDevice{rate: float64(sampleRate)}
	f.devices = append(f.devices, dev)
	return dev, nil
}

func (f *fakePlaybackFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakePlaybackFactory) last() *fakePlaybackDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.devices) == 0 {
		return nil
	}
	return f.devices[len(f.devices)-1]
}

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ServerURL = "ws://127.0.0.1:1/stream"
	cfg.TenantID = "tenant-test"
	return cfg
}
