package voicestream

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/voicestream-ai/voicestream-go/pkg/audio"
)

func pcmFrame(vals ...int16) []byte {
	buf := make([]byte, len(vals)*2)
	for i, v := range vals {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(uint16(v) >> 8)
	}
	return buf
}

func TestCaptureEmitsDecodedFrames(t *testing.T) {
	dev := newFakeCaptureDevice()
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	rec := &eventRecorder{}
	c.On(EventCaptureData, rec.record)

	c.StartCapture()
	if !c.Capturing() || !dev.isStarted() {
		t.Fatal("capture should be running")
	}

	pcm := pcmFrame(100, -200, 300)
	dev.push(audio.EncodeBase64(pcm))

	if rec.count(EventCaptureData) != 1 {
		t.Fatalf("expected 1 data event, got %d", rec.count(EventCaptureData))
	}
	ev, _ := rec.last(EventCaptureData)
	if !bytes.Equal(ev.Data.([]byte), pcm) {
		t.Fatalf("frame not decoded back to original PCM: %v", ev.Data)
	}
}

func TestCaptureStartIsIdempotent(t *testing.T) {
	dev := newFakeCaptureDevice()
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	c.StartCapture()
	c.StartCapture()
	if dev.startCalls != 1 {
		t.Fatalf("device started %d times, want 1", dev.startCalls)
	}

	c.StopCapture()
	c.StopCapture()
	if dev.stopCalls != 1 {
		t.Fatalf("device stopped %d times, want 1", dev.stopCalls)
	}
}

func TestCapturePermissionDenied(t *testing.T) {
	dev := newFakeCaptureDevice()
	dev.permission = false
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	rec := &eventRecorder{}
	c.On(EventError, rec.record)

	c.StartCapture()

	if c.Capturing() {
		t.Error("capture must not be marked running after permission denial")
	}
	ev, ok := rec.last(EventError)
	if !ok {
		t.Fatal("expected an error event")
	}
	if e := ev.Data.(*Error); e.Code != ErrCodePermissionDenied {
		t.Fatalf("error code = %q, want %q", e.Code, ErrCodePermissionDenied)
	}
	if dev.startCalls != 0 {
		t.Error("device must not be started when permission is denied")
	}
}

func TestCaptureStartFailure(t *testing.T) {
	dev := newFakeCaptureDevice()
	dev.startErr = errors.New("device busy")
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	rec := &eventRecorder{}
	c.On(EventError, rec.record)

	c.StartCapture()

	if c.Capturing() {
		t.Error("capture must not be marked running after start failure")
	}
	ev, ok := rec.last(EventError)
	if !ok {
		t.Fatal("expected an error event")
	}
	if e := ev.Data.(*Error); e.Code != ErrCodeCaptureFailed {
		t.Fatalf("error code = %q, want %q", e.Code, ErrCodeCaptureFailed)
	}
}

func TestCaptureMuteDiscardsFrames(t *testing.T) {
	dev := newFakeCaptureDevice()
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	rec := &eventRecorder{}
	c.On(EventCaptureData, rec.record)

	c.StartCapture()
	frame := audio.EncodeBase64(pcmFrame(1, 2, 3))

	dev.push(frame)
	c.Mute()
	for i := 0; i < 5; i++ {
		dev.push(frame)
	}
	c.Unmute()
	dev.push(frame)

	if got := rec.count(EventCaptureData); got != 2 {
		t.Fatalf("expected 2 data events (before mute, after unmute), got %d", got)
	}
	if dev.startCalls != 1 {
		t.Fatalf("mute/unmute must not restart the device, startCalls = %d", dev.startCalls)
	}
	if !dev.isStarted() {
		t.Error("hardware stream must keep running while muted")
	}
}

func TestCaptureStopResetsMute(t *testing.T) {
	dev := newFakeCaptureDevice()
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	c.StartCapture()
	c.Mute()
	c.StopCapture()

	if c.Muted() {
		t.Error("stop must clear the muted flag")
	}
}

func TestCaptureDropsUndecodableFrame(t *testing.T) {
	dev := newFakeCaptureDevice()
	c := newCapturePipeline(testConfig(), dev, &NoOpLogger{})

	rec := &eventRecorder{}
	c.On(EventCaptureData, rec.record)
	c.On(EventError, rec.record)

	c.StartCapture()
	dev.push("!!!not base64!!!")
	dev.push(audio.EncodeBase64(pcmFrame(7)))

	// Give any stray async emission a moment; decode failures are dropped
	// silently, not surfaced as error events.
	time.Sleep(10 * time.Millisecond)
	if got := rec.count(EventError); got != 0 {
		t.Fatalf("decode failure must not emit error events, got %d", got)
	}
	if got := rec.count(EventCaptureData); got != 1 {
		t.Fatalf("stream must survive a bad frame, got %d data events", got)
	}
}
