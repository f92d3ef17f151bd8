package device

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voicestream-ai/voicestream-go/pkg/voicestream"
)

// Playback is a malgo-backed speaker device. The device clock is derived
// from samples actually rendered, so it only advances while the hardware is
// pulling audio. Scheduled buffers are mixed into the output stream at
// their sample-accurate start positions.
type Playback struct {
	sampleRate int

	mu        sync.Mutex
	ctx       *malgo.AllocatedContext
	dev       *malgo.Device
	rendered  uint64 // samples delivered to the hardware so far
	scheduled []*scheduledBuffer
	closed    bool
}

type scheduledBuffer struct {
	startSample uint64
	samples     []float32
	onComplete  func()
}

// NewPlaybackFactory returns a PlaybackDeviceFactory creating malgo
// playback devices. Each call produces a fresh device session; the playback
// pipeline relies on that to guarantee a queue clear silences everything.
func NewPlaybackFactory() voicestream.PlaybackDeviceFactory {
	return func(sampleRate int) (voicestream.PlaybackDevice, error) {
		return newPlayback(sampleRate)
	}
}

func newPlayback(sampleRate int) (*Playback, error) {
	p := &Playback{sampleRate: sampleRate}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatS16
	devCfg.Playback.Channels = 1
	devCfg.SampleRate = uint32(sampleRate)
	devCfg.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(mctx.Context, devCfg, malgo.DeviceCallbacks{Data: p.render})
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("start playback device: %w", err)
	}

	p.ctx = mctx
	p.dev = dev
	return p, nil
}

// CurrentTime returns seconds of audio rendered since the device started.
func (p *Playback) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.rendered) / float64(p.sampleRate)
}

// ScheduleBuffer queues samples to start at startAt seconds on the device
// clock.
func (p *Playback) ScheduleBuffer(samples []float32, startAt float64, onComplete func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("playback device closed")
	}
	if startAt < 0 {
		startAt = 0
	}
	p.scheduled = append(p.scheduled, &scheduledBuffer{
		startSample: uint64(startAt*float64(p.sampleRate) + 0.5),
		samples:     samples,
		onComplete:  onComplete,
	})
	return nil
}

// Close stops all sound immediately and releases the device session.
func (p *Playback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.scheduled = nil
	dev := p.dev
	ctx := p.ctx
	p.dev = nil
	p.ctx = nil
	p.mu.Unlock()

	if dev != nil {
		dev.Uninit()
	}
	if ctx != nil {
		err := ctx.Uninit()
		ctx.Free()
		return err
	}
	return nil
}

// render is the miniaudio data callback: it mixes every scheduled buffer
// overlapping the current output window into pOutput as S16LE and fires
// completion callbacks for buffers that finished inside the window.
func (p *Playback) render(pOutput, _ []byte, frameCount uint32) {
	var done []func()

	p.mu.Lock()
	base := p.rendered
	end := base + uint64(frameCount)

	for i := range pOutput {
		pOutput[i] = 0
	}

	remaining := p.scheduled[:0]
	for _, buf := range p.scheduled {
		bufEnd := buf.startSample + uint64(len(buf.samples))
		if bufEnd <= base {
			// Finished before this window (clock jumped); complete it.
			if buf.onComplete != nil {
				done = append(done, buf.onComplete)
			}
			continue
		}
		if buf.startSample < end {
			from := base
			if buf.startSample > from {
				from = buf.startSample
			}
			to := end
			if bufEnd < to {
				to = bufEnd
			}
			for s := from; s < to; s++ {
				f := buf.samples[s-buf.startSample]
				if f > 1 {
					f = 1
				} else if f < -1 {
					f = -1
				}
				v := int16(f * 32767)
				off := (s - base) * 2
				pOutput[off] = byte(v)
				pOutput[off+1] = byte(v >> 8)
			}
		}
		if bufEnd <= end {
			if buf.onComplete != nil {
				done = append(done, buf.onComplete)
			}
			continue
		}
		remaining = append(remaining, buf)
	}
	p.scheduled = remaining
	p.rendered = end
	p.mu.Unlock()

	// Keep the audio callback light: completions run off-thread.
	for _, cb := range done {
		go cb()
	}
}
