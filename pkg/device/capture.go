package device

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voicestream-ai/voicestream-go/pkg/audio"
	"github.com/voicestream-ai/voicestream-go/pkg/voicestream"
)

// Capture is a malgo-backed microphone device. Frames arrive on the
// miniaudio callback goroutine and are handed to the pipeline as base64
// text, matching the capture contract.
type Capture struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
	dev *malgo.Device
}

// NewCapture returns an unstarted capture device.
func NewCapture() *Capture {
	return &Capture{}
}

// RequestPermission always grants on desktop platforms; the OS prompts on
// first device access if it is going to prompt at all.
func (c *Capture) RequestPermission() bool {
	return true
}

// Start opens the default capture device at the configured format.
func (c *Capture) Start(cfg voicestream.CaptureConfig, onFrame func(string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		return fmt.Errorf("capture already started")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.Alsa.NoMMap = 1
	if cfg.BufferSize > 0 {
		devCfg.PeriodSizeInFrames = uint32(cfg.BufferSize)
	}

	onSamples := func(_, pInput []byte, frameCount uint32) {
		if len(pInput) == 0 {
			return
		}
		// miniaudio reuses the input buffer between callbacks.
		frame := make([]byte, len(pInput))
		copy(frame, pInput)
		onFrame(audio.EncodeBase64(frame))
	}

	dev, err := malgo.InitDevice(mctx.Context, devCfg, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("start capture device: %w", err)
	}

	c.ctx = mctx
	c.dev = dev
	return nil
}

// Stop tears down the device and context.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		c.dev.Uninit()
		c.dev = nil
	}
	if c.ctx != nil {
		err := c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
		return err
	}
	return nil
}
