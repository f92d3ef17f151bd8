package voicestream

import (
	"errors"
	"time"
)

// ReconnectPolicy controls automatic reconnection after a dropped
// connection.
type ReconnectPolicy struct {
	// Enabled turns automatic reconnection on. Unlike the numeric fields it
	// is never backfilled from the defaults, because a false here cannot be
	// told apart from unset. Start from DefaultConfig to get reconnection
	// enabled; a Config built from scratch has it off.
	Enabled bool
	// MaxAttempts caps consecutive failed attempts. 0 means unlimited.
	MaxAttempts int
	// InitialDelay is the backoff base for the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
}

// AudioFormat describes the PCM streams on both directions of the
// connection. Input is what the microphone captures, output is what the
// server sends for playback.
type AudioFormat struct {
	InputSampleRate  int
	OutputSampleRate int
	Channels         int
	BitDepth         int
	BufferSize       int
}

// Config configures a Session. Start from DefaultConfig and override what
// you need; zero-valued numeric and string fields are filled back in from
// the defaults when the session is created.
type Config struct {
	// ServerURL is the websocket endpoint of the voice server. Required.
	ServerURL string
	// TenantID identifies the tenant on the server. Required.
	TenantID string
	// TenantName is the display name sent in the handshake. Defaults to
	// TenantID.
	TenantName string
	// AuthToken is an optional bearer token, sent as a query parameter and
	// in the handshake.
	AuthToken string

	Reconnect ReconnectPolicy

	// PingInterval is the keep-alive heartbeat period while connected.
	PingInterval time.Duration

	Audio AudioFormat

	// AIClinicMode switches the server to the clinic protocol variant where
	// the caller supplies LLM responses via SendLlmResponse.
	AIClinicMode bool
	// FillerPhraseEn and FillerPhraseAr are optional phrases the server
	// plays while a response is being prepared.
	FillerPhraseEn string
	FillerPhraseAr string
}

// DefaultConfig returns the standard configuration: reconnection with five
// attempts between 1s and 30s, a 30s heartbeat, 16kHz mono capture and
// 24kHz playback.
func DefaultConfig() Config {
	return Config{
		Reconnect: ReconnectPolicy{
			Enabled:      true,
			MaxAttempts:  5,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		PingInterval: 30 * time.Second,
		Audio: AudioFormat{
			InputSampleRate:  16000,
			OutputSampleRate: 24000,
			Channels:         1,
			BitDepth:         16,
			BufferSize:       1600,
		},
	}
}

var (
	errMissingServerURL = errors.New("voicestream: ServerURL is required")
	errMissingTenantID  = errors.New("voicestream: TenantID is required")
)

// withDefaults fills zero-valued fields from DefaultConfig and applies the
// TenantName fallback. Boolean flags are taken as given.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.TenantName == "" {
		c.TenantName = c.TenantID
	}
	if c.Reconnect.InitialDelay == 0 {
		c.Reconnect.InitialDelay = def.Reconnect.InitialDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = def.Reconnect.MaxDelay
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.Audio.InputSampleRate == 0 {
		c.Audio.InputSampleRate = def.Audio.InputSampleRate
	}
	if c.Audio.OutputSampleRate == 0 {
		c.Audio.OutputSampleRate = def.Audio.OutputSampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = def.Audio.Channels
	}
	if c.Audio.BitDepth == 0 {
		c.Audio.BitDepth = def.Audio.BitDepth
	}
	if c.Audio.BufferSize == 0 {
		c.Audio.BufferSize = def.Audio.BufferSize
	}
	return c
}

func (c Config) validate() error {
	if c.ServerURL == "" {
		return errMissingServerURL
	}
	if c.TenantID == "" {
		return errMissingTenantID
	}
	return nil
}
