// Package device provides real audio hardware bindings for the voicestream
// SDK, built on gen2brain/malgo (miniaudio). Capture delivers PCM16 frames
// as base64 text; Playback renders scheduled buffers on a sample-accurate
// device clock.
package device
