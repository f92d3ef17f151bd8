package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestNewWavBuffer(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav := NewWavBuffer(pcm, 24000)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}

	expectedLen := 44 + len(pcm)
	if len(wav) != expectedLen {
		t.Errorf("expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestPCMDuration(t *testing.T) {
	// 24000 samples at 24kHz = 1 second
	pcm := make([]byte, 48000)
	if d := PCMDuration(pcm, 24000); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	if d := PCMDuration(pcm, 0); d != 0 {
		t.Errorf("expected 0 for invalid rate, got %v", d)
	}
}
