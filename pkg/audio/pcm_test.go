package audio

import (
	"math"
	"testing"
)

func TestPCMRoundTrip(t *testing.T) {
	// Any float in [-1, 1] must survive encode/decode within one
	// quantization step (1/32768).
	in := make([]float32, 0, 2048)
	for i := 0; i < 2048; i++ {
		in = append(in, float32(math.Sin(float64(i)*0.017))*0.97)
	}
	// Edge values
	in = append(in, -1, 1, 0, 0.5, -0.5)

	out := DecodePCM16LE(EncodePCM16LE(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}

	const step = 1.0 / 32768.0
	for i := range in {
		if diff := math.Abs(float64(in[i]) - float64(out[i])); diff > step {
			t.Fatalf("sample %d: %v -> %v, off by %v (> %v)", i, in[i], out[i], diff, step)
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	out := EncodePCM16LE([]float32{2.5, -3.0})
	hi := int16(out[0]) | (int16(out[1]) << 8)
	lo := int16(out[2]) | (int16(out[3]) << 8)
	if hi != 32767 {
		t.Errorf("positive overflow: got %d, want 32767", hi)
	}
	if lo != -32768 {
		t.Errorf("negative overflow: got %d, want -32768", lo)
	}
}

func TestAmplifyClampsNeverWraps(t *testing.T) {
	samples := []int16{-32768, -20000, -1, 0, 1, 20000, 32767}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(s >> 8)
	}

	for _, factor := range []float64{1, 3, 10, 1000} {
		out := Amplify(pcm, factor)
		if len(out) != len(pcm) {
			t.Fatalf("factor %v: length changed", factor)
		}
		for i := 0; i+1 < len(out); i += 2 {
			got := int16(out[i]) | (int16(out[i+1]) << 8)
			orig := samples[i/2]
			// Sign must never flip due to overflow.
			if orig > 0 && got < 0 || orig < 0 && got > 0 {
				t.Fatalf("factor %v: sample %d flipped sign: %d -> %d", factor, i/2, orig, got)
			}
		}
	}

	// 3x of a loud sample saturates instead of wrapping.
	loud := Amplify(pcm, 3)
	got := int16(loud[10]) | (int16(loud[11]) << 8) // 20000 * 3
	if got != 32767 {
		t.Errorf("expected saturation at 32767, got %d", got)
	}
}

func TestAmplifyRounds(t *testing.T) {
	pcm := []byte{100, 0} // sample = 100
	out := Amplify(pcm, 1.5)
	got := int16(out[0]) | (int16(out[1]) << 8)
	if got != 150 {
		t.Errorf("expected 150, got %d", got)
	}
}

func TestBase64RoundTripAndFailure(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFE, 0xFF, 0x80}
	decoded, err := DecodeBase64(EncodeBase64(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(decoded) != string(data) {
		t.Fatalf("round trip mismatch: %v vs %v", decoded, data)
	}

	if _, err := DecodeBase64("not!!valid@@base64"); err == nil {
		t.Fatal("expected decode failure for malformed input")
	}
}
