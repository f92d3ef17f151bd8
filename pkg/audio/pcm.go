package audio

import (
	"encoding/base64"
	"fmt"
	"math"
)

// DecodePCM16LE converts 16-bit little-endian PCM bytes into float32 samples
// in [-1.0, 1.0]. A trailing odd byte is ignored.
func DecodePCM16LE(pcm []byte) []float32 {
	samples := make([]float32, 0, len(pcm)/2)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | (int16(pcm[i+1]) << 8)
		samples = append(samples, float32(s)/32768.0)
	}
	return samples
}

// EncodePCM16LE converts float32 samples into 16-bit little-endian PCM bytes.
// Samples are clamped to [-1, 1]; positive values scale by 32767 and negative
// by 32768 so the full symmetric range is usable without overflow.
func EncodePCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		var s int16
		if f < 0 {
			s = int16(f * 32768)
		} else {
			s = int16(f * 32767)
		}
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// Amplify multiplies every 16-bit sample in pcm by factor, rounding and
// clamping to the signed 16-bit range. Returns a new buffer; the input is
// not modified.
func Amplify(pcm []byte, factor float64) []byte {
	out := make([]byte, len(pcm))
	copy(out, pcm)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | (int16(pcm[i+1]) << 8)
		v := math.Round(float64(s) * factor)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		a := int16(v)
		out[i] = byte(a)
		out[i+1] = byte(a >> 8)
	}
	return out
}

// EncodeBase64 encodes raw bytes as standard base64 text.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes standard base64 text into raw bytes. Malformed input
// is a real error for the caller, never silently truncated.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio frame: %w", err)
	}
	return data, nil
}
