package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

// NewWavBuffer wraps raw PCM16 mono audio in a minimal RIFF/WAVE container.
// Handy for dumping captured or played audio to disk for inspection.
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// PCMDuration returns the play time of a PCM16 mono buffer at the given rate.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / 2
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
