package playback

import (
	"encoding/binary"
	"time"
)

const (
	NarrationSampleRate = 24000
	NarrationChannels   = 1
	bitsPerSample       = 16
)

// Buffer is decoded narration audio: signed 16-bit little-endian PCM.
// Buffers are compared by identity; a new narration is always a new Buffer.
type Buffer struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// NewNarrationBuffer wraps 24 kHz mono PCM as returned by the speech model.
func NewNarrationBuffer(pcm []byte) *Buffer {
	return &Buffer{PCM: pcm, SampleRate: NarrationSampleRate, Channels: NarrationChannels}
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.PCM) / (b.Channels * bitsPerSample / 8)
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// WAV prefixes the PCM with a canonical 44 byte RIFF header.
func (b *Buffer) WAV() []byte {
	dataLen := len(b.PCM)
	byteRate := b.SampleRate * b.Channels * bitsPerSample / 8
	blockAlign := b.Channels * bitsPerSample / 8

	header := make([]byte, 44, 44+dataLen)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(b.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, b.PCM...)
}
