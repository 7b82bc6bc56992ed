// ABOUTME: Audio type definitions
// ABOUTME: Defines playback formats and the Frame transfer unit
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// BytesPerSample is the size of one 16-bit PCM sample on the wire
	// and in device buffers.
	BytesPerSample = 2

	// MonoChannels and StereoChannels are the supported channel layouts.
	MonoChannels   = 1
	StereoChannels = 2
)

// Format describes the playback format of a frame or device buffer.
type Format struct {
	SampleRate int // Hz
	Channels   int // 1 (mono) or 2 (stereo)
}

// Valid reports whether the format can drive an output device.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && (f.Channels == MonoChannels || f.Channels == StereoChannels)
}

// String formats as "44100Hz/1ch".
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Frame is one fixed-size chunk of interleaved 16-bit PCM, the unit of
// transfer between a producer and the render engine. Samples holds
// SampleCount*Channels values.
type Frame struct {
	SampleCount int
	Format      Format
	Samples     []int16
}

// NewFrame copies samples into a freshly allocated Frame. The caller keeps
// ownership of the input slice.
func NewFrame(samples []int16, sampleCount, sampleRate, channels int) (Frame, error) {
	f := Frame{
		SampleCount: sampleCount,
		Format:      Format{SampleRate: sampleRate, Channels: channels},
	}
	if !f.Format.Valid() {
		return Frame{}, fmt.Errorf("invalid frame format %s", f.Format)
	}
	if sampleCount <= 0 {
		return Frame{}, fmt.Errorf("invalid sample count %d", sampleCount)
	}
	if len(samples) != sampleCount*channels {
		return Frame{}, fmt.Errorf("sample slice length %d does not match %d samples x %d channels",
			len(samples), sampleCount, channels)
	}
	f.Samples = make([]int16, len(samples))
	copy(f.Samples, samples)
	return f, nil
}

// Duration returns the playback time this frame covers.
func (f Frame) Duration() time.Duration {
	if f.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(f.SampleCount) / float64(f.Format.SampleRate) * float64(time.Second))
}

// Seconds returns the playback time in seconds, the unit used by the
// renderer's playback clock.
func (f Frame) Seconds() float64 {
	if f.Format.SampleRate <= 0 {
		return 0
	}
	return float64(f.SampleCount) / float64(f.Format.SampleRate)
}

// ByteSize returns the size of the frame's samples in bytes.
func (f Frame) ByteSize() int {
	return len(f.Samples) * BytesPerSample
}

// SamplesToBytes converts interleaved int16 samples to little-endian bytes
// for device buffers and the wire codec.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s))
	}
	return out
}

// SamplesFromBytes converts little-endian bytes back to int16 samples.
// Trailing odd bytes are ignored.
func SamplesFromBytes(data []byte) []int16 {
	n := len(data) / BytesPerSample
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}
	return out
}
