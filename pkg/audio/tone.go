// ABOUTME: Test tone generator producing PCM frames
// ABOUTME: Generates a sine wave for demos and headless testing
package audio

import (
	"math"
	"sync"
)

// ToneSource generates a sine wave as successive PCM frames.
type ToneSource struct {
	mu          sync.Mutex
	sampleIndex uint64
	frequency   float64
	format      Format
	amplitude   float64
}

// NewToneSource creates a sine generator at the given frequency and format.
// Amplitude is fixed at 50% to leave headroom.
func NewToneSource(frequency float64, format Format) *ToneSource {
	return &ToneSource{
		frequency: frequency,
		format:    format,
		amplitude: 0.5,
	}
}

// Format returns the generator's output format.
func (s *ToneSource) Format() Format { return s.format }

// NextFrame produces the next sampleCount samples of the tone as a Frame.
func (s *ToneSource) NextFrame(sampleCount int) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]int16, sampleCount*s.format.Channels)
	for i := 0; i < sampleCount; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.format.SampleRate)
		v := int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * s.amplitude)
		for ch := 0; ch < s.format.Channels; ch++ {
			samples[i*s.format.Channels+ch] = v
		}
	}
	s.sampleIndex += uint64(sampleCount)

	return Frame{SampleCount: sampleCount, Format: s.format, Samples: samples}
}
