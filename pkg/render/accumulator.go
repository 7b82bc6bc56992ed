// ABOUTME: Sample accumulator slicing a raw stream into fixed-size frames
// ABOUTME: Producer-side glue between a tick loop and the renderer
package render

import (
	"sync"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// DefaultFrameSize is the default number of samples accumulated per frame.
const DefaultFrameSize = 1024

// FramePusher accepts assembled frames; implemented by Renderer and the
// stream client.
type FramePusher interface {
	PushFrame(samples []int16, sampleCount, sampleRate, channels int) error
}

// Accumulator collects individual samples from a tick-driven producer (an
// emulator or synth core emitting one sample at a time) and pushes a frame
// to its sink every frameSize samples.
type Accumulator struct {
	mu        sync.Mutex
	sink      FramePusher
	format    audio.Format
	frameSize int
	buf       []int16
}

// NewAccumulator creates an accumulator producing frameSize-sample frames
// in the given format. A frameSize of 0 uses DefaultFrameSize.
func NewAccumulator(sink FramePusher, format audio.Format, frameSize int) *Accumulator {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &Accumulator{
		sink:      sink,
		format:    format,
		frameSize: frameSize,
		buf:       make([]int16, 0, frameSize*format.Channels),
	}
}

// Feed adds one sample in the range [-1, 1], interleaved across channels
// in call order. When a full frame has accumulated it is pushed to the
// sink. The push error, if any, is returned; the accumulator keeps going.
func (a *Accumulator) Feed(sample float64) error {
	return a.FeedInt16(int16(sample * 32767.0))
}

// FeedInt16 adds one already-quantized sample.
func (a *Accumulator) FeedInt16(sample int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf = append(a.buf, sample)
	if len(a.buf) < a.frameSize*a.format.Channels {
		return nil
	}
	return a.flushLocked()
}

// Flush pushes any partial frame immediately, for end-of-stream tails.
func (a *Accumulator) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.buf) == 0 || len(a.buf)%a.format.Channels != 0 {
		return nil
	}
	return a.flushLocked()
}

// Buffered returns the number of values currently accumulated.
func (a *Accumulator) Buffered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

func (a *Accumulator) flushLocked() error {
	sampleCount := len(a.buf) / a.format.Channels
	err := a.sink.PushFrame(a.buf, sampleCount, a.format.SampleRate, a.format.Channels)
	a.buf = a.buf[:0]
	return err
}
