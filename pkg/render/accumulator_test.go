// ABOUTME: Tests for the sample accumulator
// ABOUTME: Verifies frame assembly, quantization, and partial flush
package render

import (
	"testing"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	frames []audio.Frame
	err    error
}

func (p *recordingPusher) PushFrame(samples []int16, sampleCount, sampleRate, channels int) error {
	if p.err != nil {
		return p.err
	}
	frame, err := audio.NewFrame(samples, sampleCount, sampleRate, channels)
	if err != nil {
		return err
	}
	p.frames = append(p.frames, frame)
	return nil
}

func TestAccumulatorAssemblesFullFrames(t *testing.T) {
	sink := &recordingPusher{}
	acc := NewAccumulator(sink, audio.Format{SampleRate: 44100, Channels: 1}, 4)

	for i := 0; i < 9; i++ {
		require.NoError(t, acc.FeedInt16(int16(i)))
	}

	require.Len(t, sink.frames, 2, "two full frames out of nine samples")
	assert.Equal(t, []int16{0, 1, 2, 3}, sink.frames[0].Samples)
	assert.Equal(t, []int16{4, 5, 6, 7}, sink.frames[1].Samples)
	assert.Equal(t, 1, acc.Buffered())
}

func TestAccumulatorQuantizesFloats(t *testing.T) {
	sink := &recordingPusher{}
	acc := NewAccumulator(sink, audio.Format{SampleRate: 44100, Channels: 1}, 2)

	require.NoError(t, acc.Feed(1.0))
	require.NoError(t, acc.Feed(-1.0))

	require.Len(t, sink.frames, 1)
	assert.Equal(t, int16(32767), sink.frames[0].Samples[0])
	assert.Equal(t, int16(-32767), sink.frames[0].Samples[1])
}

func TestAccumulatorInterleavesChannels(t *testing.T) {
	sink := &recordingPusher{}
	format := audio.Format{SampleRate: 48000, Channels: 2}
	acc := NewAccumulator(sink, format, 2)

	// Two stereo sample pairs fill one 2-sample frame.
	for _, s := range []int16{10, 20, 30, 40} {
		require.NoError(t, acc.FeedInt16(s))
	}

	require.Len(t, sink.frames, 1)
	frame := sink.frames[0]
	assert.Equal(t, 2, frame.SampleCount)
	assert.Equal(t, format, frame.Format)
	assert.Equal(t, []int16{10, 20, 30, 40}, frame.Samples)
}

func TestAccumulatorFlushPushesPartialFrame(t *testing.T) {
	sink := &recordingPusher{}
	acc := NewAccumulator(sink, audio.Format{SampleRate: 44100, Channels: 1}, 1024)

	for i := 0; i < 3; i++ {
		require.NoError(t, acc.FeedInt16(int16(i)))
	}
	require.Empty(t, sink.frames)

	require.NoError(t, acc.Flush())
	require.Len(t, sink.frames, 1)
	assert.Equal(t, 3, sink.frames[0].SampleCount)
	assert.Zero(t, acc.Buffered())

	// Flushing an empty accumulator is a no-op.
	require.NoError(t, acc.Flush())
	require.Len(t, sink.frames, 1)
}

func TestAccumulatorDefaultFrameSize(t *testing.T) {
	sink := &recordingPusher{}
	acc := NewAccumulator(sink, audio.Format{SampleRate: 44100, Channels: 1}, 0)

	for i := 0; i < DefaultFrameSize; i++ {
		require.NoError(t, acc.FeedInt16(0))
	}
	require.Len(t, sink.frames, 1)
	assert.Equal(t, DefaultFrameSize, sink.frames[0].SampleCount)
}
