// ABOUTME: MP3 audio decoder
// ABOUTME: Streams stereo PCM chunks out of an MP3 bitstream
package decode

import (
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// MP3Decoder decodes an MP3 bitstream. The underlying decoder always emits
// 16-bit stereo at the source sample rate.
type MP3Decoder struct {
	decoder *mp3.Decoder
	format  audio.Format
}

var _ Decoder = (*MP3Decoder)(nil)

// NewMP3 creates a decoder reading MP3 data from r.
func NewMP3(r io.Reader) (*MP3Decoder, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder: d,
		format:  audio.Format{SampleRate: d.SampleRate(), Channels: audio.StereoChannels},
	}, nil
}

// Format returns the stream format.
func (d *MP3Decoder) Format() audio.Format {
	return d.format
}

// Next decodes up to DefaultChunkSize samples per channel.
func (d *MP3Decoder) Next() (audio.Frame, error) {
	raw := make([]byte, DefaultChunkSize*d.format.Channels*audio.BytesPerSample)
	n, err := io.ReadFull(d.decoder, raw)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err == io.EOF {
		return audio.Frame{}, io.EOF
	}
	if err != nil {
		return audio.Frame{}, fmt.Errorf("mp3 decode failed: %w", err)
	}
	if n == 0 {
		return audio.Frame{}, io.EOF
	}

	samples := audio.SamplesFromBytes(raw[:n])
	sampleCount := len(samples) / d.format.Channels
	if sampleCount == 0 {
		return audio.Frame{}, io.EOF
	}
	samples = samples[:sampleCount*d.format.Channels]

	return audio.NewFrame(samples, sampleCount, d.format.SampleRate, d.format.Channels)
}

// Close releases resources.
func (d *MP3Decoder) Close() error {
	return nil
}
