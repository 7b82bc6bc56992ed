// ABOUTME: Raw PCM decoder
// ABOUTME: Slices a headerless little-endian 16-bit stream into frames
package decode

import (
	"fmt"
	"io"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// PCMDecoder reads headerless interleaved little-endian 16-bit PCM.
type PCMDecoder struct {
	r      io.Reader
	format audio.Format
}

var _ Decoder = (*PCMDecoder)(nil)

// NewPCM creates a decoder for a raw PCM stream in the given format.
func NewPCM(r io.Reader, format audio.Format) (*PCMDecoder, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("invalid PCM format %s", format)
	}
	return &PCMDecoder{r: r, format: format}, nil
}

// Format returns the stream format.
func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Next reads up to DefaultChunkSize samples per channel.
func (d *PCMDecoder) Next() (audio.Frame, error) {
	raw := make([]byte, DefaultChunkSize*d.format.Channels*audio.BytesPerSample)
	n, err := io.ReadFull(d.r, raw)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil {
		return audio.Frame{}, err
	}
	if n == 0 {
		return audio.Frame{}, io.EOF
	}

	// A tail that splits a sample or a channel group is truncated.
	samples := audio.SamplesFromBytes(raw[:n])
	sampleCount := len(samples) / d.format.Channels
	samples = samples[:sampleCount*d.format.Channels]
	if sampleCount == 0 {
		return audio.Frame{}, io.EOF
	}

	return audio.NewFrame(samples, sampleCount, d.format.SampleRate, d.format.Channels)
}

// Close releases resources.
func (d *PCMDecoder) Close() error {
	return nil
}
