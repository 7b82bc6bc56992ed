// ABOUTME: FLAC audio decoder
// ABOUTME: Interleaves FLAC frames into 16-bit PCM chunks
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// FLACDecoder decodes a FLAC stream. Chunk sizes follow the encoder's block
// size rather than DefaultChunkSize. Sources deeper than 16 bits are rescaled.
type FLACDecoder struct {
	stream *flac.Stream
	format audio.Format
	shift  int
}

var _ Decoder = (*FLACDecoder)(nil)

// NewFLAC creates a decoder reading FLAC data from r.
func NewFLAC(r io.Reader) (*FLACDecoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}

	info := stream.Info
	format := audio.Format{SampleRate: int(info.SampleRate), Channels: int(info.NChannels)}
	if !format.Valid() {
		stream.Close()
		return nil, fmt.Errorf("invalid flac format %s", format)
	}

	return &FLACDecoder{
		stream: stream,
		format: format,
		shift:  int(info.BitsPerSample) - 16,
	}, nil
}

// Format returns the stream format.
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Next decodes one FLAC frame.
func (d *FLACDecoder) Next() (audio.Frame, error) {
	f, err := d.stream.ParseNext()
	if err == io.EOF {
		return audio.Frame{}, io.EOF
	}
	if err != nil {
		return audio.Frame{}, fmt.Errorf("flac decode failed: %w", err)
	}
	if len(f.Subframes) != d.format.Channels {
		return audio.Frame{}, fmt.Errorf("flac frame has %d channels, stream has %d", len(f.Subframes), d.format.Channels)
	}

	sampleCount := len(f.Subframes[0].Samples)
	samples := make([]int16, sampleCount*d.format.Channels)
	for i := 0; i < sampleCount; i++ {
		for ch, sub := range f.Subframes {
			v := sub.Samples[i]
			if d.shift > 0 {
				v >>= d.shift
			} else if d.shift < 0 {
				v <<= -d.shift
			}
			samples[i*d.format.Channels+ch] = int16(v)
		}
	}

	return audio.NewFrame(samples, sampleCount, d.format.SampleRate, d.format.Channels)
}

// Close releases stream resources.
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
