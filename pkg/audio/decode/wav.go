// ABOUTME: WAV audio decoder
// ABOUTME: Streams PCM chunks out of a RIFF/WAVE container
package decode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// WAVDecoder decodes a WAV container into 16-bit frames. Sources with other
// bit depths are rescaled to 16 bits.
type WAVDecoder struct {
	decoder *wav.Decoder
	format  audio.Format
	buf     *goaudio.IntBuffer
	shift   int
}

var _ Decoder = (*WAVDecoder)(nil)

// NewWAV creates a decoder reading WAV data from rs.
func NewWAV(rs io.ReadSeeker) (*WAVDecoder, error) {
	d := wav.NewDecoder(rs)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}

	bitDepth := int(d.BitDepth)
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	format := audio.Format{SampleRate: int(d.SampleRate), Channels: int(d.NumChans)}
	if !format.Valid() {
		return nil, fmt.Errorf("invalid wav format %s", format)
	}

	return &WAVDecoder{
		decoder: d,
		format:  format,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:           make([]int, DefaultChunkSize*format.Channels),
			SourceBitDepth: bitDepth,
		},
		shift: bitDepth - 16,
	}, nil
}

// Format returns the stream format.
func (d *WAVDecoder) Format() audio.Format {
	return d.format
}

// Next decodes up to DefaultChunkSize samples per channel.
func (d *WAVDecoder) Next() (audio.Frame, error) {
	n, err := d.decoder.PCMBuffer(d.buf)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("wav decode failed: %w", err)
	}
	if n == 0 {
		return audio.Frame{}, io.EOF
	}

	n -= n % d.format.Channels
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(d.buf.Data[i] >> d.shift)
	}

	return audio.NewFrame(samples, n/d.format.Channels, d.format.SampleRate, d.format.Channels)
}

// Close releases resources.
func (d *WAVDecoder) Close() error {
	return nil
}
