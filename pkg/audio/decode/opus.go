// ABOUTME: Opus packet decoder
// ABOUTME: Decodes discrete Opus packets arriving over the network
package decode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// maxOpusFrameSize is the largest Opus frame duration, 120ms at 48kHz.
const maxOpusFrameSize = 5760

// OpusDecoder decodes self-contained Opus packets, one frame per packet.
// Unlike the file decoders it is packet-driven, which matches a network
// transport that delivers one encoded packet per message.
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm     []int16
}

// NewOpus creates a packet decoder for the given output format. Opus
// supports sample rates of 8, 12, 16, 24, and 48 kHz and 1 or 2 channels.
func NewOpus(format audio.Format) (*OpusDecoder, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("invalid opus format %s", format)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm:     make([]int16, maxOpusFrameSize*format.Channels),
	}, nil
}

// Format returns the decoded output format.
func (d *OpusDecoder) Format() audio.Format {
	return d.format
}

// DecodePacket decodes one Opus packet into a frame.
func (d *OpusDecoder) DecodePacket(packet []byte) (audio.Frame, error) {
	n, err := d.decoder.Decode(packet, d.pcm)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("opus decode failed: %w", err)
	}
	return audio.NewFrame(d.pcm[:n*d.format.Channels], n, d.format.SampleRate, d.format.Channels)
}

// Close releases resources.
func (d *OpusDecoder) Close() error {
	return nil
}
