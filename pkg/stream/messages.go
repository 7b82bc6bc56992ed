// ABOUTME: Wire format for the speaker protocol
// ABOUTME: JSON control envelope and binary PCM frame codec
package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

const (
	// ProtocolVersion is the current speaker protocol version.
	ProtocolVersion = 1

	// FrameMessageType is the binary message type ID for PCM frames.
	FrameMessageType = 1

	// frameHeaderSize is 1 type byte + u32 sample rate + u8 channels +
	// u32 sample count.
	frameHeaderSize = 1 + 4 + 1 + 4
)

// Message is the envelope for all JSON control messages.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hello is sent by a sender to initiate the handshake.
type Hello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// Welcome is the speaker's response to client/hello.
type Welcome struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// Status is pushed periodically by the speaker so senders can pace their
// output against the pipeline depth.
type Status struct {
	BufferedSamples int     `json:"buffered_samples"`
	SecondsPlayed   float64 `json:"seconds_played"`
}

// EncodeFrame packs a frame into a binary websocket message. Header fields
// are big-endian; sample payload is little-endian 16-bit PCM.
func EncodeFrame(f audio.Frame) []byte {
	buf := make([]byte, frameHeaderSize, frameHeaderSize+f.ByteSize())
	buf[0] = FrameMessageType
	binary.BigEndian.PutUint32(buf[1:5], uint32(f.Format.SampleRate))
	buf[5] = byte(f.Format.Channels)
	binary.BigEndian.PutUint32(buf[6:10], uint32(f.SampleCount))
	return append(buf, audio.SamplesToBytes(f.Samples)...)
}

// DecodeFrame unpacks a binary frame message.
func DecodeFrame(data []byte) (audio.Frame, error) {
	if len(data) < frameHeaderSize {
		return audio.Frame{}, fmt.Errorf("frame message too short: %d bytes", len(data))
	}
	if data[0] != FrameMessageType {
		return audio.Frame{}, fmt.Errorf("unknown binary message type %d", data[0])
	}

	sampleRate := int(binary.BigEndian.Uint32(data[1:5]))
	channels := int(data[5])
	sampleCount := int(binary.BigEndian.Uint32(data[6:10]))

	payload := data[frameHeaderSize:]
	if len(payload) != sampleCount*channels*audio.BytesPerSample {
		return audio.Frame{}, fmt.Errorf("frame payload is %d bytes, header says %d samples x %d channels",
			len(payload), sampleCount, channels)
	}

	return audio.NewFrame(audio.SamplesFromBytes(payload), sampleCount, sampleRate, channels)
}
