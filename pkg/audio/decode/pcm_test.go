// ABOUTME: Tests for the raw PCM decoder
// ABOUTME: Verifies little-endian conversion, chunking, and tail handling
package decode

import (
	"bytes"
	"io"
	"testing"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

func TestNewPCMRejectsInvalidFormat(t *testing.T) {
	_, err := NewPCM(bytes.NewReader(nil), audio.Format{SampleRate: 0, Channels: 2})
	if err == nil {
		t.Fatal("expected error for invalid format, got nil")
	}
}

func TestPCMDecodeLittleEndian(t *testing.T) {
	format := audio.Format{SampleRate: 48000, Channels: 1}
	dec, err := NewPCM(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}), format)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame.SampleCount != 2 {
		t.Fatalf("expected 2 samples, got %d", frame.SampleCount)
	}
	// 0x00, 0x01 -> 0x0100 = 256; 0x02, 0x03 -> 0x0302 = 770
	if frame.Samples[0] != 256 {
		t.Errorf("expected first sample 256, got %d", frame.Samples[0])
	}
	if frame.Samples[1] != 770 {
		t.Errorf("expected second sample 770, got %d", frame.Samples[1])
	}
	if frame.Format != format {
		t.Errorf("expected format %s, got %s", format, frame.Format)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after stream end, got %v", err)
	}
}

func TestPCMDecodeChunking(t *testing.T) {
	// 1.5 chunks of stereo audio: the second read returns a short frame.
	total := DefaultChunkSize*2 + DefaultChunkSize
	raw := make([]byte, total*audio.BytesPerSample)

	dec, err := NewPCM(bytes.NewReader(raw), audio.Format{SampleRate: 44100, Channels: 2})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	first, err := dec.Next()
	if err != nil {
		t.Fatalf("first chunk failed: %v", err)
	}
	if first.SampleCount != DefaultChunkSize {
		t.Errorf("expected full chunk of %d, got %d", DefaultChunkSize, first.SampleCount)
	}

	second, err := dec.Next()
	if err != nil {
		t.Fatalf("second chunk failed: %v", err)
	}
	if second.SampleCount != DefaultChunkSize/2 {
		t.Errorf("expected short tail of %d, got %d", DefaultChunkSize/2, second.SampleCount)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestPCMDecodeEmptyInput(t *testing.T) {
	dec, err := NewPCM(bytes.NewReader(nil), audio.Format{SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF on empty input, got %v", err)
	}
}
