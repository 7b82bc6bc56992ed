// ABOUTME: Tests for audio types
// ABOUTME: Tests Frame construction, durations, and byte conversion
package audio

import (
	"testing"
	"time"
)

func TestNewFrameCopiesSamples(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	frame, err := NewFrame(in, 2, 48000, 2)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	in[0] = 99
	if frame.Samples[0] != 1 {
		t.Errorf("expected frame to own a copy, got mutated sample %d", frame.Samples[0])
	}
}

func TestNewFrameValidation(t *testing.T) {
	tests := []struct {
		name        string
		samples     []int16
		sampleCount int
		sampleRate  int
		channels    int
	}{
		{"length mismatch", []int16{1, 2, 3}, 2, 44100, 2},
		{"zero rate", []int16{1, 2}, 2, 0, 1},
		{"bad channels", []int16{1, 2}, 2, 44100, 3},
		{"zero samples", nil, 0, 44100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFrame(tt.samples, tt.sampleCount, tt.sampleRate, tt.channels); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFrameDuration(t *testing.T) {
	frame := Frame{SampleCount: 44100, Format: Format{SampleRate: 44100, Channels: 1}}

	if d := frame.Duration(); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	if s := frame.Seconds(); s != 1.0 {
		t.Errorf("expected 1.0, got %f", s)
	}
}

func TestSampleByteRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}

	data := SamplesToBytes(samples)
	if len(data) != len(samples)*BytesPerSample {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(data))
	}

	// Little-endian: 256 = 0x0100
	if data[10] != 0x00 || data[11] != 0x01 {
		t.Errorf("expected little-endian encoding, got % x", data[10:12])
	}

	back := SamplesFromBytes(data)
	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], back[i])
		}
	}
}

func TestFormatValid(t *testing.T) {
	if !(Format{SampleRate: 44100, Channels: 1}).Valid() {
		t.Error("expected mono 44100 to be valid")
	}
	if (Format{SampleRate: 44100, Channels: 5}).Valid() {
		t.Error("expected 5-channel format to be invalid")
	}
}
