// ABOUTME: Tests for the WAV decoder
// ABOUTME: Round-trips generated WAV files through decoding
package decode

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// writeTestWAV writes a 16-bit WAV file with the given interleaved samples.
func writeTestWAV(t *testing.T, samples []int, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write wav data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalize wav: %v", err)
	}
	return path
}

func TestWAVDecodeRoundTrip(t *testing.T) {
	samples := []int{100, -100, 200, -200, 300, -300}
	path := writeTestWAV(t, samples, 44100, 2)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open wav: %v", err)
	}
	defer f.Close()

	dec, err := NewWAV(f)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	defer dec.Close()

	want := audio.Format{SampleRate: 44100, Channels: 2}
	if dec.Format() != want {
		t.Fatalf("expected format %s, got %s", want, dec.Format())
	}

	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame.SampleCount != 3 {
		t.Fatalf("expected 3 samples per channel, got %d", frame.SampleCount)
	}
	for i, v := range samples {
		if frame.Samples[i] != int16(v) {
			t.Errorf("sample %d: expected %d, got %d", i, v, frame.Samples[i])
		}
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after last chunk, got %v", err)
	}
}

func TestWAVDecodeChunksLongFile(t *testing.T) {
	samples := make([]int, (DefaultChunkSize+10)*1)
	for i := range samples {
		samples[i] = i % 1000
	}
	path := writeTestWAV(t, samples, 22050, 1)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open wav: %v", err)
	}
	defer f.Close()

	dec, err := NewWAV(f)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	defer dec.Close()

	total := 0
	for {
		frame, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if frame.SampleCount > DefaultChunkSize {
			t.Fatalf("chunk of %d exceeds limit %d", frame.SampleCount, DefaultChunkSize)
		}
		total += frame.SampleCount
	}
	if total != len(samples) {
		t.Errorf("expected %d total samples, got %d", len(samples), total)
	}
}

func TestNewWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("definitely not a wav file"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open file: %v", err)
	}
	defer f.Close()

	if _, err := NewWAV(f); err == nil {
		t.Fatal("expected error for invalid wav data, got nil")
	}
}

func TestOpenDispatchesByExtension(t *testing.T) {
	path := writeTestWAV(t, []int{1, 2, 3, 4}, 48000, 2)

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer dec.Close()

	if _, ok := dec.(*closingDecoder); !ok {
		t.Fatalf("expected file-closing wrapper, got %T", dec)
	}
	want := audio.Format{SampleRate: 48000, Channels: 2}
	if dec.Format() != want {
		t.Errorf("expected format %s, got %s", want, dec.Format())
	}
}

func TestOpenRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.ogg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported extension, got nil")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
