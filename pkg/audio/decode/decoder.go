// ABOUTME: Decoder interface and file-type dispatch
// ABOUTME: Common interface for all audio decoders feeding the renderer
package decode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// DefaultChunkSize is the per-channel sample count decoders aim for when the
// container does not impose its own block size.
const DefaultChunkSize = 1024

// Decoder pulls decoded PCM from an encoded source one frame at a time.
// Next returns io.EOF once the source is exhausted.
type Decoder interface {
	// Format returns the decoded stream's sample rate and channel count.
	Format() audio.Format

	// Next decodes and returns the next chunk of samples. The chunk size is
	// decoder-chosen; the final chunk may be short.
	Next() (audio.Frame, error)

	// Close releases decoder resources.
	Close() error
}

// Open opens the file at path and picks a decoder by extension. Supported:
// .wav, .mp3, .flac.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var dec Decoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		dec, err = NewWAV(f)
	case ".mp3":
		dec, err = NewMP3(f)
	case ".flac":
		dec, err = NewFLAC(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return &closingDecoder{Decoder: dec, file: f}, nil
}

// closingDecoder closes the underlying file along with the decoder.
type closingDecoder struct {
	Decoder
	file *os.File
}

func (d *closingDecoder) Close() error {
	err := d.Decoder.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}
