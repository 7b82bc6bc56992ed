//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package device

import (
	"fmt"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// Compile-time interface assertion.
var _ Device = (*PortAudio)(nil)

// PortAudio output device (stub).
type PortAudio struct{}

// NewPortAudio creates a PortAudio-backed device.
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

var errNoPortAudio = fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")

func (d *PortAudio) Open(numBuffers int) error { return errNoPortAudio }

func (d *PortAudio) Submit(id BufferID, samples []int16, format audio.Format) error {
	return errNoPortAudio
}

func (d *PortAudio) Processed() (int, error) { return 0, errNoPortAudio }

func (d *PortAudio) Unqueue() (BufferID, error) { return 0, errNoPortAudio }

func (d *PortAudio) BufferFormat(id BufferID) (audio.Format, int, error) {
	return audio.Format{}, 0, errNoPortAudio
}

func (d *PortAudio) DetachBuffers() error { return errNoPortAudio }

func (d *PortAudio) Play() error { return errNoPortAudio }

func (d *PortAudio) StopPlayback() error { return errNoPortAudio }

func (d *PortAudio) Playing() (bool, error) { return false, errNoPortAudio }

func (d *PortAudio) Close() error { return nil }
