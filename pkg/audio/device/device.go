// ABOUTME: Output device interface definition
// ABOUTME: Buffer-queue contract implemented by all playback backends
package device

import (
	"errors"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// BufferID identifies one of the fixed set of device buffers allocated by
// Open. IDs are dense, starting at 0.
type BufferID int

// ErrNoProcessedBuffer is returned by Unqueue when no buffer has finished
// playing yet.
var ErrNoProcessedBuffer = errors.New("no processed buffer available")

// Device is an audio output with a small fixed pool of reusable buffers.
// Buffers cycle free -> queued -> processed -> free; the render engine drives
// the cycle by submitting filled buffers and reclaiming processed ones.
//
// After Open, a Device is owned by a single goroutine; implementations do not
// need to support concurrent callers (the Fake device allows it for tests).
type Device interface {
	// Open allocates numBuffers reusable buffers and prepares the device.
	Open(numBuffers int) error

	// Submit fills the given buffer with interleaved 16-bit samples at the
	// given format and enqueues it for playback.
	Submit(id BufferID, samples []int16, format audio.Format) error

	// Processed returns how many queued buffers have finished playing.
	Processed() (int, error)

	// Unqueue reclaims one processed buffer. Returns ErrNoProcessedBuffer
	// when none has finished.
	Unqueue() (BufferID, error)

	// BufferFormat returns the format and payload byte size most recently
	// stored in the buffer, so a reclaimed buffer's sample count can be
	// recovered without frame metadata.
	BufferFormat(id BufferID) (audio.Format, int, error)

	// DetachBuffers removes all queued and processed buffers from the
	// playback queue, returning every buffer to the free state.
	DetachBuffers() error

	// Play starts or resumes playback of queued buffers.
	Play() error

	// StopPlayback halts playback without releasing buffers.
	StopPlayback() error

	// Playing reports whether the device is currently rendering audio.
	Playing() (bool, error)

	// Close stops playback and releases all device resources.
	Close() error
}
