// ABOUTME: In-memory fake output device
// ABOUTME: Deterministic Device implementation for tests and headless runs
package device

import (
	"fmt"
	"sync"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// Compile-time interface assertion.
var _ Device = (*Fake)(nil)

// Submission records one buffer submission in order.
type Submission struct {
	ID      BufferID
	Format  audio.Format
	Samples []int16
}

type fakeBuffer struct {
	format   audio.Format
	byteSize int
}

// Fake is an in-memory Device for tests and headless environments. Buffers
// finish playing either when the test calls FinishBuffers or, with AutoDrain
// enabled, one at a time as Processed is polled. When the last queued buffer
// finishes the device stops, which models a buffer underrun.
//
// Unlike real backends, Fake is safe for concurrent use so tests can drive
// completion while the engine goroutine runs.
type Fake struct {
	mu        sync.Mutex
	open      bool
	playing   bool
	autoDrain bool
	buffers   []fakeBuffer
	queued    []BufferID
	processed []BufferID
	history   []Submission
	plays     int

	submitErr   error
	submitFails int
	formatErr   error
}

// NewFake creates a fake device. With autoDrain set, every Processed poll
// finishes one queued buffer.
func NewFake(autoDrain bool) *Fake {
	return &Fake{autoDrain: autoDrain}
}

// Open allocates numBuffers buffer slots.
func (d *Fake) Open(numBuffers int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if numBuffers <= 0 {
		return fmt.Errorf("invalid buffer count %d", numBuffers)
	}
	d.open = true
	d.buffers = make([]fakeBuffer, numBuffers)
	d.queued = nil
	d.processed = nil
	return nil
}

// Submit stores the samples in the slot and appends it to the playback queue.
func (d *Fake) Submit(id BufferID, samples []int16, format audio.Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpenLocked(id); err != nil {
		return err
	}
	if d.submitFails > 0 {
		d.submitFails--
		return d.submitErr
	}

	d.buffers[id] = fakeBuffer{format: format, byteSize: len(samples) * audio.BytesPerSample}
	d.queued = append(d.queued, id)

	copied := make([]int16, len(samples))
	copy(copied, samples)
	d.history = append(d.history, Submission{ID: id, Format: format, Samples: copied})
	return nil
}

// Processed returns the number of finished buffers. With AutoDrain it first
// finishes the head of the queue.
func (d *Fake) Processed() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, fmt.Errorf("device not open")
	}
	if d.autoDrain && d.playing {
		d.finishLocked(1)
	}
	return len(d.processed), nil
}

// Unqueue reclaims the oldest processed buffer.
func (d *Fake) Unqueue() (BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, fmt.Errorf("device not open")
	}
	if len(d.processed) == 0 {
		return 0, ErrNoProcessedBuffer
	}
	id := d.processed[0]
	d.processed = d.processed[1:]
	return id, nil
}

// BufferFormat returns the format and byte size last stored in the slot.
func (d *Fake) BufferFormat(id BufferID) (audio.Format, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpenLocked(id); err != nil {
		return audio.Format{}, 0, err
	}
	if err := d.formatErr; err != nil {
		d.formatErr = nil
		return audio.Format{}, 0, err
	}
	buf := d.buffers[id]
	return buf.format, buf.byteSize, nil
}

// DetachBuffers returns every buffer to the free state.
func (d *Fake) DetachBuffers() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return fmt.Errorf("device not open")
	}
	d.queued = nil
	d.processed = nil
	return nil
}

// Play starts playback if any buffer is queued. Playing an empty queue
// leaves the device stopped, matching hardware that halts on starvation.
func (d *Fake) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return fmt.Errorf("device not open")
	}
	d.plays++
	if len(d.queued) > 0 {
		d.playing = true
	}
	return nil
}

// StopPlayback halts playback.
func (d *Fake) StopPlayback() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return fmt.Errorf("device not open")
	}
	d.playing = false
	return nil
}

// Playing reports playback state.
func (d *Fake) Playing() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return false, fmt.Errorf("device not open")
	}
	return d.playing, nil
}

// Close releases the device.
func (d *Fake) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.open = false
	d.playing = false
	d.queued = nil
	d.processed = nil
	return nil
}

// FinishBuffers finishes up to n queued buffers, returning how many were
// finished. If the queue empties, playback stops (underrun).
func (d *Fake) FinishBuffers(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finishLocked(n)
}

// History returns all submissions in order.
func (d *Fake) History() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Submission, len(d.history))
	copy(out, d.history)
	return out
}

// PlayCalls returns how many times Play was issued.
func (d *Fake) PlayCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays
}

// QueuedCount returns how many buffers are queued and not yet finished.
func (d *Fake) QueuedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queued)
}

// FailNextSubmit makes the next Submit return err, then clears.
func (d *Fake) FailNextSubmit(err error) {
	d.FailSubmits(1, err)
}

// FailSubmits makes the next n Submit calls return err, then clears.
func (d *Fake) FailSubmits(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitErr = err
	d.submitFails = n
}

// FailNextBufferFormat makes the next BufferFormat return err, then clears.
func (d *Fake) FailNextBufferFormat(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.formatErr = err
}

func (d *Fake) finishLocked(n int) int {
	finished := 0
	for finished < n && len(d.queued) > 0 {
		d.processed = append(d.processed, d.queued[0])
		d.queued = d.queued[1:]
		finished++
	}
	if len(d.queued) == 0 && finished > 0 {
		d.playing = false
	}
	return finished
}

func (d *Fake) checkOpenLocked(id BufferID) error {
	if !d.open {
		return fmt.Errorf("device not open")
	}
	if int(id) < 0 || int(id) >= len(d.buffers) {
		return fmt.Errorf("buffer id %d out of range", id)
	}
	return nil
}
