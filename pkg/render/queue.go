// ABOUTME: Frame queue and shared pipeline counters
// ABOUTME: Single-lock FIFO linking the producer thread to the engine
package render

import (
	"sync"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// frameQueue is the producer/engine handoff point. One mutex guards the
// FIFO and every pipeline counter (queued samples, buffered samples, the
// playback clock) so that concurrent readers always observe counters
// consistent with queue contents.
type frameQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	frames          []audio.Frame
	queuedSamples   int
	bufferedSamples int
	secondsPlayed   float64
	stopped         bool
}

func newFrameQueue() *frameQueue {
	q := &frameQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a frame and wakes a waiting consumer. Never blocks.
func (q *frameQueue) push(f audio.Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	q.frames = append(q.frames, f)
	q.queuedSamples += f.SampleCount
	q.cond.Signal()
	return true
}

// pop blocks until a frame is available or the queue is stopped. The
// returned bool is false only after stop.
func (q *frameQueue) pop() (audio.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.frames) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return audio.Frame{}, false
	}

	f := q.frames[0]
	q.frames = q.frames[1:]
	q.queuedSamples -= f.SampleCount
	return f, true
}

// stop wakes any blocked pop and makes further pushes no-ops.
func (q *frameQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	q.cond.Broadcast()
}

// drain discards all queued frames, returning how many were dropped.
func (q *frameQueue) drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.frames)
	q.frames = nil
	q.queuedSamples = 0
	q.bufferedSamples = 0
	return dropped
}

// pipelineDepth returns buffered plus queued samples, the total number of
// samples anywhere between producer and speaker.
func (q *frameQueue) pipelineDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bufferedSamples + q.queuedSamples
}

func (q *frameQueue) queuedSampleCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queuedSamples
}

func (q *frameQueue) bufferedSampleCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bufferedSamples
}

// noteSubmitted accounts for a frame handed to a device buffer: its samples
// become buffered and the playback clock advances.
func (q *frameQueue) noteSubmitted(f audio.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.bufferedSamples += f.SampleCount
	q.secondsPlayed += f.Seconds()
}

// noteReclaimed accounts for a reclaimed device buffer holding sampleCount
// samples.
func (q *frameQueue) noteReclaimed(sampleCount int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufferedSamples -= sampleCount
}

// noteDetached clears the buffered count after the engine detaches all
// device buffers; their contents are no longer resident anywhere.
func (q *frameQueue) noteDetached() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufferedSamples = 0
}

func (q *frameQueue) seconds() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.secondsPlayed
}

func (q *frameQueue) resetSeconds() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.secondsPlayed = 0
}
