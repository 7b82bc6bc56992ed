// ABOUTME: Real-time playback engine feeding a buffer-queue output device
// ABOUTME: Runs prebuffering, steady-state refill, underrun and format-change recovery
package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/chipstream-audio/chipstream-go/pkg/audio/device"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultNumBuffers is the size of the device buffer ring.
	DefaultNumBuffers = 5

	// DefaultPollInterval is how often the engine polls the device for a
	// processed buffer. The device has no completion callback in this
	// design, so the wait is a bounded-granularity spin.
	DefaultPollInterval = 100 * time.Microsecond
)

// Config holds renderer configuration.
type Config struct {
	// Device is the output device to drive. Required.
	Device device.Device

	// NumBuffers is the device buffer ring size (default: 5).
	NumBuffers int

	// PollInterval is the processed-buffer poll granularity (default: 100µs).
	PollInterval time.Duration

	// OnError is called for transient errors the engine tolerates, such as
	// a failed buffer submission. Optional.
	OnError func(error)
}

// Stats tracks engine counters.
type Stats struct {
	FramesRendered int64 // frames submitted to device buffers
	Underruns      int64 // silent play restarts after device starvation
	FormatChanges  int64 // drain-and-reprime transitions
	Dropped        int64 // frames lost to submit errors or shutdown
}

// Renderer streams producer frames into an output device from a dedicated
// goroutine, keeping a fixed ring of device buffers continuously fed.
//
// Producers call PushFrame from any goroutine; it never blocks. The engine
// prebuffers NumBuffers frames, starts playback, and then recycles the
// oldest played buffer for each new frame. Underruns restart playback
// silently; a frame whose format differs from the buffer it would fill
// triggers a drain-and-reprime so the device only ever holds buffers of a
// single format.
type Renderer struct {
	config Config
	device device.Device
	log    *logrus.Entry
	queue  *frameQueue

	bufferIDs []device.BufferID

	// pending carries the frame that triggered a format change from the
	// steady-state loop into the reprime phase.
	pending audio.Frame

	// ringFormat is the format of the last successfully submitted frame.
	// Fallback for the mismatch check when BufferFormat fails. Engine
	// goroutine only.
	ringFormat audio.Format

	mu      sync.Mutex
	stats   Stats
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a renderer for the given device. Defaults are applied for
// zero-valued config fields.
func New(config Config) (*Renderer, error) {
	if config.Device == nil {
		return nil, fmt.Errorf("config.Device is required")
	}
	if config.NumBuffers == 0 {
		config.NumBuffers = DefaultNumBuffers
	}
	if config.NumBuffers < 0 {
		return nil, fmt.Errorf("invalid buffer count %d", config.NumBuffers)
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}

	ids := make([]device.BufferID, config.NumBuffers)
	for i := range ids {
		ids[i] = device.BufferID(i)
	}

	return &Renderer{
		config:    config,
		device:    config.Device,
		log:       logrus.WithField("component", "render"),
		queue:     newFrameQueue(),
		bufferIDs: ids,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start opens the device and launches the playback goroutine. It is
// idempotent; a failed device open is fatal and leaves the goroutine
// unlaunched. A stopped renderer cannot be restarted.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}
	if r.stopped {
		return fmt.Errorf("renderer already stopped")
	}

	if err := r.device.Open(r.config.NumBuffers); err != nil {
		return fmt.Errorf("failed to open output device: %w", err)
	}

	r.started = true
	go r.run()

	r.log.Infof("renderer started with %d device buffers", r.config.NumBuffers)
	return nil
}

// Stop terminates the playback goroutine, stops the device, and releases
// its resources. Frames still queued are dropped. Idempotent.
func (r *Renderer) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	launched := r.started
	close(r.stop)
	r.mu.Unlock()

	r.queue.stop()
	if launched {
		<-r.done
	}

	if launched {
		if err := r.device.StopPlayback(); err != nil {
			r.log.Warnf("device stop error: %v", err)
		}
		if err := r.device.Close(); err != nil {
			r.log.Warnf("device close error: %v", err)
		}
	}

	dropped := r.queue.drain()
	if dropped > 0 {
		r.mu.Lock()
		r.stats.Dropped += int64(dropped)
		r.mu.Unlock()
		r.log.Debugf("dropped %d queued frames on stop", dropped)
	}
	r.log.Info("renderer stopped")
}

// PushFrame copies the given interleaved samples into a new frame and
// queues it for playback. It never blocks; the only errors are argument
// violations and pushing after Stop. Callers retain ownership of samples.
func (r *Renderer) PushFrame(samples []int16, sampleCount, sampleRate, channels int) error {
	frame, err := audio.NewFrame(samples, sampleCount, sampleRate, channels)
	if err != nil {
		return err
	}
	if !r.queue.push(frame) {
		return fmt.Errorf("renderer stopped")
	}
	return nil
}

// BufferSize returns the total pipeline depth in samples: samples resident
// in device buffers plus samples waiting in the frame queue. Producers use
// it to pace their output.
func (r *Renderer) BufferSize() int {
	return r.queue.pipelineDepth()
}

// SecondsPlayed returns the playback clock: cumulative seconds of audio
// handed to the device since start or the last reset.
func (r *Renderer) SecondsPlayed() float64 {
	return r.queue.seconds()
}

// ResetSecondsPlayed zeroes the playback clock.
func (r *Renderer) ResetSecondsPlayed() {
	r.queue.resetSeconds()
}

// Stats returns a snapshot of engine counters.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// run is the playback goroutine: prebuffer, then alternate steady-state
// feeding with format-change reprimes until stopped.
func (r *Renderer) run() {
	defer close(r.done)

	// Prebuffer: one frame into every buffer before playback starts, to
	// build latency headroom against producer jitter.
	for _, id := range r.bufferIDs {
		if !r.fillSlot(id) {
			return
		}
	}

	for {
		if err := r.device.Play(); err != nil {
			r.reportError(fmt.Errorf("device play failed: %w", err))
		}

		if !r.playUntilFormatChange() {
			return
		}

		// Only reached on a format change: every buffer still holding
		// old-format audio is discarded so formats never mix in the ring.
		if err := r.device.DetachBuffers(); err != nil {
			r.reportError(fmt.Errorf("buffer detach failed: %w", err))
		}
		if err := r.device.StopPlayback(); err != nil {
			r.reportError(fmt.Errorf("device stop failed: %w", err))
		}
		r.queue.noteDetached()

		r.mu.Lock()
		r.stats.FormatChanges++
		r.mu.Unlock()
		r.log.Infof("format change to %s, repriming %d buffers", r.pending.Format, len(r.bufferIDs))

		// Reprime with the new format: the pending mismatched frame first,
		// fresh pops for the rest.
		if !r.submit(r.bufferIDs[0], r.pending) {
			if !r.fillSlot(r.bufferIDs[0]) {
				return
			}
		}
		r.pending = audio.Frame{}
		for _, id := range r.bufferIDs[1:] {
			if !r.fillSlot(id) {
				return
			}
		}
	}
}

// playUntilFormatChange runs the steady-state loop. It returns false when
// the renderer is stopping, true when a format change needs a reprime (the
// mismatched frame is left in r.pending).
func (r *Renderer) playUntilFormatChange() bool {
	for {
		id, ok := r.waitForProcessedBuffer()
		if !ok {
			return false
		}

		bufFormat, byteSize, err := r.device.BufferFormat(id)
		if err != nil {
			r.reportError(fmt.Errorf("buffer format query failed: %w", err))
			// The slot still gets refilled; fall back to the format the
			// ring is known to hold for the mismatch check.
			bufFormat = r.ringFormat
		} else {
			// The reclaimed buffer's sample count comes from its stored
			// size and format, not from frame metadata.
			r.queue.noteReclaimed(byteSize / (bufFormat.Channels * audio.BytesPerSample))
		}

		// Refill the reclaimed slot. A failed submission costs the frame,
		// never the slot: the next popped frame retries the same buffer.
		for {
			frame, ok := r.queue.pop()
			if !ok {
				return false
			}
			if frame.Format != bufFormat {
				r.pending = frame
				return true
			}
			if r.submit(id, frame) {
				break
			}
		}

		// A device that ran dry stops on its own; restarting it here is
		// the silent underrun recovery path.
		playing, err := r.device.Playing()
		if err != nil {
			r.reportError(fmt.Errorf("playback state query failed: %w", err))
			continue
		}
		if !playing {
			if err := r.device.Play(); err != nil {
				r.reportError(fmt.Errorf("device play failed: %w", err))
				continue
			}
			r.mu.Lock()
			r.stats.Underruns++
			r.mu.Unlock()
			r.log.Debug("underrun recovered, playback restarted")
		}
	}
}

// waitForProcessedBuffer polls the device until a buffer finishes playing,
// then reclaims it. Returns false when the renderer is stopping.
func (r *Renderer) waitForProcessedBuffer() (device.BufferID, bool) {
	for {
		select {
		case <-r.stop:
			return 0, false
		default:
		}

		n, err := r.device.Processed()
		if err != nil {
			r.reportError(fmt.Errorf("processed count query failed: %w", err))
		} else if n > 0 {
			id, err := r.device.Unqueue()
			if err == nil {
				return id, true
			}
			if !errors.Is(err, device.ErrNoProcessedBuffer) {
				r.reportError(fmt.Errorf("buffer unqueue failed: %w", err))
			}
		}

		time.Sleep(r.config.PollInterval)
	}
}

// submit hands a frame to a device buffer and advances the pipeline
// counters and playback clock. A failed submission costs only that frame;
// the caller keeps the buffer ID for the next frame.
func (r *Renderer) submit(id device.BufferID, frame audio.Frame) bool {
	if err := r.device.Submit(id, frame.Samples, frame.Format); err != nil {
		r.reportError(fmt.Errorf("buffer submit failed: %w", err))
		r.mu.Lock()
		r.stats.Dropped++
		r.mu.Unlock()
		return false
	}

	r.ringFormat = frame.Format
	r.queue.noteSubmitted(frame)

	r.mu.Lock()
	r.stats.FramesRendered++
	r.mu.Unlock()
	return true
}

// fillSlot pops frames into the buffer until one submits successfully, so
// a transient submit error never shrinks the ring. Returns false when the
// renderer is stopping.
func (r *Renderer) fillSlot(id device.BufferID) bool {
	for {
		frame, ok := r.queue.pop()
		if !ok {
			return false
		}
		if r.submit(id, frame) {
			return true
		}
	}
}

// reportError logs a tolerated error and forwards it to the OnError
// callback if one is set.
func (r *Renderer) reportError(err error) {
	r.log.Warn(err)
	if r.config.OnError != nil {
		r.config.OnError(err)
	}
}
