//go:build portaudio

// ABOUTME: PortAudio output device implementation
// ABOUTME: Cross-platform blocking-write backend using PortAudio
package device

import (
	"fmt"
	"sync"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

// Compile-time interface assertion.
var _ Device = (*PortAudio)(nil)

const portaudioChunkFrames = 512

type paBuffer struct {
	format   audio.Format
	byteSize int
	data     []int16
}

// PortAudio implements Device with blocking stream writes. A feeder
// goroutine pushes queued buffers through the stream in fixed-size chunks
// and marks each buffer processed once its last chunk has been written.
type PortAudio struct {
	mu        sync.Mutex
	cond      *sync.Cond
	log       *logrus.Entry
	stream    *portaudio.Stream
	chunk     []int16
	format    audio.Format
	buffers   []paBuffer
	queued    []BufferID
	processed []BufferID
	open      bool
	started   bool
	closed    bool
}

// NewPortAudio creates a PortAudio-backed device.
func NewPortAudio() *PortAudio {
	d := &PortAudio{log: logrus.WithField("component", "device.portaudio")}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Open initializes PortAudio and allocates buffer slots. The stream is
// created at the first Submit, once a format is known.
func (d *PortAudio) Open(numBuffers int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if numBuffers <= 0 {
		return fmt.Errorf("invalid buffer count %d", numBuffers)
	}
	if d.open {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	d.buffers = make([]paBuffer, numBuffers)
	d.open = true
	go d.feed()
	return nil
}

// Submit queues samples for the feeder, reopening the stream on a format
// change.
func (d *PortAudio) Submit(id BufferID, samples []int16, format audio.Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return fmt.Errorf("device not open")
	}
	if int(id) < 0 || int(id) >= len(d.buffers) {
		return fmt.Errorf("buffer id %d out of range", id)
	}

	if d.stream == nil || format != d.format {
		if err := d.initStreamLocked(format); err != nil {
			return err
		}
	}

	data := make([]int16, len(samples))
	copy(data, samples)
	d.buffers[id] = paBuffer{format: format, byteSize: len(data) * audio.BytesPerSample, data: data}
	d.queued = append(d.queued, id)
	d.cond.Signal()
	return nil
}

func (d *PortAudio) initStreamLocked(format audio.Format) error {
	if d.stream != nil {
		d.log.Infof("format change %s -> %s, reopening stream", d.format, format)
		d.stream.Stop()
		d.stream.Close()
		d.stream = nil
		d.started = false
	}

	d.chunk = make([]int16, portaudioChunkFrames*format.Channels)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate),
		portaudioChunkFrames, &d.chunk)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	d.stream = stream
	d.format = format
	d.log.Infof("audio output initialized: %s (portaudio)", format)
	return nil
}

// feed pushes queued buffers through the stream chunk by chunk.
func (d *PortAudio) feed() {
	for {
		d.mu.Lock()
		for !d.closed && (len(d.queued) == 0 || !d.started) {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		id := d.queued[0]
		data := d.buffers[id].data
		stream := d.stream
		chunk := d.chunk
		d.mu.Unlock()

		for off := 0; off < len(data); off += len(chunk) {
			n := copy(chunk, data[off:])
			for i := n; i < len(chunk); i++ {
				chunk[i] = 0
			}
			if err := stream.Write(); err != nil {
				d.log.Warnf("stream write failed: %v", err)
				break
			}
		}

		d.mu.Lock()
		if len(d.queued) > 0 && d.queued[0] == id {
			d.queued = d.queued[1:]
			d.processed = append(d.processed, id)
		}
		d.mu.Unlock()
	}
}

// Processed returns the count of fully written buffers.
func (d *PortAudio) Processed() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, fmt.Errorf("device not open")
	}
	return len(d.processed), nil
}

// Unqueue reclaims the oldest processed buffer.
func (d *PortAudio) Unqueue() (BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.processed) == 0 {
		return 0, ErrNoProcessedBuffer
	}
	id := d.processed[0]
	d.processed = d.processed[1:]
	return id, nil
}

// BufferFormat returns the stored format and byte size for the slot.
func (d *PortAudio) BufferFormat(id BufferID) (audio.Format, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if int(id) < 0 || int(id) >= len(d.buffers) {
		return audio.Format{}, 0, fmt.Errorf("buffer id %d out of range", id)
	}
	buf := d.buffers[id]
	return buf.format, buf.byteSize, nil
}

// DetachBuffers drops all pending buffers.
func (d *PortAudio) DetachBuffers() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queued = nil
	d.processed = nil
	return nil
}

// Play starts the stream and wakes the feeder.
func (d *PortAudio) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil || d.started {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	d.started = true
	d.cond.Broadcast()
	return nil
}

// StopPlayback stops the stream.
func (d *PortAudio) StopPlayback() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil || !d.started {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		d.log.Warnf("stream stop error: %v", err)
	}
	d.started = false
	return nil
}

// Playing reports whether audio is being rendered.
func (d *PortAudio) Playing() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started && len(d.queued) > 0, nil
}

// Close releases the stream and terminates PortAudio.
func (d *PortAudio) Close() error {
	d.mu.Lock()
	d.closed = true
	d.open = false
	d.cond.Broadcast()
	stream := d.stream
	d.stream = nil
	d.mu.Unlock()

	if stream != nil {
		stream.Stop()
		stream.Close()
	}
	return portaudio.Terminate()
}
