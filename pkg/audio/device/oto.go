// ABOUTME: Oto-based output device implementation
// ABOUTME: Adapts the oto streaming player to the buffer-queue contract
package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Compile-time interface assertion.
var _ Device = (*Oto)(nil)

type otoBuffer struct {
	format   audio.Format
	byteSize int
	data     []byte
}

// Oto implements Device on top of ebitengine/oto. Oto exposes a pull-based
// player reading from an io.Reader, so the buffer queue is kept here: a
// feeder goroutine writes queued buffers into a pipe feeding a persistent
// player, and a buffer counts as processed once the player has accepted its
// bytes. The oto context is created lazily at the first Submit, because oto
// needs the sample format up front and allows only one context per process;
// a later format change is logged and played through the existing context.
type Oto struct {
	mu         sync.Mutex
	cond       *sync.Cond
	log        *logrus.Entry
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	buffers    []otoBuffer
	queued     []BufferID
	processed  []BufferID
	open       bool
	closed     bool
}

// NewOto creates an oto-backed device.
func NewOto() *Oto {
	d := &Oto{log: logrus.WithField("component", "device.oto")}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Open allocates buffer slots. The oto context itself is created on the
// first Submit, once the playback format is known.
func (d *Oto) Open(numBuffers int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if numBuffers <= 0 {
		return fmt.Errorf("invalid buffer count %d", numBuffers)
	}
	if d.open {
		return nil
	}
	d.buffers = make([]otoBuffer, numBuffers)
	d.open = true
	go d.feed()
	return nil
}

// Submit stores the samples and queues the buffer for the feeder.
func (d *Oto) Submit(id BufferID, samples []int16, format audio.Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return fmt.Errorf("device not open")
	}
	if int(id) < 0 || int(id) >= len(d.buffers) {
		return fmt.Errorf("buffer id %d out of range", id)
	}

	if d.otoCtx == nil {
		if err := d.initContextLocked(format); err != nil {
			return err
		}
	} else if format != d.format {
		// oto permits a single context per process; keep playing through
		// the existing one at its original rate.
		d.log.Warnf("format change %s -> %s not supported by oto, continuing with existing context",
			d.format, format)
	}

	data := audio.SamplesToBytes(samples)
	d.buffers[id] = otoBuffer{format: format, byteSize: len(data), data: data}
	d.queued = append(d.queued, id)
	d.cond.Signal()
	return nil
}

func (d *Oto) initContextLocked(format audio.Format) error {
	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	d.otoCtx = ctx
	d.format = format
	d.pipeReader, d.pipeWriter = io.Pipe()
	d.player = d.otoCtx.NewPlayer(d.pipeReader)

	d.log.Infof("audio output initialized: %s", format)
	return nil
}

// feed writes queued buffers into the pipe, marking each processed once the
// player accepts its bytes.
func (d *Oto) feed() {
	for {
		d.mu.Lock()
		for !d.closed && (len(d.queued) == 0 || d.pipeWriter == nil) {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		id := d.queued[0]
		data := d.buffers[id].data
		w := d.pipeWriter
		d.mu.Unlock()

		if _, err := w.Write(data); err != nil {
			// Pipe closed under us; drop the buffer and retry the loop,
			// the closed flag decides whether to exit.
			d.log.Warnf("pipe write failed: %v", err)
		}

		d.mu.Lock()
		if len(d.queued) > 0 && d.queued[0] == id {
			d.queued = d.queued[1:]
			d.processed = append(d.processed, id)
		}
		d.mu.Unlock()
	}
}

// Processed returns how many buffers the player has consumed.
func (d *Oto) Processed() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, fmt.Errorf("device not open")
	}
	return len(d.processed), nil
}

// Unqueue reclaims the oldest processed buffer.
func (d *Oto) Unqueue() (BufferID, error) {
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
func (d *Oto) BufferFormat(id BufferID) (audio.Format, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if int(id) < 0 || int(id) >= len(d.buffers) {
		return audio.Format{}, 0, fmt.Errorf("buffer id %d out of range", id)
	}
	buf := d.buffers[id]
	return buf.format, buf.byteSize, nil
}

// DetachBuffers drops all pending buffers.
func (d *Oto) DetachBuffers() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queued = nil
	d.processed = nil
	return nil
}

// Play starts or resumes the player.
func (d *Oto) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil && !d.player.IsPlaying() {
		d.player.Play()
	}
	return nil
}

// StopPlayback pauses the player.
func (d *Oto) StopPlayback() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil {
		d.player.Pause()
	}
	return nil
}

// Playing reports whether the player is rendering.
func (d *Oto) Playing() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return false, nil
	}
	return d.player.IsPlaying(), nil
}

// Close releases the player and pipe. The oto context cannot be destroyed;
// it is suspended instead.
func (d *Oto) Close() error {
	d.mu.Lock()
	d.closed = true
	d.open = false
	d.cond.Broadcast()
	pw := d.pipeWriter
	player := d.player
	pr := d.pipeReader
	ctx := d.otoCtx
	d.mu.Unlock()

	if pw != nil {
		pw.Close()
	}
	if player != nil {
		player.Close()
	}
	if pr != nil {
		pr.Close()
	}
	if ctx != nil {
		ctx.Suspend()
	}
	return nil
}
