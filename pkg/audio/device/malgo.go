// ABOUTME: Malgo-based output device implementation
// ABOUTME: Uses miniaudio via malgo with callback-driven buffer consumption
package device

import (
	"fmt"
	"sync"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
)

// Compile-time interface assertion.
var _ Device = (*Malgo)(nil)

type malgoBuffer struct {
	format   audio.Format
	byteSize int
}

type malgoQueued struct {
	id        BufferID
	remaining []int16
}

// Malgo implements Device on top of miniaudio. The data callback consumes
// queued buffers directly, so a buffer counts as processed exactly when its
// last sample has been handed to the hardware. Unlike oto, miniaudio devices
// can be torn down and recreated, so a format change reinitializes the
// device with the new rate and channel count.
//
// Two locks: mu guards device lifecycle, qmu guards the sample queue. The
// data callback takes only qmu. Uninit and Stop block until the worker
// thread's in-flight callback returns, so they are only ever called with mu
// held and qmu free; a callback parked on qmu would deadlock them.
type Malgo struct {
	mu       sync.Mutex
	log      *logrus.Entry
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	buffers  []malgoBuffer
	open     bool
	started  bool

	qmu        sync.Mutex
	queued     []malgoQueued
	processed  []BufferID
	cbChannels int
}

// NewMalgo creates a malgo-backed device.
func NewMalgo() *Malgo {
	return &Malgo{log: logrus.WithField("component", "device.malgo")}
}

// Open allocates buffer slots and the miniaudio context. The playback
// device itself is created at the first Submit, once a format is known.
func (m *Malgo) Open(numBuffers int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if numBuffers <= 0 {
		return fmt.Errorf("invalid buffer count %d", numBuffers)
	}
	if m.open {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx
	m.buffers = make([]malgoBuffer, numBuffers)
	m.open = true
	return nil
}

// Submit queues samples for the callback. A format differing from the
// current device format reinitializes the device.
func (m *Malgo) Submit(id BufferID, samples []int16, format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return fmt.Errorf("device not open")
	}
	if int(id) < 0 || int(id) >= len(m.buffers) {
		return fmt.Errorf("buffer id %d out of range", id)
	}

	if m.device == nil || format != m.format {
		if err := m.initDeviceLocked(format); err != nil {
			return err
		}
	}

	remaining := make([]int16, len(samples))
	copy(remaining, samples)
	m.buffers[id] = malgoBuffer{format: format, byteSize: len(samples) * audio.BytesPerSample}

	m.qmu.Lock()
	m.queued = append(m.queued, malgoQueued{id: id, remaining: remaining})
	m.qmu.Unlock()
	return nil
}

func (m *Malgo) initDeviceLocked(format audio.Format) error {
	if m.device != nil {
		m.log.Infof("format change %s -> %s, reinitializing device", m.format, format)
		m.device.Uninit()
		m.device = nil
		m.started = false
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			m.dataCallback(pOutput, frameCount)
		},
	}

	dev, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = dev
	m.format = format

	m.qmu.Lock()
	m.cbChannels = format.Channels
	m.qmu.Unlock()

	m.log.Infof("audio output initialized: %s (malgo)", format)
	return nil
}

// dataCallback drains queued buffers into the device output, zero-filling
// on starvation. Runs on the miniaudio worker thread; takes only qmu.
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	m.qmu.Lock()
	defer m.qmu.Unlock()

	want := int(frameCount) * m.cbChannels
	written := 0
	for written < want && len(m.queued) > 0 {
		head := &m.queued[0]
		n := copy16(pOutput[written*audio.BytesPerSample:], head.remaining, want-written)
		head.remaining = head.remaining[n:]
		written += n

		if len(head.remaining) == 0 {
			m.processed = append(m.processed, head.id)
			m.queued = m.queued[1:]
		}
	}
	for i := written * audio.BytesPerSample; i < want*audio.BytesPerSample; i++ {
		pOutput[i] = 0
	}
}

// copy16 writes up to max samples from src into dst as little-endian bytes,
// returning the number of samples written.
func copy16(dst []byte, src []int16, max int) int {
	n := len(src)
	if n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		dst[i*2] = byte(src[i])
		dst[i*2+1] = byte(src[i] >> 8)
	}
	return n
}

// Processed returns the count of fully consumed buffers.
func (m *Malgo) Processed() (int, error) {
	m.mu.Lock()
	open := m.open
	m.mu.Unlock()
	if !open {
		return 0, fmt.Errorf("device not open")
	}

	m.qmu.Lock()
	defer m.qmu.Unlock()
	return len(m.processed), nil
}

// Unqueue reclaims the oldest processed buffer.
func (m *Malgo) Unqueue() (BufferID, error) {
	m.qmu.Lock()
	defer m.qmu.Unlock()

	if len(m.processed) == 0 {
		return 0, ErrNoProcessedBuffer
	}
	id := m.processed[0]
	m.processed = m.processed[1:]
	return id, nil
}

// BufferFormat returns the stored format and byte size for the slot.
func (m *Malgo) BufferFormat(id BufferID) (audio.Format, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if int(id) < 0 || int(id) >= len(m.buffers) {
		return audio.Format{}, 0, fmt.Errorf("buffer id %d out of range", id)
	}
	buf := m.buffers[id]
	return buf.format, buf.byteSize, nil
}

// DetachBuffers drops all pending buffers.
func (m *Malgo) DetachBuffers() error {
	m.qmu.Lock()
	defer m.qmu.Unlock()

	m.queued = nil
	m.processed = nil
	return nil
}

// Play starts the device if stopped.
func (m *Malgo) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || m.started {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.started = true
	return nil
}

// StopPlayback stops the device.
func (m *Malgo) StopPlayback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || !m.started {
		return nil
	}
	if err := m.device.Stop(); err != nil {
		m.log.Warnf("device stop error: %v", err)
	}
	m.started = false
	return nil
}

// Playing reports whether audio is being rendered. A started device with an
// empty queue counts as stopped, mirroring hardware starvation.
func (m *Malgo) Playing() (bool, error) {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	m.qmu.Lock()
	defer m.qmu.Unlock()
	return started && len(m.queued) > 0, nil
}

// Close releases the device and context.
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warnf("malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	m.open = false
	m.started = false
	return nil
}
