// ABOUTME: Malgo device tests
// ABOUTME: Exercises format reinitialization while the data callback runs
package device

import (
	"sync"
	"testing"
	"time"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// Device reinit calls Uninit, which blocks until the in-flight data callback
// returns, so the callback must never wait on the lock held across Uninit.
// This alternates submission formats while another goroutine polls the
// device, the way the render engine's reclaim loop does.
func TestMalgoFormatChangeWhileCallbackRuns(t *testing.T) {
	d := NewMalgo()
	if err := d.Open(2); err != nil {
		t.Skipf("no miniaudio backend available: %v", err)
	}

	stop := make(chan struct{})
	var pollers sync.WaitGroup
	pollers.Add(1)
	go func() {
		defer pollers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			d.Processed()
			d.Playing()
		}
	}()
	defer pollers.Wait()
	defer close(stop)

	formats := []audio.Format{
		{SampleRate: 44100, Channels: 1},
		{SampleRate: 48000, Channels: 2},
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		samples := make([]int16, 256)
		for i := 0; i < 6; i++ {
			if err := d.Submit(BufferID(i%2), samples, formats[i%2]); err != nil {
				t.Errorf("submit %d failed: %v", i, err)
				return
			}
			if err := d.Play(); err != nil {
				t.Errorf("play %d failed: %v", i, err)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		if err := d.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("submit wedged during device reinitialization")
	}
}
