// ABOUTME: Tests for the fake output device
// ABOUTME: Verifies buffer state cycle, starvation stop, and history capture
package device

import (
	"errors"
	"testing"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

var mono44k = audio.Format{SampleRate: 44100, Channels: 1}

func TestFakeBufferCycle(t *testing.T) {
	d := NewFake(false)
	if err := d.Open(3); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if err := d.Submit(0, []int16{1, 2}, mono44k); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := d.Submit(1, []int16{3, 4}, mono44k); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	n, err := d.Processed()
	if err != nil || n != 0 {
		t.Fatalf("expected 0 processed, got %d (%v)", n, err)
	}

	if _, err := d.Unqueue(); !errors.Is(err, ErrNoProcessedBuffer) {
		t.Errorf("expected ErrNoProcessedBuffer, got %v", err)
	}

	if err := d.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	d.FinishBuffers(1)

	n, _ = d.Processed()
	if n != 1 {
		t.Errorf("expected 1 processed, got %d", n)
	}

	id, err := d.Unqueue()
	if err != nil {
		t.Fatalf("unqueue failed: %v", err)
	}
	if id != 0 {
		t.Errorf("expected oldest buffer 0, got %d", id)
	}

	format, size, err := d.BufferFormat(id)
	if err != nil {
		t.Fatalf("buffer format failed: %v", err)
	}
	if format != mono44k {
		t.Errorf("expected %s, got %s", mono44k, format)
	}
	if size != 4 {
		t.Errorf("expected 4 bytes, got %d", size)
	}
}

func TestFakeStopsWhenQueueDrains(t *testing.T) {
	d := NewFake(false)
	if err := d.Open(2); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	d.Submit(0, []int16{1}, mono44k)
	d.Play()

	playing, _ := d.Playing()
	if !playing {
		t.Fatal("expected device playing after play with queued buffer")
	}

	d.FinishBuffers(1)
	playing, _ = d.Playing()
	if playing {
		t.Error("expected device stopped after queue drained (underrun)")
	}
}

func TestFakePlayWithEmptyQueueStaysStopped(t *testing.T) {
	d := NewFake(false)
	d.Open(2)
	d.Play()

	playing, _ := d.Playing()
	if playing {
		t.Error("expected play on empty queue to leave device stopped")
	}
}

func TestFakeHistoryRecordsOrder(t *testing.T) {
	d := NewFake(false)
	d.Open(2)

	d.Submit(0, []int16{1, 2}, mono44k)
	d.Submit(1, []int16{3, 4}, mono44k)

	hist := d.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(hist))
	}
	if hist[0].Samples[0] != 1 || hist[1].Samples[0] != 3 {
		t.Error("history out of order")
	}
}

func TestFakeFailNextSubmit(t *testing.T) {
	d := NewFake(false)
	d.Open(1)

	injected := errors.New("device hiccup")
	d.FailNextSubmit(injected)

	if err := d.Submit(0, []int16{1}, mono44k); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
	if err := d.Submit(0, []int16{1}, mono44k); err != nil {
		t.Errorf("expected second submit to succeed, got %v", err)
	}
}

func TestFakeAutoDrain(t *testing.T) {
	d := NewFake(true)
	d.Open(2)

	d.Submit(0, []int16{1}, mono44k)
	d.Submit(1, []int16{2}, mono44k)
	d.Play()

	// Each Processed poll finishes one buffer.
	if n, _ := d.Processed(); n != 1 {
		t.Errorf("expected 1 processed after first poll, got %d", n)
	}
	if n, _ := d.Processed(); n != 2 {
		t.Errorf("expected 2 processed after second poll, got %d", n)
	}
}

func TestDetachBuffersClearsQueue(t *testing.T) {
	d := NewFake(false)
	d.Open(2)

	d.Submit(0, []int16{1}, mono44k)
	d.Play()
	d.FinishBuffers(1)
	d.Submit(1, []int16{2}, mono44k)

	if err := d.DetachBuffers(); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if n, _ := d.Processed(); n != 0 {
		t.Errorf("expected no processed buffers after detach, got %d", n)
	}
	if d.QueuedCount() != 0 {
		t.Errorf("expected no queued buffers after detach, got %d", d.QueuedCount())
	}
}
