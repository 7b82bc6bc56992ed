// ABOUTME: Output device interface tests
// ABOUTME: Verifies Device interface implementations and constructors
package device

import (
	"testing"
)

func TestBackendsImplementDevice(t *testing.T) {
	var _ Device = (*Oto)(nil)
	var _ Device = (*Malgo)(nil)
	var _ Device = (*PortAudio)(nil)
	var _ Device = (*Fake)(nil)
}

func TestNewOto(t *testing.T) {
	if NewOto() == nil {
		t.Fatal("NewOto returned nil")
	}
}

func TestNewMalgo(t *testing.T) {
	if NewMalgo() == nil {
		t.Fatal("NewMalgo returned nil")
	}
}

func TestNewPortAudio(t *testing.T) {
	if NewPortAudio() == nil {
		t.Fatal("NewPortAudio returned nil")
	}
}
