// ABOUTME: Output device package for buffer-queue playback
// ABOUTME: Provides the Device interface and oto/malgo/portaudio/fake backends
// Package device provides audio output devices with a fixed pool of
// reusable buffers.
//
// A Device owns a small set of buffers that cycle through three states:
// free (ready to receive samples), queued (submitted, awaiting playback),
// and processed (played, reclaimable). The render engine keeps the device
// fed by reclaiming processed buffers and refilling them.
//
// Backends:
//   - Oto: ebitengine/oto, works everywhere oto does
//   - Malgo: miniaudio, supports device reinit on format change
//   - PortAudio: enabled with -tags portaudio
//   - Fake: in-memory device for tests and headless use
//
// Example:
//
//	dev := device.NewMalgo()
//	err := dev.Open(5)
//	err = dev.Submit(0, samples, audio.Format{SampleRate: 44100, Channels: 1})
//	err = dev.Play()
package device
