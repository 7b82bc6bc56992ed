// ABOUTME: Real-time playback engine package
// ABOUTME: Producer/consumer pipeline between an application and an output device
// Package render streams producer-generated PCM frames into a real-time
// output device without glitches, tracking how much audio has been handed
// to the speaker.
//
// The Renderer accepts arbitrarily-timed frames from a producer goroutine,
// holds them in an unbounded FIFO, and feeds a fixed ring of device buffers
// from a dedicated playback goroutine. Underruns are recovered silently and
// mid-stream sample-rate or channel-count changes drain and reprime the
// ring so formats never mix.
//
// Example:
//
//	r, err := render.New(render.Config{Device: device.NewMalgo()})
//	if err := r.Start(); err != nil { ... }
//	defer r.Stop()
//
//	r.PushFrame(samples, 1024, 44100, 1)
//	depth := r.BufferSize()     // samples still in flight, for pacing
//	secs := r.SecondsPlayed()   // playback clock
package render
