// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Frame types and sample conversion functions
// Package audio provides fundamental audio types for the chipstream renderer.
//
// This package defines the core types used throughout the library:
//   - Format: sample rate and channel count of a frame or device buffer
//   - Frame: one chunk of interleaved 16-bit PCM, the producer/engine transfer unit
//
// It also provides int16 <-> little-endian byte conversion used by device
// backends and the wire codec, and a sine ToneSource for demos and tests.
//
// Example:
//
//	frame, err := audio.NewFrame(samples, 1024, 44100, 1)
//	fmt.Println(frame.Duration())
package audio
