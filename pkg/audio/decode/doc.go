// ABOUTME: Audio decoding package
// ABOUTME: File and packet decoders producing renderer-ready frames
// Package decode turns encoded audio into 16-bit PCM frames for the render
// engine. File decoders (WAV, MP3, FLAC, raw PCM) pull chunks from a reader;
// the Opus decoder handles discrete packets from the network transport.
package decode
