// ABOUTME: Network speaker transport package
// ABOUTME: Websocket protocol between a sender and a speaker's renderer
// Package stream lets a producer on another host feed this machine's
// renderer. Frames travel as binary websocket messages; a JSON side channel
// carries the handshake and periodic pipeline-depth status for pacing.
package stream
