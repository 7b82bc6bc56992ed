// ABOUTME: Server/client integration tests
// ABOUTME: Round-trips frames and status over a loopback websocket
package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects pushed frames and fakes a pipeline depth.
type recordingSink struct {
	mu      sync.Mutex
	frames  [][]int16
	depth   int
	seconds float64
}

func (s *recordingSink) PushFrame(samples []int16, sampleCount, sampleRate, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]int16, len(samples))
	copy(copied, samples)
	s.frames = append(s.frames, copied)
	s.depth += sampleCount
	return nil
}

func (s *recordingSink) BufferSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

func (s *recordingSink) SecondsPlayed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func startTestServer(t *testing.T, sink Sink) *Server {
	t.Helper()

	srv, err := NewServer(ServerConfig{Port: 0, Name: "test-speaker", StatusInterval: 20 * time.Millisecond}, sink)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func TestClientStreamsFramesToServer(t *testing.T) {
	sink := &recordingSink{}
	srv := startTestServer(t, sink)

	client := NewClient(ClientConfig{ServerAddr: fmt.Sprintf("127.0.0.1:%d", srv.Port()), Name: "test-sender"})
	require.NoError(t, client.Connect())
	t.Cleanup(client.Close)

	assert.Equal(t, "test-speaker", client.Speaker().Name)
	require.Eventually(t, func() bool { return srv.Senders() == 1 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		samples := []int16{int16(i), int16(i), int16(i), int16(i)}
		require.NoError(t, client.PushFrame(samples, 4, 44100, 1))
	}

	require.Eventually(t, func() bool { return sink.frameCount() == 5 }, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, frame := range sink.frames {
		assert.Equal(t, int16(i), frame[0], "frame %d out of order", i)
	}
}

func TestClientReceivesStatus(t *testing.T) {
	sink := &recordingSink{depth: 5120}
	sink.seconds = 1.5
	srv := startTestServer(t, sink)

	client := NewClient(ClientConfig{ServerAddr: fmt.Sprintf("127.0.0.1:%d", srv.Port()), Name: "test-sender"})
	require.NoError(t, client.Connect())
	t.Cleanup(client.Close)

	require.Eventually(t, func() bool {
		return client.Status().BufferedSamples >= 5120
	}, 2*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 1.5, client.Status().SecondsPlayed, 1e-9)
}

func TestClientSendBeforeConnect(t *testing.T) {
	client := NewClient(ClientConfig{ServerAddr: "127.0.0.1:1"})
	err := client.PushFrame([]int16{0}, 1, 44100, 1)
	assert.Error(t, err)
}

func TestClientConnectRefused(t *testing.T) {
	client := NewClient(ClientConfig{ServerAddr: "127.0.0.1:1"})
	assert.Error(t, client.Connect())
}

func TestServerRefusesSendersAfterStop(t *testing.T) {
	sink := &recordingSink{}
	srv := startTestServer(t, sink)
	srv.Stop()

	// A sender racing past the closing listener must be turned away before
	// it touches the connection bookkeeping.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chipstream", nil)
	srv.handleWebSocket(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, srv.Senders())
}

func TestServerRejectsBadHandshake(t *testing.T) {
	sink := &recordingSink{}
	srv := startTestServer(t, sink)

	url := fmt.Sprintf("ws://127.0.0.1:%d/chipstream", srv.Port())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Anything other than client/hello ends the connection.
	require.NoError(t, conn.WriteJSON(Message{Type: "client/status"}))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server must close the connection on a bad handshake")
	assert.Zero(t, sink.frameCount())
}
