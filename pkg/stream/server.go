// ABOUTME: Network speaker server
// ABOUTME: Accepts websocket senders and feeds their frames into a renderer
package stream

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultStatusInterval is how often the server pushes pipeline status to
// connected senders.
const DefaultStatusInterval = 250 * time.Millisecond

// Sink is where decoded frames go; implemented by render.Renderer.
type Sink interface {
	PushFrame(samples []int16, sampleCount, sampleRate, channels int) error
	BufferSize() int
	SecondsPlayed() float64
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Port to listen on; 0 picks a free port.
	Port int

	// Name is the speaker name reported in the handshake.
	Name string

	// StatusInterval is the pipeline status push period (default: 250ms).
	StatusInterval time.Duration
}

// Server is the speaker end of the protocol: it upgrades websocket senders
// on /chipstream, performs the hello handshake, and pushes every decoded
// frame into the sink. Pipeline depth flows back to senders as periodic
// status messages.
type Server struct {
	config   ServerConfig
	serverID string
	sink     Sink
	log      *logrus.Entry
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	senders int
	stopped bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewServer creates a server feeding the given sink.
func NewServer(config ServerConfig, sink Sink) (*Server, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if config.StatusInterval == 0 {
		config.StatusInterval = DefaultStatusInterval
	}
	if config.Name == "" {
		config.Name = "chipstream"
	}

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		sink:     sink,
		log:      logrus.WithField("component", "stream.server"),
		upgrader: websocket.Upgrader{
			// Local-network speaker; senders are not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
		stop:  make(chan struct{}),
	}, nil
}

// Start begins listening. The bound address is available via Addr.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/chipstream", s.handleWebSocket)
	s.httpServer = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			s.log.Errorf("http server error: %v", err)
		}
	}()

	s.log.Infof("speaker %q listening on %s", s.config.Name, ln.Addr())
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	addr, ok := s.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return addr.Port
}

// Stop shuts the server down and waits for sender connections to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	if s.httpServer != nil {
		s.httpServer.Close()
	}
	// Hijacked websocket connections outlive httpServer.Close; close them
	// so the read loops exit.
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.log.Info("speaker server stopped")
}

// Senders returns the number of connected senders.
func (s *Server) Senders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.senders
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// The handler joins the WaitGroup under the mutex that Stop sets
	// stopped under, so an Add can never race the final Wait.
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	hello, err := s.handshake(conn)
	if err != nil {
		s.log.Warnf("handshake failed: %v", err)
		return
	}
	log := s.log.WithField("sender", hello.Name)
	log.Info("sender connected")

	s.mu.Lock()
	if s.stopped {
		// Stop already walked the connection set; it would miss this one.
		s.mu.Unlock()
		return
	}
	s.senders++
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.senders--
		delete(s.conns, conn)
		s.mu.Unlock()
		log.Info("sender disconnected")
	}()

	// Status pusher owns all writes after the handshake; the read loop
	// never writes, so no write lock is needed.
	statusDone := make(chan struct{})
	defer close(statusDone)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pushStatus(conn, statusDone)
	}()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("read error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			frame, err := DecodeFrame(data)
			if err != nil {
				log.Warnf("bad frame message: %v", err)
				continue
			}
			if err := s.sink.PushFrame(frame.Samples, frame.SampleCount, frame.Format.SampleRate, frame.Format.Channels); err != nil {
				log.Warnf("push failed: %v", err)
			}
		case websocket.TextMessage:
			log.Debugf("ignoring control message: %s", data)
		}
	}
}

// handshake reads client/hello and answers server/welcome.
func (s *Server) handshake(conn *websocket.Conn) (*Hello, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read hello: %w", err)
	}

	var msg struct {
		Type    string `json:"type"`
		Payload Hello  `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse hello: %w", err)
	}
	if msg.Type != "client/hello" {
		return nil, fmt.Errorf("expected client/hello, got %q", msg.Type)
	}

	welcome := Message{
		Type: "server/welcome",
		Payload: Welcome{
			ServerID: s.serverID,
			Name:     s.config.Name,
			Version:  ProtocolVersion,
		},
	}
	if err := conn.WriteJSON(welcome); err != nil {
		return nil, fmt.Errorf("failed to send welcome: %w", err)
	}
	return &msg.Payload, nil
}

// pushStatus periodically reports pipeline depth to one sender.
func (s *Server) pushStatus(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.stop:
			return
		case <-ticker.C:
			msg := Message{
				Type: "server/status",
				Payload: Status{
					BufferedSamples: s.sink.BufferSize(),
					SecondsPlayed:   s.sink.SecondsPlayed(),
				},
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
