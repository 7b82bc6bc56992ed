// ABOUTME: Sender-side websocket client
// ABOUTME: Streams PCM frames to a remote speaker and tracks its reported depth
package stream

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// ClientConfig holds sender configuration.
type ClientConfig struct {
	// ServerAddr is the speaker's host:port.
	ServerAddr string

	// Name identifies this sender in the handshake.
	Name string
}

// Client streams frames to a remote speaker. It satisfies the same PushFrame
// signature as the renderer, so producers and decode loops can feed either a
// local renderer or a remote speaker without caring which.
type Client struct {
	config ClientConfig
	log    *logrus.Entry

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	status    Status
	speaker   Welcome

	done chan struct{}
}

// NewClient creates a sender client.
func NewClient(config ClientConfig) *Client {
	if config.Name == "" {
		config.Name = "chipstream-send"
	}
	return &Client{
		config: config,
		log:    logrus.WithField("component", "stream.client"),
		done:   make(chan struct{}),
	}
}

// Connect dials the speaker and performs the handshake.
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/chipstream"}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	hello := Message{
		Type: "client/hello",
		Payload: Hello{
			ClientID: uuid.New().String(),
			Name:     c.config.Name,
			Version:  ProtocolVersion,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send hello: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to read welcome: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg struct {
		Type    string  `json:"type"`
		Payload Welcome `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		conn.Close()
		return fmt.Errorf("failed to parse welcome: %w", err)
	}
	if msg.Type != "server/welcome" {
		conn.Close()
		return fmt.Errorf("expected server/welcome, got %q", msg.Type)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.speaker = msg.Payload
	c.mu.Unlock()

	go c.readStatus(conn)

	c.log.Infof("connected to speaker %q", msg.Payload.Name)
	return nil
}

// PushFrame encodes and sends one frame to the speaker.
func (c *Client) PushFrame(samples []int16, sampleCount, sampleRate, channels int) error {
	frame, err := audio.NewFrame(samples, sampleCount, sampleRate, channels)
	if err != nil {
		return err
	}
	return c.SendFrame(frame)
}

// SendFrame sends an already-assembled frame.
func (c *Client) SendFrame(f audio.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(f))
}

// Status returns the most recent pipeline status reported by the speaker.
// Senders pace on BufferedSamples to keep speaker latency bounded.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Speaker returns the handshake identity of the connected speaker.
func (c *Client) Speaker() Welcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaker
}

// Connected reports whether the client holds a live connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears down the connection and waits for the reader to exit.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	wasConnected := conn != nil
	c.connected = false
	c.conn = nil
	c.mu.Unlock()

	if wasConnected {
		conn.Close()
		<-c.done
	}
}

// readStatus consumes server messages, keeping the latest status snapshot.
func (c *Client) readStatus(conn *websocket.Conn) {
	defer close(c.done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			return
		}

		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debugf("unparseable server message: %v", err)
			continue
		}
		if msg.Type != "server/status" {
			continue
		}

		var status Status
		if err := json.Unmarshal(msg.Payload, &status); err != nil {
			continue
		}
		c.mu.Lock()
		c.status = status
		c.mu.Unlock()
	}
}
