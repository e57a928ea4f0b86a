package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// State is a connection's lifecycle stage.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config tunes keepalive and buffering for client connections.
type Config struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

// DefaultConfig returns the keepalive settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 16 * 1024,
		SendBuffer:     256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

// Conn is a Socket over a gorilla websocket. Outbound frames are queued and
// written by a single pump goroutine; reads happen on the caller's goroutine.
type Conn struct {
	ws    *websocket.Conn
	cfg   Config
	send  chan []byte
	done  chan struct{}
	state atomic.Int32
	once  sync.Once
}

// NewConn wraps an upgraded connection in the Connecting state.
func NewConn(ws *websocket.Conn, cfg Config) *Conn {
	cfg = cfg.withDefaults()
	return &Conn{
		ws:   ws,
		cfg:  cfg,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// State returns the current lifecycle stage.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Start moves the connection to Connected, installs read limits and the pong
// handler, and starts the write pump.
func (c *Conn) Start() {
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
		return
	}

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	go c.writePump()
}

// Send queues payload for delivery without blocking.
func (c *Conn) Send(payload []byte) error {
	if c.State() == StateDisconnected {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Read blocks for the next data frame.
func (c *Conn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err == nil {
		// Any inbound traffic proves the peer is alive.
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	}
	return data, err
}

// Close sends a close frame with code and reason, then tears the connection
// down. Only the first call has any effect.
func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		c.state.Store(int32(StateDisconnected))
		close(c.done)

		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
		_ = c.ws.Close()
	})
}

// abort drops the transport without a close handshake.
func (c *Conn) abort() {
	c.once.Do(func() {
		c.state.Store(int32(StateDisconnected))
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.abort()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.abort()
				return
			}
		}
	}
}

// IsClientClose reports whether err is the peer closing the connection
// normally rather than a transport failure.
func IsClientClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
