// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/anoprelay/internal/logging"
	"github.com/tomtom215/anoprelay/internal/metrics"
)

// Errors returned by Send.
var (
	ErrClosed         = errors.New("websocket: connection closed")
	ErrSendBufferFull = errors.New("websocket: send buffer full")
)

// State is the lifecycle stage of a connection. It only moves forward.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config tunes a connection.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int

	// InboundRate limits frames per second accepted from the peer. Frames
	// over the limit are dropped. Zero disables the limit.
	InboundRate  float64
	InboundBurst int
}

// DefaultConfig returns the production connection settings.
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		InboundRate:    20,
		InboundBurst:   40,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

// Conn is the view of a connection handed to a Handler.
type Conn interface {
	ID() uint64
	Send(frame []byte) error
	Close()
}

// Handler implements an endpoint's behaviour on top of a connection.
//
// OnOpen runs before any frame is read; an error rejects the connection and
// OnClose is not called. OnFrame runs on the read goroutine, one frame at a
// time in arrival order. OnClose runs exactly once after a successful OnOpen,
// whatever ended the connection.
type Handler interface {
	OnOpen(ctx context.Context, c Conn) error
	OnFrame(ctx context.Context, c Conn, frame []byte)
	OnClose(ctx context.Context, c Conn)
}

// clientIDCounter generates unique, monotonically increasing IDs for clients.
var clientIDCounter atomic.Uint64

// Client owns one websocket connection: a read loop on the Run goroutine and
// a write loop that drains the send queue and keeps the peer alive with pings.
type Client struct {
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	endpoint string
	cfg      Config
	limiter  *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
	started   atomic.Bool
}

// NewClient wraps an upgraded connection. hub may be nil.
func NewClient(hub *Hub, conn *websocket.Conn, endpoint string, cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		endpoint: endpoint,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBuffer),
		done:     make(chan struct{}),
	}
	if cfg.InboundRate > 0 {
		burst := cfg.InboundBurst
		if burst <= 0 {
			burst = int(cfg.InboundRate) + 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.InboundRate), burst)
	}
	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Endpoint returns the endpoint label the client was accepted on.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// advance moves the state forward to s. It never moves backwards.
func (c *Client) advance(s State) {
	for {
		cur := c.state.Load()
		if cur >= int32(s) {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Send queues a frame for the write loop without blocking.
func (c *Client) Send(frame []byte) error {
	if c.State() >= StateClosing {
		return ErrClosed
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		metrics.RecordDrop(c.endpoint, "send_buffer_full")
		return ErrSendBufferFull
	}
}

// Close starts shutting the connection down. The write loop sends a close
// frame and the read loop exits. Safe to call more than once and from any
// goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.advance(StateClosing)
		close(c.done)
	})
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run drives the connection until the peer goes away, a write fails, Close
// is called or ctx ends. It blocks and always leaves the connection Closed.
// A Client is not reusable after Run returns.
func (c *Client) Run(ctx context.Context, h Handler) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := logging.Ctx(ctx)

	if c.hub != nil {
		if err := c.hub.add(c); err != nil {
			c.shutdown(websocket.CloseGoingAway, "server shutting down")
			return err
		}
		defer c.hub.remove(c)
	}

	if err := h.OnOpen(ctx, c); err != nil {
		c.shutdown(websocket.CloseInternalServerErr, "connection setup failed")
		return err
	}
	c.advance(StateOpen)

	opened := time.Now()
	metrics.ConnectionOpened(c.endpoint)
	log.Debug().Msg("Connection open")

	writeDone := make(chan struct{})
	go c.writePump(writeDone)

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	defer func() {
		c.Close()
		<-writeDone
		h.OnClose(context.WithoutCancel(ctx), c)
		_ = c.conn.Close() // best-effort cleanup
		c.advance(StateClosed)
		metrics.ConnectionClosed(c.endpoint, time.Since(opened))
		log.Debug().Dur("lifetime", time.Since(opened)).Msg("Connection closed")
	}()

	c.readPump(ctx, h)
	return nil
}

// shutdown closes a connection that never reached Open.
func (c *Client) shutdown(code int, text string) {
	c.Close()
	deadline := time.Now().Add(c.cfg.WriteWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	_ = c.conn.Close()
	c.advance(StateClosed)
}

// readPump reads frames in arrival order and hands each to h.
func (c *Client) readPump(ctx context.Context, h Handler) {
	log := logging.Ctx(ctx)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				select {
				case <-c.done:
				default:
					log.Debug().Err(err).Msg("unexpected websocket close error")
				}
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			metrics.RecordDrop(c.endpoint, "rate_limited")
			continue
		}
		h.OnFrame(ctx, c, frame)
	}
}

// writePump writes queued frames and pings. When the client is closed it
// flushes what is already queued, sends a close frame and closes the socket,
// which also ends readPump.
func (c *Client) writePump(done chan<- struct{}) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
		close(done)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
