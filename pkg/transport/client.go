// Reconnecting stream client
//
// Client keeps one binary WebSocket open to the device. Every inbound
// binary message is handed to the Handler on the reactor goroutine, in
// arrival order: the read goroutine blocks on the reactor queue rather
// than dropping. When the socket closes or a dial fails, a reconnect is
// scheduled after a fixed delay, forever, with no growth and no jitter.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	scopeerrors "oscope-go/pkg/errors"
	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
	"oscope-go/pkg/reactor"
)

// Handler receives connection events. All calls happen on the reactor
// goroutine.
type Handler interface {
	OnOpen()
	OnMessage(msg []byte)
	OnClose(err error)
}

// State is the connection state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the fixed pause between a close and the next
// connection attempt.
const DefaultReconnectDelay = time.Second

// Config configures a Client.
type Config struct {
	// URL is the stream endpoint, e.g. ws://esquilo.local/websocket.
	URL string

	// ReconnectDelay is the pause before every reconnect attempt.
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds one dial plus upgrade.
	HandshakeTimeout time.Duration

	// RecvBuffer sets SO_RCVBUF on the socket when positive.
	RecvBuffer int

	Logger  *log.Logger
	Metrics *metrics.ScopeMetrics
}

// DefaultConfig returns the stream defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		ReconnectDelay:   DefaultReconnectDelay,
		HandshakeTimeout: 5 * time.Second,
		RecvBuffer:       256 * 1024,
	}
}

// Client is a reconnecting stream connection.
type Client struct {
	cfg     Config
	r       *reactor.Reactor
	h       Handler
	dialer  *websocket.Dialer
	log     *log.Logger
	metrics *metrics.ScopeMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	state    atomic.Int32
	attempts atomic.Uint64

	// reactor-owned
	timer *reactor.Timer
	gen   uint64

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a client. Nothing happens until Start.
func New(r *reactor.Reactor, h Handler, cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("transport")
	}

	netDialer := &net.Dialer{
		Timeout:   cfg.HandshakeTimeout,
		KeepAlive: 15 * time.Second,
		Control:   controlSocket(cfg.RecvBuffer),
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg: cfg,
		r:   r,
		h:   h,
		dialer: &websocket.Dialer{
			NetDialContext:   netDialer.DialContext,
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   16 * 1024,
		},
		log:     logger.With(log.Fields{"url": cfg.URL}),
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.timer = r.RegisterTimer(c.onReconnectTimer, reactor.NEVER)
	return c
}

// State returns the current connection state. Safe from any goroutine.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Attempts returns the number of connection attempts so far.
func (c *Client) Attempts() uint64 {
	return c.attempts.Load()
}

// Start makes the first connection attempt.
func (c *Client) Start() error {
	return c.r.Post(func(float64) { c.connect() })
}

// Stop closes the socket and cancels any pending attempt. The handler
// gets no further events.
func (c *Client) Stop() {
	c.state.Store(int32(StateStopped))
	c.cancel()
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Client) stopped() bool {
	return c.ctx.Err() != nil
}

func (c *Client) connect() {
	if c.stopped() {
		return
	}
	c.state.Store(int32(StateConnecting))
	n := c.attempts.Add(1)
	c.log.WithField("attempt", n).Debug("connecting")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		conn, _, err := c.dialer.DialContext(c.ctx, c.cfg.URL, nil)
		if perr := c.r.Post(func(float64) { c.onDial(conn, err) }); perr != nil && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (c *Client) onDial(conn *websocket.Conn, err error) {
	if c.stopped() {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.metrics.RecordDialError()
		c.log.WithError(scopeerrors.TransportError("dial", err)).Warn("connect failed")
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.gen++
	c.state.Store(int32(StateOpen))
	c.log.Info("connected")

	c.wg.Add(1)
	go c.readLoop(conn, c.gen)
	c.h.OnOpen()
}

// readLoop forwards binary messages to the reactor until the socket
// fails. Text messages are not part of the stream and are skipped.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	defer c.wg.Done()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			_ = c.r.Post(func(float64) { c.onReadError(conn, gen, err) })
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if perr := c.r.Post(func(float64) {
			if gen == c.gen && !c.stopped() {
				c.h.OnMessage(data)
			}
		}); perr != nil {
			return
		}
	}
}

func (c *Client) onReadError(conn *websocket.Conn, gen uint64, err error) {
	if gen != c.gen || c.stopped() {
		return
	}
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()

	var cause error
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		cause = scopeerrors.Wrap(err, scopeerrors.ErrTransportClosed, "stream closed")
	}
	c.log.WithError(cause).Info("disconnected")
	c.h.OnClose(cause)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.state.Store(int32(StateWaiting))
	c.metrics.RecordReconnect()
	c.r.UpdateTimer(c.timer, c.r.Monotonic()+c.cfg.ReconnectDelay.Seconds())
}

func (c *Client) onReconnectTimer(eventtime float64) float64 {
	c.connect()
	return reactor.NEVER
}
