// Package wsconn provides a WebSocket client with backoff-driven connection
// retries and optional automatic reconnection.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("wsconn: client closed")

// ErrNotConnected is returned by Send when there is no live connection.
var ErrNotConnected = errors.New("wsconn: not connected")

// Config holds WebSocket client configuration.
type Config struct {
	URL  string
	Name string

	Header http.Header

	// ReadTimeout closes the connection when no frame arrives in time. Zero disables it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxMessageSize is the read limit in bytes. Larger frames drop the connection.
	MaxMessageSize int64

	// PingInterval of zero disables keepalive pings.
	PingInterval time.Duration
	PongTimeout  time.Duration

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// AutoReconnect redials after an unexpected disconnect.
	AutoReconnect bool
	MaxReconnects int // 0 = infinite
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		AutoReconnect:  true,
	}
}

// MessageHandler receives every inbound frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is notified on every state transition. err carries the cause
// of a disconnect when there is one.
type StateHandler func(state State, err error)

// Client is a WebSocket client.
type Client struct {
	config Config

	connMu sync.RWMutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	stateMu sync.RWMutex
	state   State

	handlersMu     sync.RWMutex
	onMessage      MessageHandler
	onStateChange  []StateHandler
	onReconnect    []func(ctx context.Context)
	reconnects     int
	reconnectsMu   sync.Mutex
	closed         atomic.Bool
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	doneOnce       sync.Once
	lastMessageNs  atomic.Int64
	reconnectGuard atomic.Bool
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("wsconn: url is required")
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 500 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config: config,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage sets the inbound frame handler. It is called from the read loop,
// so handlers must not block for long.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = h
	c.handlersMu.Unlock()
}

// OnStateChange registers a state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlersMu.Lock()
	c.onStateChange = append(c.onStateChange, h)
	c.handlersMu.Unlock()
}

// OnReconnect registers a callback run after every successful automatic
// reconnect, typically to replay subscriptions.
func (c *Client) OnReconnect(fn func(ctx context.Context)) {
	c.handlersMu.Lock()
	c.onReconnect = append(c.onReconnect, fn)
	c.handlersMu.Unlock()
}

// Connect dials once.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.setState(StateConnecting, nil)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	return nil
}

// ConnectWithRetry dials with exponential backoff until it succeeds or ctx ends.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	b := c.newBackoff()

	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return fmt.Errorf("wsconn %s: giving up after %d attempts: %w", c.config.Name, attempt, err)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = c.config.MaxBackoff
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wsconn %s: %w (last error: %v)", c.config.Name, ctx.Err(), err)
		case <-c.ctx.Done():
			return ErrClosed
		case <-time.After(wait):
		}
	}
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, &websocket.DialOptions{
		HTTPHeader: c.config.Header,
	})
	if err != nil {
		return fmt.Errorf("wsconn %s: dial %s: %w", c.config.Name, c.config.URL, err)
	}

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.lastMessageNs.Store(time.Now().UnixNano())
	c.setState(StateConnected, nil)

	go c.readLoop(conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(conn)
	}
	return nil
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return fmt.Errorf("wsconn %s: write: %w", c.config.Name, err)
	}
	return nil
}

// SendJSON encodes v and writes it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn %s: encode: %w", c.config.Name, err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// LastMessageAt returns when the last frame arrived.
func (c *Client) LastMessageAt() time.Time {
	return time.Unix(0, c.lastMessageNs.Load())
}

// Reconnects returns the number of successful automatic reconnects.
func (c *Client) Reconnects() int {
	c.reconnectsMu.Lock()
	defer c.reconnectsMu.Unlock()
	return c.reconnects
}

// Done is closed once the client stops for good: after Close, or after a
// disconnect that will not be retried.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close gracefully closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
	}

	c.setState(StateClosed, nil)
	c.finish()
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		ctx := c.ctx
		var cancel context.CancelFunc = func() {}
		if c.config.ReadTimeout > 0 {
			ctx, cancel = context.WithTimeout(c.ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(ctx)
		cancel()

		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.lastMessageNs.Store(time.Now().UnixNano())

		c.handlersMu.RLock()
		h := c.onMessage
		c.handlersMu.RUnlock()
		if h != nil {
			h(c.ctx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.connMu.RLock()
			current := c.conn
			c.connMu.RUnlock()
			if current != conn {
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, c.pongTimeout())
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

func (c *Client) pongTimeout() time.Duration {
	if c.config.PongTimeout > 0 {
		return c.config.PongTimeout
	}
	return 10 * time.Second
}

func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	if c.closed.Load() {
		return
	}

	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	c.conn = nil
	c.connMu.Unlock()

	_ = conn.CloseNow()

	if !c.config.AutoReconnect {
		c.setState(StateDisconnected, cause)
		c.finish()
		return
	}

	if !c.reconnectGuard.CompareAndSwap(false, true) {
		return
	}
	c.setState(StateReconnecting, cause)
	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer c.reconnectGuard.Store(false)

	b := c.newBackoff()
	for attempt := 1; ; attempt++ {
		if c.config.MaxReconnects > 0 && attempt > c.config.MaxReconnects {
			c.setState(StateDisconnected, fmt.Errorf("wsconn %s: reconnect attempts exhausted", c.config.Name))
			c.finish()
			return
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = c.config.MaxBackoff
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := c.dial(c.ctx); err != nil {
			c.setState(StateReconnecting, err)
			continue
		}

		c.reconnectsMu.Lock()
		c.reconnects++
		c.reconnectsMu.Unlock()

		c.handlersMu.RLock()
		callbacks := append([]func(context.Context){}, c.onReconnect...)
		c.handlersMu.RUnlock()
		for _, fn := range callbacks {
			fn(c.ctx)
		}
		return
	}
}

func (c *Client) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.InitialBackoff
	b.MaxInterval = c.config.MaxBackoff
	b.Reset()
	return b
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed {
		c.stateMu.Unlock()
		return
	}
	c.state = state
	c.stateMu.Unlock()

	c.handlersMu.RLock()
	handlers := append([]StateHandler{}, c.onStateChange...)
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(state, err)
	}
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}
