// Package mango implements the BookFeed port against the order book
// WebSocket service.
package mango

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/wsconn"
)

const (
	tracerName = "mango"
	meterName  = "mango"

	// DefaultURL is the public order book service.
	DefaultURL = "wss://api.mngo.cloud/orderbook/v1/"

	defaultBufferSize = 256
)

var _ app.BookFeed = (*Feed)(nil)

// Config holds configuration for the order book feed.
type Config struct {
	URL            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	BufferSize     int

	// Reconnect redials after a dropped connection and replays the
	// subscription. Messages is closed once MaxReconnects attempts fail.
	Reconnect      bool
	MaxReconnects  int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:            DefaultURL,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1 << 20,
		BufferSize:     defaultBufferSize,
		Reconnect:      true,
		MaxReconnects:  10,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

type feedMetrics struct {
	messagesReceived metric.Int64Counter
	parseErrors      metric.Int64Counter
}

// Feed is an order book WebSocket client. With Reconnect set the transport
// redials underneath and the subscription is sent again; Messages is closed
// only when the connection is given up for good.
type Feed struct {
	config Config
	logger logger.LoggerInterface

	connMu sync.RWMutex
	conn   *wsconn.Client
	market string

	msgs      chan domain.BookMessage
	stop      chan struct{}
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once

	tracer  trace.Tracer
	metrics *feedMetrics
}

// NewFeed creates a new order book feed.
func NewFeed(cfg Config, log logger.LoggerInterface) (*Feed, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("order book websocket url is required"))
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	f := &Feed{
		config: cfg,
		logger: log,
		msgs:   make(chan domain.BookMessage, cfg.BufferSize),
		stop:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return f, nil
}

func (f *Feed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feedMetrics{}

	f.metrics.messagesReceived, err = meter.Int64Counter(
		"mango_messages_total",
		metric.WithDescription("Total order book frames received"),
	)
	if err != nil {
		return err
	}

	f.metrics.parseErrors, err = meter.Int64Counter(
		"mango_parse_errors_total",
		metric.WithDescription("Order book frames that failed to decode"),
	)
	return err
}

// Connect dials the service once.
func (f *Feed) Connect(ctx context.Context) error {
	ctx, span := f.tracer.Start(ctx, "mango.connect",
		trace.WithAttributes(attribute.String("url", f.config.URL)))
	defer span.End()

	wsCfg := wsconn.DefaultConfig(f.config.URL, "mango-orderbook")
	wsCfg.AutoReconnect = f.config.Reconnect
	wsCfg.MaxReconnects = f.config.MaxReconnects
	if f.config.InitialBackoff > 0 {
		wsCfg.InitialBackoff = f.config.InitialBackoff
	}
	if f.config.MaxBackoff > 0 {
		wsCfg.MaxBackoff = f.config.MaxBackoff
	}
	if f.config.ReadTimeout > 0 {
		wsCfg.ReadTimeout = f.config.ReadTimeout
	}
	if f.config.WriteTimeout > 0 {
		wsCfg.WriteTimeout = f.config.WriteTimeout
	}
	if f.config.MaxMessageSize > 0 {
		wsCfg.MaxMessageSize = f.config.MaxMessageSize
	}
	wsCfg.PingInterval = f.config.PingInterval

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}

	conn.OnMessage(f.handleMessage)
	conn.OnStateChange(func(state wsconn.State, cause error) {
		switch {
		case state == wsconn.StateReconnecting && cause != nil:
			f.logger.Warn(context.Background(), "order book connection lost, reconnecting", "error", cause)
		case state == wsconn.StateDisconnected && cause != nil:
			f.logger.Warn(context.Background(), "order book connection lost", "error", cause)
		}
	})
	conn.OnReconnect(f.resubscribe)

	connect := conn.Connect
	if f.config.Reconnect {
		connect = conn.ConnectWithRetry
	}
	if err := connect(ctx); err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to order book service"))
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	go func() {
		<-conn.Done()
		f.closeMessages()
	}()

	f.logger.Info(ctx, "order book feed connected", "url", f.config.URL)
	return nil
}

// Subscribe sends the subscribe command for market.
func (f *Feed) Subscribe(ctx context.Context, market string) error {
	f.connMu.RLock()
	conn := f.conn
	f.connMu.RUnlock()

	if conn == nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithContext("not connected"))
	}

	if err := conn.SendJSON(ctx, newSubscribeRequest(market)); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext("failed to subscribe to "+market))
	}

	f.connMu.Lock()
	f.market = market
	f.connMu.Unlock()

	f.logger.Debug(ctx, "order book subscription sent", "market", market)
	return nil
}

// resubscribe replays the subscription after the transport reconnected. The
// service answers with a fresh checkpoint.
func (f *Feed) resubscribe(ctx context.Context) {
	f.connMu.RLock()
	conn, market := f.conn, f.market
	f.connMu.RUnlock()

	if conn == nil || market == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.config.WriteTimeout)
	defer cancel()

	if err := conn.SendJSON(sendCtx, newSubscribeRequest(market)); err != nil {
		// Nothing arrives now, so the read timeout drops the connection and
		// the transport tries again.
		f.logger.Error(ctx, "order book resubscribe failed", "market", market, "error", err)
		return
	}
	f.logger.Info(ctx, "order book resubscribed", "market", market, "reconnects", conn.Reconnects())
}

// Messages implements app.BookFeed.
func (f *Feed) Messages() <-chan domain.BookMessage {
	return f.msgs
}

// Close closes the connection and the message channel.
func (f *Feed) Close() error {
	f.connMu.Lock()
	conn := f.conn
	f.connMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	f.closeMessages()
	return err
}

// IsConnected returns whether the feed has a live connection.
func (f *Feed) IsConnected() bool {
	f.connMu.RLock()
	defer f.connMu.RUnlock()
	return f.conn != nil && f.conn.IsConnected()
}

func (f *Feed) handleMessage(ctx context.Context, data []byte) {
	f.metrics.messagesReceived.Add(ctx, 1)

	msg, err := decodeMessage(data)
	if err != nil {
		f.metrics.parseErrors.Add(ctx, 1)
		f.logger.Debug(ctx, "failed to parse message", "error", err, "data", string(data[:min(len(data), 200)]))
		return
	}

	f.deliver(msg)
}

// deliver hands msg to the consumer, blocking while the buffer is full so
// no checkpoint or delta is ever dropped.
func (f *Feed) deliver(msg domain.BookMessage) {
	f.closeMu.RLock()
	defer f.closeMu.RUnlock()

	if f.closed {
		return
	}
	select {
	case f.msgs <- msg:
	case <-f.stop:
	}
}

func (f *Feed) closeMessages() {
	f.closeOnce.Do(func() {
		close(f.stop)
		f.closeMu.Lock()
		f.closed = true
		close(f.msgs)
		f.closeMu.Unlock()
	})
}
