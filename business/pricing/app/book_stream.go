package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const bookStreamName = "pricing.book_stream"

// StreamState is the lifecycle state of a BookStream.
type StreamState int32

const (
	StreamConnecting StreamState = iota
	StreamSubscribed
	StreamStreaming
	StreamTerminated
)

func (s StreamState) String() string {
	switch s {
	case StreamConnecting:
		return "connecting"
	case StreamSubscribed:
		return "subscribed"
	case StreamStreaming:
		return "streaming"
	case StreamTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// BookStreamConfig configures the order book stream.
type BookStreamConfig struct {
	Market           string
	HandshakeTimeout time.Duration
	StartupDelay     time.Duration
}

// BookStreamStats counts processed messages.
type BookStreamStats struct {
	Applied  uint64
	Rejected uint64 // malformed levels
	Held     uint64 // sides applied to the book but not published (stale version)
}

type bookStreamMetrics struct {
	messages metric.Int64Counter
	rejected metric.Int64Counter
}

// BookStream maintains the perp order book from a BookFeed and publishes the
// best bid and ask into a SnapshotStore. It is the store's only writer.
type BookStream struct {
	cfg    BookStreamConfig
	feed   BookFeed
	store  *domain.SnapshotStore
	mirror SnapshotMirror
	logger logger.LoggerInterface

	mu   sync.Mutex // guards book
	book *domain.OrderBook

	state       atomic.Int32
	applied     atomic.Uint64
	rejected    atomic.Uint64
	held        atomic.Uint64
	lastMessage atomic.Int64

	tracer  trace.Tracer
	metrics *bookStreamMetrics
	now     func() time.Time
}

// NewBookStream creates a stream writing into store.
func NewBookStream(cfg BookStreamConfig, feed BookFeed, store *domain.SnapshotStore, log logger.LoggerInterface) (*BookStream, error) {
	if cfg.Market == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("book stream market is required"))
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}

	s := &BookStream{
		cfg:    cfg,
		feed:   feed,
		store:  store,
		logger: log,
		book:   domain.NewOrderBook(),
		tracer: otel.Tracer(bookStreamName),
		now:    time.Now,
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BookStream) initMetrics() error {
	meter := otel.Meter(bookStreamName)
	var err error

	s.metrics = &bookStreamMetrics{}

	s.metrics.messages, err = meter.Int64Counter(
		"book_messages_total",
		metric.WithDescription("Order book messages received"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"book_updates_rejected_total",
		metric.WithDescription("Malformed order book levels"),
	)
	return err
}

// SetMirror attaches an optional mirror for accepted snapshots.
func (s *BookStream) SetMirror(m SnapshotMirror) {
	s.mirror = m
}

// State returns the current lifecycle state.
func (s *BookStream) State() StreamState {
	return StreamState(s.state.Load())
}

// Stats returns message counters.
func (s *BookStream) Stats() BookStreamStats {
	return BookStreamStats{Applied: s.applied.Load(), Rejected: s.rejected.Load(), Held: s.held.Load()}
}

// LastMessageAt returns the arrival time of the last data message.
func (s *BookStream) LastMessageAt() time.Time {
	n := s.lastMessage.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Depth returns the number of levels held per side.
func (s *BookStream) Depth() (bids, asks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Depth(domain.BookSideBid), s.book.Depth(domain.BookSideAsk)
}

// Run connects, subscribes and applies messages until ctx is cancelled or the
// feed ends. A cancelled context returns nil; a handshake failure returns
// SUBSCRIPTION_REJECTED and a closed feed returns FEED_TERMINATED.
func (s *BookStream) Run(ctx context.Context) error {
	defer s.feed.Close()

	if s.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.StartupDelay):
		}
	}

	msgs, err := s.handshake(ctx)
	if err != nil {
		s.setState(ctx, StreamTerminated)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.setState(ctx, StreamTerminated)
			s.logger.Info(ctx, "book stream stopped", "market", s.cfg.Market)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				s.setState(ctx, StreamTerminated)
				return apperror.New(apperror.CodeFeedTerminated,
					apperror.WithContext("order book feed closed for "+s.cfg.Market))
			}
			s.handle(ctx, msg)
		}
	}
}

// handshake runs Connecting -> Subscribed -> Streaming within the handshake
// timeout. It completes on the first ack or first data message.
func (s *BookStream) handshake(ctx context.Context) (<-chan domain.BookMessage, error) {
	ctx, span := s.tracer.Start(ctx, "book_stream.handshake",
		trace.WithAttributes(attribute.String("market", s.cfg.Market)))
	defer span.End()

	hsCtx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()

	s.setState(ctx, StreamConnecting)
	if err := s.feed.Connect(hsCtx); err != nil {
		span.RecordError(err)
		return nil, s.subscriptionRejected(err, "connect")
	}

	s.setState(ctx, StreamSubscribed)
	if err := s.feed.Subscribe(hsCtx, s.cfg.Market); err != nil {
		span.RecordError(err)
		return nil, s.subscriptionRejected(err, "subscribe")
	}

	msgs := s.feed.Messages()
	select {
	case <-hsCtx.Done():
		return nil, s.subscriptionRejected(hsCtx.Err(), "no answer to subscription")
	case msg, ok := <-msgs:
		if !ok {
			return nil, s.subscriptionRejected(nil, "feed closed during handshake")
		}
		if msg.Kind == domain.BookAck && !msg.Accepted {
			return nil, s.subscriptionRejected(nil, "subscription refused: "+msg.Reason)
		}
		s.setState(ctx, StreamStreaming)
		s.logger.Info(ctx, "book stream subscribed", "market", s.cfg.Market)
		s.handle(ctx, msg)
	}

	return msgs, nil
}

func (s *BookStream) subscriptionRejected(cause error, reason string) error {
	opts := []apperror.Option{apperror.WithContext(reason + " (" + s.cfg.Market + ")")}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeSubscriptionRejected, opts...)
}

func (s *BookStream) setState(ctx context.Context, st StreamState) {
	prev := StreamState(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug(ctx, "book stream state", "from", prev.String(), "to", st.String())
	}
}

func (s *BookStream) handle(ctx context.Context, msg domain.BookMessage) {
	switch msg.Kind {
	case domain.BookAck:
		if !msg.Accepted {
			s.logger.Warn(ctx, "book feed refused request", "reason", msg.Reason)
		}
		return
	case domain.BookCheckpoint, domain.BookDelta:
	default:
		return
	}

	s.metrics.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", msg.Kind.String())))
	s.lastMessage.Store(s.now().UnixNano())

	if err := s.Apply(ctx, msg); err != nil {
		s.logger.Warn(ctx, "book update rejected", apperror.LogArgs(err)...)
	}
}

// Apply folds one checkpoint or delta into the book in arrival order and
// republishes the best price of every side it touched. The book always takes
// the levels; only the snapshot publish is gated on the write version, so a
// side whose version is not newer than the stored one keeps its snapshot until
// a newer message arrives. Levels with a non-positive price are skipped and
// reported as MALFORMED_BOOK_UPDATE after the rest of the message has been
// applied.
func (s *BookStream) Apply(ctx context.Context, msg domain.BookMessage) error {
	changes, held, problems := s.apply(msg)

	if len(held) > 0 {
		s.held.Add(uint64(len(held)))
		s.logger.Debug(ctx, "book snapshot held back",
			"kind", msg.Kind.String(),
			"write_version", msg.WriteVersion,
			"sides", held)
	}

	for _, c := range changes {
		s.mirrorSnapshot(ctx, c.side, c.snap)
	}

	if len(problems) == 0 {
		s.applied.Add(1)
		return nil
	}

	s.rejected.Add(uint64(len(problems)))
	s.metrics.rejected.Add(ctx, int64(len(problems)))
	return apperror.New(apperror.CodeMalformedBookUpdate,
		apperror.WithContext(fmt.Sprintf("%s slot=%d: %v", msg.Kind, msg.Slot, problems)))
}

type sideChange struct {
	side domain.BookSide
	snap *domain.PriceSnapshot // nil when the side emptied
}

func (s *BookStream) apply(msg domain.BookMessage) ([]sideChange, []domain.BookSide, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		now      = s.now()
		sides    = msg.Sides()
		changes  []sideChange
		held     []domain.BookSide
		problems []string
	)

	for _, side := range []domain.BookSide{domain.BookSideBid, domain.BookSideAsk} {
		levels, touched := sides[side]
		if !touched {
			continue
		}

		for _, lvl := range levels {
			if err := s.book.Apply(side, lvl); err != nil {
				problems = append(problems, err.Error())
			}
		}

		if !s.store.Accepts(side, msg.WriteVersion) {
			held = append(held, side)
			continue
		}

		top, ok := s.book.Best(side)
		if !ok {
			s.store.Publish(side, nil, msg.WriteVersion, now)
			changes = append(changes, sideChange{side: side})
			continue
		}

		price := top.Price
		s.store.Publish(side, &price, msg.WriteVersion, now)
		changes = append(changes, sideChange{
			side: side,
			snap: &domain.PriceSnapshot{Side: side, Price: price, Version: msg.WriteVersion, UpdatedAt: now},
		})
	}

	return changes, held, problems
}

func (s *BookStream) mirrorSnapshot(ctx context.Context, side domain.BookSide, snap *domain.PriceSnapshot) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Mirror(ctx, s.cfg.Market, side, snap); err != nil {
		s.logger.Debug(ctx, "snapshot mirror failed", apperror.LogArgs(err)...)
	}
}
