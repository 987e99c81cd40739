package app

import (
	"context"
	"sync"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

// recordingLogger captures warnings for assertions.
type recordingLogger struct {
	logger.Nop
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

var _ logger.LoggerInterface = (*recordingLogger)(nil)

type fakeQuoteSource struct {
	mu     sync.Mutex
	routes []domain.Route
	err    error
	block  bool
	reqs   []RouteRequest
}

func (f *fakeQuoteSource) GetRoutes(ctx context.Context, req RouteRequest) ([]domain.Route, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	routes, err, block := f.routes, f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return routes, err
}

type fakeBookFeed struct {
	msgs         chan domain.BookMessage
	connectErr   error
	subscribeErr error

	mu         sync.Mutex
	subscribed []string
	closed     bool
}

func newFakeBookFeed() *fakeBookFeed {
	return &fakeBookFeed{msgs: make(chan domain.BookMessage, 16)}
}

func (f *fakeBookFeed) Connect(context.Context) error { return f.connectErr }

func (f *fakeBookFeed) Subscribe(_ context.Context, market string) error {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, market)
	f.mu.Unlock()
	return f.subscribeErr
}

func (f *fakeBookFeed) Messages() <-chan domain.BookMessage { return f.msgs }

func (f *fakeBookFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type fakeMirror struct {
	mu    sync.Mutex
	calls []*domain.PriceSnapshot
}

func (m *fakeMirror) Mirror(_ context.Context, _ string, _ domain.BookSide, snap *domain.PriceSnapshot) error {
	m.mu.Lock()
	m.calls = append(m.calls, snap)
	m.mu.Unlock()
	return nil
}
