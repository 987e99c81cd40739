package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	execDomain "github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
)

type fakePositions struct {
	mu     sync.Mutex
	base   decimal.Decimal
	exists bool
	err    error
	reads  int
}

func (f *fakePositions) PositionBaseUI(ctx context.Context) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.base, f.exists, f.err
}

type fakeExecutor struct {
	mu      sync.Mutex
	swapErr error
	perpErr error
	calls   []string
	orders  []execDomain.PerpOrder
	swaps   []execDomain.SwapRequest
}

func (f *fakeExecutor) PlacePerpOrder(ctx context.Context, order execDomain.PerpOrder) (execDomain.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "perp:"+string(order.Side))
	f.orders = append(f.orders, order)
	if f.perpErr != nil {
		return "", f.perpErr
	}
	return "sig-perp", nil
}

func (f *fakeExecutor) Swap(ctx context.Context, req execDomain.SwapRequest) (execDomain.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "swap:"+req.Mode())
	f.swaps = append(f.swaps, req)
	if f.swapErr != nil {
		return "", f.swapErr
	}
	return "sig-swap", nil
}

func (f *fakeExecutor) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type status struct {
	connected bool
	latency   time.Duration
}

type recordingReporter struct {
	mu          sync.Mutex
	evaluations []*domain.Evaluation
	trades      []*domain.Trade
	alerts      []domain.Alert
	statuses    map[string]status
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{statuses: make(map[string]status)}
}

func (r *recordingReporter) Start(ctx context.Context) error { return nil }
func (r *recordingReporter) Stop() error                     { return nil }

func (r *recordingReporter) ReportEvaluation(eval *domain.Evaluation) {
	r.mu.Lock()
	r.evaluations = append(r.evaluations, eval)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportTrade(trade *domain.Trade) {
	r.mu.Lock()
	r.trades = append(r.trades, trade)
	r.mu.Unlock()
}

func (r *recordingReporter) ReportAlert(alert domain.Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
}

func (r *recordingReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	r.statuses[name] = status{connected: connected, latency: latency}
	r.mu.Unlock()
}

type fakeJournal struct {
	mu     sync.Mutex
	trades []*domain.Trade
}

func (j *fakeJournal) Record(ctx context.Context, trade *domain.Trade) error {
	j.mu.Lock()
	j.trades = append(j.trades, trade)
	j.mu.Unlock()
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (a *fakeAlerter) Alert(ctx context.Context, alert domain.Alert) error {
	a.mu.Lock()
	a.alerts = append(a.alerts, alert)
	a.mu.Unlock()
	return nil
}

var (
	_ Reporter = (*recordingReporter)(nil)
	_ Executor = (*fakeExecutor)(nil)
	_ Journal  = (*fakeJournal)(nil)
	_ Alerter  = (*fakeAlerter)(nil)
)
