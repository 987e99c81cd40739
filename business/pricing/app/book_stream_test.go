package app

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/shopspring/decimal"
)

const testMarket = "ESdnpnNLgTkBCZRuTJkZLi5wKEZ2z47SG3PJrhundSQ2"

func lv(price, qty string) domain.Level {
	return domain.Level{Price: decimal.RequireFromString(price), Quantity: decimal.RequireFromString(qty)}
}

func checkpoint(version uint64, bids, asks []domain.Level) domain.BookMessage {
	return domain.BookMessage{Kind: domain.BookCheckpoint, Market: testMarket, WriteVersion: version, Bids: bids, Asks: asks}
}

func delta(version uint64, side domain.BookSide, levels ...domain.Level) domain.BookMessage {
	return domain.BookMessage{Kind: domain.BookDelta, Market: testMarket, WriteVersion: version, Side: side, Levels: levels}
}

func newTestStream(t *testing.T, feed BookFeed, log logger.LoggerInterface) (*BookStream, *domain.SnapshotStore) {
	t.Helper()
	store := domain.NewSnapshotStore()
	s, err := NewBookStream(BookStreamConfig{Market: testMarket, HandshakeTimeout: 100 * time.Millisecond}, feed, store, log)
	if err != nil {
		t.Fatalf("NewBookStream() error = %v", err)
	}
	return s, store
}

func wantSnapshot(t *testing.T, store *domain.SnapshotStore, side domain.BookSide, price string, version uint64) {
	t.Helper()
	snap, ok := store.Read(side)
	if !ok {
		t.Fatalf("%s snapshot missing", side)
	}
	if !snap.Price.Equal(decimal.RequireFromString(price)) || snap.Version != version {
		t.Errorf("%s snapshot = %s@%d, want %s@%d", side, snap.Price, snap.Version, price, version)
	}
}

func TestBookStream_Apply(t *testing.T) {
	ctx := context.Background()
	s, store := newTestStream(t, newFakeBookFeed(), logger.Nop{})

	// Checkpoint seeds both sides
	err := s.Apply(ctx, checkpoint(10,
		[]domain.Level{lv("150.10", "5"), lv("150.20", "1")},
		[]domain.Level{lv("150.40", "2"), lv("150.30", "3")}))
	if err != nil {
		t.Fatalf("Apply(checkpoint) error = %v", err)
	}
	wantSnapshot(t, store, domain.BookSideBid, "150.20", 10)
	wantSnapshot(t, store, domain.BookSideAsk, "150.30", 10)

	// Delta improves the bid; ask side is untouched
	if err := s.Apply(ctx, delta(11, domain.BookSideBid, lv("150.25", "1"))); err != nil {
		t.Fatalf("Apply(delta) error = %v", err)
	}
	wantSnapshot(t, store, domain.BookSideBid, "150.25", 11)
	wantSnapshot(t, store, domain.BookSideAsk, "150.30", 10)

	// Removing the best ask exposes the next level
	if err := s.Apply(ctx, delta(12, domain.BookSideAsk, lv("150.30", "0"))); err != nil {
		t.Fatalf("Apply(remove) error = %v", err)
	}
	wantSnapshot(t, store, domain.BookSideAsk, "150.40", 12)

	// Checkpoint on top of existing book is applied level by level
	if err := s.Apply(ctx, checkpoint(13, nil, []domain.Level{lv("150.35", "1")})); err != nil {
		t.Fatalf("Apply(checkpoint 2) error = %v", err)
	}
	wantSnapshot(t, store, domain.BookSideAsk, "150.35", 13)
	wantSnapshot(t, store, domain.BookSideBid, "150.25", 13)

	bids, asks := s.Depth()
	if bids != 3 || asks != 2 {
		t.Errorf("Depth() = %d/%d, want 3/2", bids, asks)
	}
}

func TestBookStream_StaleVersionStillUpdatesBook(t *testing.T) {
	ctx := context.Background()
	s, store := newTestStream(t, newFakeBookFeed(), logger.Nop{})

	steps := []struct {
		msg     domain.BookMessage
		wantBid string
		wantVer uint64
	}{
		{checkpoint(10, []domain.Level{lv("100", "1")}, []domain.Level{lv("101", "1")}), "100", 10},
		{delta(12, domain.BookSideBid, lv("99", "1")), "100", 12},
		// Late removal: the book drops 100 but the v12 snapshot is kept.
		{delta(11, domain.BookSideBid, lv("100", "0")), "100", 12},
		{delta(13, domain.BookSideBid, lv("98", "1")), "99", 13},
	}

	for i, step := range steps {
		if err := s.Apply(ctx, step.msg); err != nil {
			t.Fatalf("step %d: Apply() error = %v", i, err)
		}
		wantSnapshot(t, store, domain.BookSideBid, step.wantBid, step.wantVer)
	}

	if bids, _ := s.Depth(); bids != 2 {
		t.Errorf("bid levels = %d, want 2", bids)
	}
	st := s.Stats()
	if st.Held != 1 || st.Rejected != 0 {
		t.Errorf("Stats() = %+v, want Held 1 and Rejected 0", st)
	}
}

func TestBookStream_OutOfOrderSequencesTrackBook(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(3, 5))
	s, store := newTestStream(t, newFakeBookFeed(), logger.Nop{})

	ref := map[domain.BookSide]map[int64]bool{domain.BookSideBid: {}, domain.BookSideAsk: {}}
	maxVer := map[domain.BookSide]uint64{}

	versions := rng.Perm(2000)
	for i, v := range versions {
		version := uint64(v + 1)

		side := domain.BookSideBid
		if rng.IntN(2) == 0 {
			side = domain.BookSideAsk
		}
		var levels []domain.Level
		for n := 1 + rng.IntN(3); n > 0; n-- {
			tick := int64(10_000 + rng.IntN(50))
			qty := int64(0)
			if rng.IntN(2) == 0 {
				qty = int64(1 + rng.IntN(9))
			}
			levels = append(levels, domain.Level{Price: decimal.New(tick, -2), Quantity: decimal.NewFromInt(qty)})
			if qty == 0 {
				delete(ref[side], tick)
			} else {
				ref[side][tick] = true
			}
		}

		if err := s.Apply(ctx, delta(version, side, levels...)); err != nil {
			t.Fatalf("step %d: Apply() error = %v", i, err)
		}

		want, ok := refBest(side, ref[side])
		s.mu.Lock()
		got, gotOK := s.book.Best(side)
		s.mu.Unlock()
		if ok != gotOK || (ok && !got.Price.Equal(decimal.New(want, -2))) {
			t.Fatalf("step %d: %s book best = %s (%v), want %s (%v)", i, side, got.Price, gotOK, decimal.New(want, -2), ok)
		}

		if version <= maxVer[side] {
			if store.Version(side) != maxVer[side] {
				t.Fatalf("step %d: stale v%d moved %s snapshot to v%d", i, version, side, store.Version(side))
			}
			continue
		}
		maxVer[side] = version

		snap, snapOK := store.Read(side)
		if snapOK != ok || (ok && (!snap.Price.Equal(decimal.New(want, -2)) || snap.Version != version)) {
			t.Fatalf("step %d: %s snapshot = %s@%d (%v), want %s@%d (%v)",
				i, side, snap.Price, snap.Version, snapOK, decimal.New(want, -2), version, ok)
		}
	}
}

// refBest is the max stored bid or the min stored ask.
func refBest(side domain.BookSide, levels map[int64]bool) (int64, bool) {
	var best int64
	found := false
	for p := range levels {
		if !found || (side == domain.BookSideBid && p > best) || (side == domain.BookSideAsk && p < best) {
			best, found = p, true
		}
	}
	return best, found
}

func TestBookStream_NonPositivePriceRejected(t *testing.T) {
	ctx := context.Background()
	s, store := newTestStream(t, newFakeBookFeed(), logger.Nop{})

	_ = s.Apply(ctx, checkpoint(1, []domain.Level{lv("100", "1")}, nil))

	err := s.Apply(ctx, delta(2, domain.BookSideBid, lv("-92233720368547.74", "0.1")))
	if !apperror.IsCode(err, apperror.CodeMalformedBookUpdate) {
		t.Fatalf("Apply() error = %v, want MALFORMED_BOOK_UPDATE", err)
	}
	wantSnapshot(t, store, domain.BookSideBid, "100", 2)
	if bids, _ := s.Depth(); bids != 1 {
		t.Errorf("bid levels = %d, want 1", bids)
	}
}

func TestBookStream_EmptySideClearsSnapshot(t *testing.T) {
	ctx := context.Background()
	mirror := &fakeMirror{}
	s, store := newTestStream(t, newFakeBookFeed(), logger.Nop{})
	s.SetMirror(mirror)

	_ = s.Apply(ctx, delta(1, domain.BookSideAsk, lv("101", "1")))
	_ = s.Apply(ctx, delta(2, domain.BookSideAsk, lv("101", "0")))

	if _, ok := store.Read(domain.BookSideAsk); ok {
		t.Error("ask snapshot should be cleared once the side is empty")
	}
	if len(mirror.calls) != 2 || mirror.calls[1] != nil {
		t.Errorf("mirror calls = %v, want [snap, nil]", mirror.calls)
	}
}

func TestBookStream_RunLifecycle(t *testing.T) {
	feed := newFakeBookFeed()
	s, store := newTestStream(t, feed, logger.Nop{})

	feed.msgs <- domain.BookMessage{Kind: domain.BookAck, Accepted: true}
	feed.msgs <- checkpoint(5, []domain.Level{lv("99", "1")}, []domain.Level{lv("100", "1")})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	deadline := time.After(time.Second)
	for {
		if _, ok := store.Read(domain.BookSideAsk); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("checkpoint never applied")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if s.State() != StreamStreaming {
		t.Errorf("State() = %s, want streaming", s.State())
	}
	if len(feed.subscribed) != 1 || feed.subscribed[0] != testMarket {
		t.Errorf("subscribed = %v", feed.subscribed)
	}

	close(feed.msgs)
	err := <-done
	if !apperror.IsCode(err, apperror.CodeFeedTerminated) {
		t.Fatalf("Run() error = %v, want FEED_TERMINATED", err)
	}
	if s.State() != StreamTerminated {
		t.Errorf("State() = %s, want terminated", s.State())
	}
	if !feed.closed {
		t.Error("feed should be closed on exit")
	}
}

func TestBookStream_HandshakeFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeBookFeed)
	}{
		{"connect_error", func(f *fakeBookFeed) { f.connectErr = context.DeadlineExceeded }},
		{"subscribe_error", func(f *fakeBookFeed) { f.subscribeErr = context.DeadlineExceeded }},
		{"no_answer", func(f *fakeBookFeed) {}},
		{"refused", func(f *fakeBookFeed) {
			f.msgs <- domain.BookMessage{Kind: domain.BookAck, Accepted: false, Reason: "market not found"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newFakeBookFeed()
			tt.setup(feed)
			s, _ := newTestStream(t, feed, logger.Nop{})

			err := s.Run(context.Background())
			if !apperror.IsCode(err, apperror.CodeSubscriptionRejected) {
				t.Fatalf("Run() error = %v, want SUBSCRIPTION_REJECTED", err)
			}
			if !apperror.IsCritical(err) {
				t.Error("subscription rejection should be critical")
			}
		})
	}
}

func TestBookStream_CancelIsClean(t *testing.T) {
	feed := newFakeBookFeed()
	feed.msgs <- domain.BookMessage{Kind: domain.BookAck, Accepted: true}
	log := &recordingLogger{}
	s, _ := newTestStream(t, feed, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run() error = %v, want nil on cancel", err)
	}
	if len(log.warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", log.warnings())
	}
}
