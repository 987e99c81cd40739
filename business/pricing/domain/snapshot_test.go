package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dptr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSnapshotStore_VersionGating(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	if !s.Publish(BookSideBid, dptr("100"), 5, now) {
		t.Fatal("first publish should be accepted")
	}

	tests := []struct {
		name    string
		version uint64
		price   string
		want    bool
		wantPx  string
	}{
		{"older_version_discarded", 4, "90", false, "100"},
		{"equal_version_discarded", 5, "91", false, "100"},
		{"newer_version_accepted", 6, "101", true, "101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Publish(BookSideBid, dptr(tt.price), tt.version, now); got != tt.want {
				t.Errorf("Publish() = %v, want %v", got, tt.want)
			}
			snap, ok := s.Read(BookSideBid)
			if !ok {
				t.Fatal("Read() returned no snapshot")
			}
			if !snap.Price.Equal(decimal.RequireFromString(tt.wantPx)) {
				t.Errorf("price = %s, want %s", snap.Price, tt.wantPx)
			}
		})
	}
}

func TestSnapshotStore_SidesAreIndependent(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	s.Publish(BookSideBid, dptr("100"), 10, now)
	if !s.Accepts(BookSideAsk, 1) {
		t.Error("ask side should accept its first version regardless of bid version")
	}
	if s.Accepts(BookSideBid, 10) {
		t.Error("bid side should reject an equal version")
	}
	if _, ok := s.Read(BookSideAsk); ok {
		t.Error("ask side should be empty")
	}
}

func TestSnapshotStore_ClearKeepsVersion(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	s.Publish(BookSideAsk, dptr("20"), 3, now)
	if !s.Publish(BookSideAsk, nil, 4, now) {
		t.Fatal("clear should be accepted")
	}
	if _, ok := s.Read(BookSideAsk); ok {
		t.Error("snapshot should be absent after clear")
	}
	if s.Version(BookSideAsk) != 4 {
		t.Errorf("Version() = %d, want 4", s.Version(BookSideAsk))
	}
	if s.Publish(BookSideAsk, dptr("21"), 4, now) {
		t.Error("version 4 should be rejected after clear at 4")
	}
}

func TestSnapshotStore_ReadFresh(t *testing.T) {
	s := NewSnapshotStore()
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Publish(BookSideBid, dptr("100"), 1, published)

	if _, ok := s.ReadFresh(BookSideBid, 5*time.Second, published.Add(4*time.Second)); !ok {
		t.Error("snapshot within max age should be fresh")
	}
	if _, ok := s.ReadFresh(BookSideBid, 5*time.Second, published.Add(6*time.Second)); ok {
		t.Error("snapshot past max age should be absent")
	}
	if _, ok := s.ReadFresh(BookSideBid, 0, published.Add(time.Hour)); !ok {
		t.Error("zero max age should disable the check")
	}
}

func TestSnapshotStore_ConcurrentReaders(t *testing.T) {
	s := NewSnapshotStore()
	now := time.Now()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := uint64(1); v <= 500; v++ {
			p := decimal.NewFromInt(int64(v))
			s.Publish(BookSideBid, &p, v, now)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < 500; i++ {
				snap, ok := s.Read(BookSideBid)
				if !ok {
					continue
				}
				// Whole-value replacement: price always matches its version
				if !snap.Price.Equal(decimal.NewFromInt(int64(snap.Version))) {
					t.Errorf("torn snapshot: price %s version %d", snap.Price, snap.Version)
					return
				}
				if snap.Version < last {
					t.Errorf("version went backwards: %d after %d", snap.Version, last)
					return
				}
				last = snap.Version
			}
		}()
	}
	wg.Wait()
}
