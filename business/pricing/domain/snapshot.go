package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is the best price on one side of the book, tagged with the
// write version of the message that produced it.
type PriceSnapshot struct {
	Side      BookSide
	Price     decimal.Decimal
	Version   uint64
	UpdatedAt time.Time
}

// Age returns how old the snapshot is relative to now.
func (s PriceSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}

// SnapshotStore holds the latest best bid and best ask.
// It has one writer (the book stream) and any number of readers.
// Values are replaced whole, never mutated in place.
type SnapshotStore struct {
	mu       sync.RWMutex
	snaps    map[BookSide]*PriceSnapshot
	versions map[BookSide]uint64
	seen     map[BookSide]bool
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snaps:    make(map[BookSide]*PriceSnapshot),
		versions: make(map[BookSide]uint64),
		seen:     make(map[BookSide]bool),
	}
}

// Accepts reports whether version would be newer than what side holds.
func (s *SnapshotStore) Accepts(side BookSide, version uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.seen[side] || version > s.versions[side]
}

// Publish replaces side's snapshot. A nil best clears the side (empty book
// side). Returns false, leaving the store unchanged, when version is not newer
// than the stored one.
func (s *SnapshotStore) Publish(side BookSide, best *decimal.Decimal, version uint64, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[side] && version <= s.versions[side] {
		return false
	}

	s.seen[side] = true
	s.versions[side] = version
	if best == nil {
		s.snaps[side] = nil
		return true
	}
	s.snaps[side] = &PriceSnapshot{
		Side:      side,
		Price:     *best,
		Version:   version,
		UpdatedAt: at,
	}
	return true
}

// Read returns side's snapshot, if one exists.
func (s *SnapshotStore) Read(side BookSide) (PriceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snaps[side]
	if snap == nil {
		return PriceSnapshot{}, false
	}
	return *snap, true
}

// ReadFresh is Read that treats snapshots older than maxAge as absent.
// A zero maxAge disables the age check.
func (s *SnapshotStore) ReadFresh(side BookSide, maxAge time.Duration, now time.Time) (PriceSnapshot, bool) {
	snap, ok := s.Read(side)
	if !ok {
		return PriceSnapshot{}, false
	}
	if maxAge > 0 && snap.Age(now) > maxAge {
		return PriceSnapshot{}, false
	}
	return snap, true
}

// Version returns the last accepted version for side.
func (s *SnapshotStore) Version(side BookSide) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[side]
}
