// Package redis mirrors best bid/ask snapshots into Redis for external readers.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

var _ app.SnapshotMirror = (*SnapshotMirror)(nil)

// Config holds connection parameters for the mirror.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// TTL expires the hash when the stream stops writing. Zero keeps it forever.
	TTL time.Duration
	// WriteTimeout bounds each mirror write.
	WriteTimeout time.Duration
}

// SnapshotMirror writes every snapshot change to the hash book:{market}.
//
// Fields per side:
//
//	bid / ask          - best price, empty when the side is empty
//	bid_version / ...  - write version
//	bid_ts / ...       - unix millis of the update
type SnapshotMirror struct {
	rdb    *redis.Client
	ttl    time.Duration
	writeT time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*SnapshotMirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperror.New(apperror.CodeCacheWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext("redis ping "+cfg.Addr))
	}

	writeT := cfg.WriteTimeout
	if writeT <= 0 {
		writeT = 200 * time.Millisecond
	}
	return &SnapshotMirror{rdb: rdb, ttl: cfg.TTL, writeT: writeT}, nil
}

func bookKey(market string) string { return "book:" + market }

// snapshotFields returns the hash fields describing side. A nil snapshot
// clears the price but keeps the side present.
func snapshotFields(side domain.BookSide, snap *domain.PriceSnapshot) map[string]any {
	prefix := string(side)
	if snap == nil {
		return map[string]any{prefix: ""}
	}
	return map[string]any{
		prefix:              snap.Price.String(),
		prefix + "_version": strconv.FormatUint(snap.Version, 10),
		prefix + "_ts":      strconv.FormatInt(snap.UpdatedAt.UnixMilli(), 10),
	}
}

// Mirror implements app.SnapshotMirror.
func (m *SnapshotMirror) Mirror(ctx context.Context, market string, side domain.BookSide, snap *domain.PriceSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, m.writeT)
	defer cancel()

	key := bookKey(market)
	pipe := m.rdb.Pipeline()
	pipe.HSet(ctx, key, snapshotFields(side, snap))
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return apperror.New(apperror.CodeCacheWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("HSET %s %s", key, side)))
	}
	return nil
}

// Ping checks the Redis connection.
func (m *SnapshotMirror) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (m *SnapshotMirror) Close() error {
	return m.rdb.Close()
}
