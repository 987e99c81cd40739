package infra

import (
	"context"
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

var _ app.Journal = (*Journal)(nil)

// Journal appends one JSON line per trade to a file.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenJournal opens path for appending, creating it if needed.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("open trade journal "+path))
	}
	return &Journal{file: f, enc: json.NewEncoder(f)}, nil
}

// Record implements app.Journal.
func (j *Journal) Record(ctx context.Context, trade *domain.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.EncodeContext(ctx, trade)
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.file.Sync(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}
