package profiles

import (
	"context"
	"errors"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

// Record is the durable per-user gemstone record.
// A zero LastGrantAt means the daily grant has never been applied.
type Record struct {
	Balance     int64
	LastGrantAt time.Time
}

// Store is the remote system of record for gemstone balances.
// Fetch returns ErrProfileNotFound for unknown users; Upsert creates
// or overwrites the record (last writer wins).
type Store interface {
	Fetch(ctx context.Context, userID string) (Record, error)
	Upsert(ctx context.Context, userID string, rec Record) error
}
