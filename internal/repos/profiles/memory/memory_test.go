package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

func TestStore_FetchUpsert(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := t.Context()

	_, err := s.Fetch(ctx, "u1")
	if !errors.Is(err, profiles.ErrProfileNotFound) {
		t.Fatalf("want ErrProfileNotFound, got %v", err)
	}

	grantedAt := time.Date(2026, time.February, 10, 8, 30, 0, 0, time.UTC)
	if err := s.Upsert(ctx, "u1", profiles.Record{Balance: 5, LastGrantAt: grantedAt}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec, err := s.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec.Balance != 5 || !rec.LastGrantAt.Equal(grantedAt) {
		t.Fatalf("fetch: got %+v", rec)
	}

	// Upsert overwrites.
	if err := s.Upsert(ctx, "u1", profiles.Record{Balance: 2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	rec, _ = s.Fetch(ctx, "u1")
	if rec.Balance != 2 {
		t.Fatalf("balance after overwrite: want 2, got %d", rec.Balance)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_ = s.Upsert(ctx, "u1", profiles.Record{Balance: n})
			_, _ = s.Fetch(ctx, "u1")
		}(int64(i))
	}
	wg.Wait()

	rec, err := s.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec.Balance < 0 || rec.Balance > 15 {
		t.Fatalf("balance out of range: %d", rec.Balance)
	}
}
