// Package cache holds the read-side balance snapshot cache.
//
// Balances are written through after every committed mutation and consulted
// by the balance endpoint for users with no live session, before falling
// back to the profile store. Entries carry a TTL; the profile store stays
// the system of record.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Balances struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBalances(client *redis.Client, ttl time.Duration) *Balances {
	return &Balances{client: client, ttl: ttl}
}

type balanceEntry struct {
	Balance  int64     `json:"balance"`
	CachedAt time.Time `json:"cachedAt"`
}

func balanceKey(userID string) string {
	return "balance:" + userID
}

// Get returns the cached balance and whether the key was present. A miss is
// not an error.
func (b *Balances) Get(ctx context.Context, userID string) (int64, bool, error) {
	data, err := b.client.Get(ctx, balanceKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("cache get %q: %w", userID, err)
	}

	var entry balanceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return 0, false, fmt.Errorf("cache decode %q: %w", userID, err)
	}

	return entry.Balance, true, nil
}

// Put stores the committed balance with the configured TTL.
func (b *Balances) Put(ctx context.Context, userID string, balance int64) error {
	data, err := json.Marshal(balanceEntry{Balance: balance, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", userID, err)
	}

	if err := b.client.Set(ctx, balanceKey(userID), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("cache put %q: %w", userID, err)
	}

	return nil
}

// Invalidate drops the cached balance for userID.
func (b *Balances) Invalidate(ctx context.Context, userID string) error {
	if err := b.client.Del(ctx, balanceKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %q: %w", userID, err)
	}

	return nil
}
