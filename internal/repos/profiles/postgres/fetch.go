package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

func (r *profilesRepo) Fetch(ctx context.Context, userID string) (profiles.Record, error) {
	var (
		rec       profiles.Record
		lastGrant sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT balance, last_grant_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&rec.Balance, &lastGrant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Record{}, profiles.ErrProfileNotFound
		}

		return profiles.Record{}, fmt.Errorf("fetch profile: %w", err)
	}

	if lastGrant.Valid {
		rec.LastGrantAt = lastGrant.Time.UTC()
	}

	return rec, nil
}
