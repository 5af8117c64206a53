package profiles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

func (r *profilesRepo) Upsert(ctx context.Context, userID string, rec profiles.Record) error {
	var lastGrant sql.NullTime
	if !rec.LastGrantAt.IsZero() {
		lastGrant = sql.NullTime{Time: rec.LastGrantAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, balance, last_grant_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = EXCLUDED.balance,
		    last_grant_at = EXCLUDED.last_grant_at,
		    updated_at = now()
	`, userID, rec.Balance, lastGrant)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
