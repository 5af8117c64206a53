package rewards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/assetcraft/gemledger/internal/repos/rewards"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ rewards.Receipts = (*receiptsRepo)(nil)

type receiptsRepo struct{ db *sql.DB }

func New(db *sql.DB) *receiptsRepo {
	return &receiptsRepo{db: db}
}

func (r *receiptsRepo) Record(ctx context.Context, rc rewards.Receipt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reward_receipts (receipt_id, user_id, source, amount)
		VALUES ($1, $2, $3, $4)
	`, rc.ReceiptID, rc.UserID, string(rc.Source), rc.Amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return rewards.ErrDuplicateReceipt
			}
		}

		return fmt.Errorf("record receipt: %w", err)
	}

	return nil
}

func (r *receiptsRepo) Delete(ctx context.Context, receiptID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM reward_receipts
		WHERE receipt_id = $1
	`, receiptID)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}

	return nil
}
