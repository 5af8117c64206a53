package rewards

import (
	"context"
	"errors"

	"github.com/assetcraft/gemledger/internal/gems"
)

var ErrDuplicateReceipt = errors.New("duplicate reward receipt")

// Receipt is an external reward event: an ad-SDK impression id or a store
// purchase transaction id. Recording one is how replayed reward webhooks are
// kept from double-crediting.
type Receipt struct {
	ReceiptID string
	UserID    string
	Source    gems.Source
	Amount    int64
}

type Receipts interface {
	// Record stores the receipt; ErrDuplicateReceipt if the id was seen before.
	Record(ctx context.Context, rc Receipt) error

	// Delete removes a recorded receipt. Used to compensate when the credit
	// that followed Record could not be persisted.
	Delete(ctx context.Context, receiptID string) error
}
