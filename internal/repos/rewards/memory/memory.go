// Package memory is the in-process receipt log, paired with the memory
// ProfileStore when APP_STORE_BACKEND=memory.
package memory

import (
	"context"
	"sync"

	"github.com/assetcraft/gemledger/internal/repos/rewards"
)

var _ rewards.Receipts = (*Receipts)(nil)

type Receipts struct {
	mu   sync.Mutex
	seen map[string]rewards.Receipt
}

func New() *Receipts {
	return &Receipts{seen: make(map[string]rewards.Receipt)}
}

func (r *Receipts) Record(_ context.Context, rc rewards.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[rc.ReceiptID]; ok {
		return rewards.ErrDuplicateReceipt
	}

	r.seen[rc.ReceiptID] = rc

	return nil
}

func (r *Receipts) Delete(_ context.Context, receiptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, receiptID)

	return nil
}
