package gems

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

const (
	DefaultInitialBalance   = 3
	DefaultDailyGrantAmount = 5
	DefaultAdRewardAmount   = 3
	DefaultGrantInterval    = 24 * time.Hour
)

// Config carries the grant policy knobs. Zero values fall back to the
// defaults above.
type Config struct {
	InitialBalance   int64
	DailyGrantAmount int64
	GrantInterval    time.Duration

	// Clock is overridable for tests; defaults to time.Now in UTC.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.InitialBalance == 0 {
		c.InitialBalance = DefaultInitialBalance
	}
	if c.DailyGrantAmount == 0 {
		c.DailyGrantAmount = DefaultDailyGrantAmount
	}
	if c.GrantInterval == 0 {
		c.GrantInterval = DefaultGrantInterval
	}
	if c.Clock == nil {
		c.Clock = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Ledger owns the gemstone balance for one user session.
//
// All mutations (Load, Earn, Spend, MaybeApplyDailyGrant, Reset) are
// serialized behind a single mutex: each one is a read-modify-write against
// the remote record and must not interleave. The in-memory balance only
// advances once the store acknowledges the write, so a failed persist leaves
// the last committed state untouched.
//
// CurrentBalance reads a lock-free snapshot of the last committed account,
// published after every successful mutation.
//
// States: NoSession (account == nil) and Active. Load moves NoSession ->
// Active, Reset moves Active -> NoSession. A persist failure keeps the
// ledger Active at its prior balance.
type Ledger struct {
	store profiles.Store
	cfg   Config

	mu      sync.Mutex
	account *Account
	pending *Notification

	snap atomic.Pointer[Account]
}

func NewLedger(store profiles.Store, cfg Config) *Ledger {
	return &Ledger{store: store, cfg: cfg.withDefaults()}
}

// Load fetches the user's record and makes it the active account. If no
// remote record exists the account is synthesized with the initial balance
// and LastGrantAt = now, and persisted before it becomes active.
//
// Any fetch or seed failure leaves the ledger in NoSession: operating on
// unknown state is worse than surfacing a retry to the caller.
func (l *Ledger) Load(ctx context.Context, userID string) (Account, error) {
	if userID == "" {
		return Account{}, fmt.Errorf("%w: empty user id", ErrPrecondition)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var acct Account

	rec, err := l.store.Fetch(ctx, userID)
	switch {
	case errors.Is(err, profiles.ErrProfileNotFound):
		acct = Account{
			UserID:      userID,
			Balance:     l.cfg.InitialBalance,
			LastGrantAt: l.cfg.Clock(),
		}

		err = l.store.Upsert(ctx, userID, profiles.Record{
			Balance:     acct.Balance,
			LastGrantAt: acct.LastGrantAt,
		})
		if err != nil {
			l.discardLocked()
			return Account{}, fmt.Errorf("%w: seed account %q: %v", ErrStoreUnavailable, userID, err)
		}

	case err != nil:
		l.discardLocked()
		return Account{}, fmt.Errorf("%w: fetch %q: %v", ErrStoreUnavailable, userID, err)

	default:
		acct = Account{UserID: userID, Balance: rec.Balance, LastGrantAt: rec.LastGrantAt}
	}

	l.account = &acct
	l.pending = nil
	l.publishLocked()

	return acct, nil
}

// Reset discards the active account (sign-out). Safe to call in any state.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discardLocked()
}

// CurrentBalance returns the last committed balance without blocking on
// in-flight mutations.
func (l *Ledger) CurrentBalance() (int64, error) {
	s := l.snap.Load()
	if s == nil {
		return 0, ErrNoActiveSession
	}

	return s.Balance, nil
}

// Earn credits amount from source. On success the new balance is committed,
// published, and recorded in the pending notification slot. On persist
// failure the balance stays at its pre-call value and the caller is expected
// to offer a retry rather than drop the reward.
func (l *Ledger) Earn(ctx context.Context, amount int64, source Source) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: earn amount %d", ErrPrecondition, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.account == nil {
		return 0, ErrNoActiveSession
	}

	newBalance := l.account.Balance + amount

	err := l.store.Upsert(ctx, l.account.UserID, profiles.Record{
		Balance:     newBalance,
		LastGrantAt: l.account.LastGrantAt,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: credit %d (%s): %v", ErrPersistFailed, amount, source, err)
	}

	l.account.Balance = newBalance
	l.pending = &Notification{Amount: amount, NewBalance: newBalance, Source: source}
	l.publishLocked()

	return newBalance, nil
}

// Spend debits amount from source. The balance check and the debit are one
// critical section: no concurrent Earn or Spend can interleave between them,
// so the balance can never go negative. ErrInsufficientBalance performs no
// mutation at all.
func (l *Ledger) Spend(ctx context.Context, amount int64, source Source) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: spend amount %d", ErrPrecondition, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.account == nil {
		return 0, ErrNoActiveSession
	}

	if l.account.Balance < amount {
		return 0, ErrInsufficientBalance
	}

	newBalance := l.account.Balance - amount

	err := l.store.Upsert(ctx, l.account.UserID, profiles.Record{
		Balance:     newBalance,
		LastGrantAt: l.account.LastGrantAt,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: debit %d (%s): %v", ErrPersistFailed, amount, source, err)
	}

	l.account.Balance = newBalance
	l.publishLocked()

	return newBalance, nil
}

// MaybeApplyDailyGrant credits the daily grant when LastGrantAt is unset or
// at least GrantInterval in the past. The bound is elapsed time, not a
// calendar-day rollover. The credit and the new LastGrantAt land in one
// upsert, so a repeat call inside the window is a no-op: idempotent per
// eligibility window.
func (l *Ledger) MaybeApplyDailyGrant(ctx context.Context, now time.Time) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.account == nil {
		return false, 0, ErrNoActiveSession
	}

	if !l.account.LastGrantAt.IsZero() && now.Sub(l.account.LastGrantAt) < l.cfg.GrantInterval {
		return false, l.account.Balance, nil
	}

	newBalance := l.account.Balance + l.cfg.DailyGrantAmount

	err := l.store.Upsert(ctx, l.account.UserID, profiles.Record{
		Balance:     newBalance,
		LastGrantAt: now,
	})
	if err != nil {
		return false, 0, fmt.Errorf("%w: daily grant: %v", ErrPersistFailed, err)
	}

	l.account.Balance = newBalance
	l.account.LastGrantAt = now
	l.pending = &Notification{Amount: l.cfg.DailyGrantAmount, NewBalance: newBalance, Source: SourceDailyGrant}
	l.publishLocked()

	return true, newBalance, nil
}

// PendingNotification returns the unconsumed earn notification, if any.
func (l *Ledger) PendingNotification() (Notification, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending == nil {
		return Notification{}, false
	}

	return *l.pending, true
}

// ClearPendingNotification empties the slot after the UI has shown it.
func (l *Ledger) ClearPendingNotification() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
}

func (l *Ledger) discardLocked() {
	l.account = nil
	l.pending = nil
	l.snap.Store(nil)
}

func (l *Ledger) publishLocked() {
	cp := *l.account
	l.snap.Store(&cp)
}
