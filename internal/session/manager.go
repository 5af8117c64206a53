// Package session tracks which users are signed in and owns one gemstone
// ledger per active session.
//
// Auth-state changes arrive as explicit SignIn/SignOut calls (the auth
// webhook is the event source). There is no ambient singleton: one Manager
// is constructed per process and handed to the API layer.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/assetcraft/gemledger/internal/gems"
	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

// Manager maps active user ids to their ledgers. Accounts are fully
// independent; the only shared state is the registry map itself.
type Manager struct {
	store profiles.Store
	cfg   gems.Config
	clock func() time.Time

	mu      sync.RWMutex
	ledgers map[string]*gems.Ledger

	ready chan struct{}
}

func NewManager(store profiles.Store, cfg gems.Config) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	m := &Manager{
		store:   store,
		cfg:     cfg,
		clock:   clock,
		ledgers: make(map[string]*gems.Ledger),
		ready:   make(chan struct{}),
	}

	// Readiness is resolved exactly once, at construction. Callers wait on
	// the channel instead of polling.
	close(m.ready)

	return m
}

// Ready is closed once the manager can accept session events.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// SignIn loads (or creates) the user's account and evaluates the daily
// grant. Signing in a user who is already active reuses the loaded ledger
// and re-runs only the grant check.
func (m *Manager) SignIn(ctx context.Context, userID string) (gems.Account, bool, error) {
	if userID == "" {
		return gems.Account{}, false, fmt.Errorf("%w: empty user id", gems.ErrPrecondition)
	}

	m.mu.RLock()
	led, ok := m.ledgers[userID]
	m.mu.RUnlock()

	if !ok {
		led = gems.NewLedger(m.store, m.cfg)

		if _, err := led.Load(ctx, userID); err != nil {
			return gems.Account{}, false, fmt.Errorf("sign in %q: %w", userID, err)
		}

		m.mu.Lock()
		if existing, raced := m.ledgers[userID]; raced {
			// Another sign-in event won; keep its ledger.
			led = existing
		} else {
			m.ledgers[userID] = led
		}
		m.mu.Unlock()
	}

	granted, _, err := led.MaybeApplyDailyGrant(ctx, m.clock())
	if err != nil {
		// The session is live; the grant can be retried. Not worth failing
		// the sign-in over.
		slog.Warn("daily grant not applied", "userId", userID, "error", err)
	}

	balance, err := led.CurrentBalance()
	if err != nil {
		return gems.Account{}, false, fmt.Errorf("sign in %q: %w", userID, err)
	}

	slog.Info("session started", "userId", userID, "balance", balance, "dailyGrant", granted)

	return gems.Account{UserID: userID, Balance: balance}, granted, nil
}

// SignOut discards the user's ledger. Unknown users are a no-op.
func (m *Manager) SignOut(userID string) {
	m.mu.Lock()
	led, ok := m.ledgers[userID]
	delete(m.ledgers, userID)
	m.mu.Unlock()

	if ok {
		led.Reset()
		slog.Info("session ended", "userId", userID)
	}
}

// Ledger returns the active ledger for userID, if the user is signed in.
func (m *Manager) Ledger(userID string) (*gems.Ledger, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	led, ok := m.ledgers[userID]

	return led, ok
}

// ActiveSessions reports how many users are signed in.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.ledgers)
}
