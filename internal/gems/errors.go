package gems

import "errors"

var (
	// ErrNoActiveSession: an operation ran before Load succeeded (or after
	// Reset). Caller bug; fail fast.
	ErrNoActiveSession = errors.New("no active gemstone session")

	// ErrStoreUnavailable: the remote fetch failed during Load. Transient;
	// the ledger keeps no stale account active.
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrPersistFailed: the remote write failed after a balance change was
	// computed. The in-memory balance is left at its pre-call value.
	ErrPersistFailed = errors.New("balance persist failed")

	// ErrInsufficientBalance: normal business-rule rejection of a spend.
	ErrInsufficientBalance = errors.New("insufficient gemstone balance")

	// ErrPrecondition: zero/negative amount or empty user id. Caller bug.
	ErrPrecondition = errors.New("precondition violation")
)
