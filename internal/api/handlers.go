package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/assetcraft/gemledger/internal/cache"
	"github.com/assetcraft/gemledger/internal/config"
	"github.com/assetcraft/gemledger/internal/gems"
	"github.com/assetcraft/gemledger/internal/repos/profiles"
	"github.com/assetcraft/gemledger/internal/repos/rewards"
	"github.com/assetcraft/gemledger/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// HandlerProvider wires the session manager, stores, cache and limiter into
// HTTP handlers.
type HandlerProvider struct {
	sessions *session.Manager
	store    profiles.Store
	receipts rewards.Receipts
	balances *cache.Balances // nil when the cache is disabled
	limiter  *UserLimiter
	gemsCfg  config.GemsConfig
	clock    func() time.Time
}

func NewHandler(
	sessions *session.Manager,
	store profiles.Store,
	receipts rewards.Receipts,
	balances *cache.Balances,
	limiter *UserLimiter,
	gemsCfg config.GemsConfig,
) *HandlerProvider {
	return &HandlerProvider{
		sessions: sessions,
		store:    store,
		receipts: receipts,
		balances: balances,
		limiter:  limiter,
		gemsCfg:  gemsCfg,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseUserIDFromPath reads `{userId}` from chi routes like:
//
//	GET  /user/{userId}/balance
//	POST /user/{userId}/earn
func parseUserIDFromPath(r *http.Request) (string, error) {
	id := chi.URLParam(r, "userId")
	if id == "" {
		return "", fmt.Errorf("missing userId")
	}

	return id, nil
}

// parseSourceType maps the Source-Type header onto a reward source.
// Only externally-triggered reward sources are accepted here; daily grants
// and spends have their own endpoints.
func parseSourceType(h http.Header) (gems.Source, error) {
	raw := strings.ToLower(strings.TrimSpace(h.Get("Source-Type")))
	switch raw {
	case "ad":
		return gems.SourceAdReward, nil
	case "purchase":
		return gems.SourcePurchase, nil
	default:
		return "", fmt.Errorf("invalid Source-Type")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// activeLedger resolves the ledger for the path user, writing a 404 when the
// user has no live session.
func (h *HandlerProvider) activeLedger(w http.ResponseWriter, r *http.Request) (string, *gems.Ledger, bool) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return "", nil, false
	}

	led, ok := h.sessions.Ledger(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "no active session for user")
		return "", nil, false
	}

	return userID, led, true
}

// refreshCache writes the committed balance through to the cache. Cache
// failures are logged, never surfaced: the store already confirmed.
func (h *HandlerProvider) refreshCache(r *http.Request, userID string, balance int64) {
	if h.balances == nil {
		return
	}

	if err := h.balances.Put(r.Context(), userID, balance); err != nil {
		slog.Warn("balance cache refresh failed", "userId", userID, "error", err)
	}
}

// --- Handlers ---

func (h *HandlerProvider) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type signInRequest struct {
	UserID string `json:"userId"`
}

// SignInHandler handles POST /session — the auth collaborator's
// signed-in webhook.
func (h *HandlerProvider) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, granted, err := h.sessions.SignIn(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, gems.ErrPrecondition):
			writeError(w, http.StatusBadRequest, "userId required")
		case errors.Is(err, gems.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "profile store unavailable, try again")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.refreshCache(r, acct.UserID, acct.Balance)

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":            acct.UserID,
		"balance":           acct.Balance,
		"dailyGrantApplied": granted,
	})
}

// SignOutHandler handles DELETE /session/{userId}.
func (h *HandlerProvider) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	h.sessions.SignOut(userID)
	w.WriteHeader(http.StatusNoContent)
}

// GetBalanceHandler handles GET /user/{userId}/balance.
//
// Resolution order: live ledger snapshot, then cache, then profile store.
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return
	}

	if led, ok := h.sessions.Ledger(userID); ok {
		balance, berr := led.CurrentBalance()
		if berr == nil {
			writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "balance": balance})
			return
		}
	}

	if h.balances != nil {
		balance, hit, cerr := h.balances.Get(r.Context(), userID)
		if cerr != nil {
			slog.Warn("balance cache read failed", "userId", userID, "error", cerr)
		} else if hit {
			writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "balance": balance})
			return
		}
	}

	rec, err := h.store.Fetch(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}

		writeError(w, http.StatusServiceUnavailable, "profile store unavailable, try again")
		return
	}

	h.refreshCache(r, userID, rec.Balance)
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "balance": rec.Balance})
}

type spendRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// SpendHandler handles POST /user/{userId}/spend — called by the generation
// flow before it starts a job. 409 routes the app to the earn/purchase screen.
func (h *HandlerProvider) SpendHandler(w http.ResponseWriter, r *http.Request) {
	userID, led, ok := h.activeLedger(w, r)
	if !ok {
		return
	}

	var req spendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	newBalance, err := led.Spend(r.Context(), req.Amount, gems.SourceGenerationSpend)
	if err != nil {
		switch {
		case errors.Is(err, gems.ErrPrecondition):
			writeError(w, http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, gems.ErrInsufficientBalance):
			writeError(w, http.StatusConflict, "not enough gemstones")
		case errors.Is(err, gems.ErrPersistFailed):
			writeError(w, http.StatusServiceUnavailable, "spend not saved, try again")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.refreshCache(r, userID, newBalance)
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "newBalance": newBalance})
}

type earnRequest struct {
	ReceiptID string `json:"receiptId,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
}

// EarnHandler handles POST /user/{userId}/earn.
//
// Source-Type "ad" credits the fixed ad reward; "purchase" credits the
// package amount from the body. The receipt is recorded before the credit so
// a replayed callback gets 409 instead of a second credit; if the credit
// cannot be persisted the receipt is deleted again so the caller can retry.
func (h *HandlerProvider) EarnHandler(w http.ResponseWriter, r *http.Request) {
	userID, led, ok := h.activeLedger(w, r)
	if !ok {
		return
	}

	source, err := parseSourceType(r.Header)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid Source-Type header")
		return
	}

	var req earnRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount := h.gemsCfg.AdRewardAmount
	if source == gems.SourcePurchase {
		if req.Amount <= 0 {
			writeError(w, http.StatusBadRequest, "purchase amount must be positive")
			return
		}
		amount = req.Amount
	}

	receiptID := req.ReceiptID
	if receiptID == "" {
		receiptID = uuid.NewString()
	}

	err = h.receipts.Record(r.Context(), rewards.Receipt{
		ReceiptID: receiptID,
		UserID:    userID,
		Source:    source,
		Amount:    amount,
	})
	if err != nil {
		if errors.Is(err, rewards.ErrDuplicateReceipt) {
			writeError(w, http.StatusConflict, "reward already credited")
			return
		}

		writeError(w, http.StatusServiceUnavailable, "reward not saved, try again")
		return
	}

	newBalance, err := led.Earn(r.Context(), amount, source)
	if err != nil {
		if derr := h.receipts.Delete(r.Context(), receiptID); derr != nil {
			slog.Error("receipt compensation failed", "receiptId", receiptID, "error", derr)
		}

		switch {
		case errors.Is(err, gems.ErrPrecondition):
			writeError(w, http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, gems.ErrPersistFailed):
			writeError(w, http.StatusServiceUnavailable, "reward not saved, try again")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.refreshCache(r, userID, newBalance)
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":     userID,
		"newBalance": newBalance,
		"source":     source,
		"receiptId":  receiptID,
	})
}

// GrantHandler handles POST /user/{userId}/grant — evaluates the daily
// grant now. A repeat call inside the 24h window returns granted=false.
func (h *HandlerProvider) GrantHandler(w http.ResponseWriter, r *http.Request) {
	userID, led, ok := h.activeLedger(w, r)
	if !ok {
		return
	}

	granted, newBalance, err := led.MaybeApplyDailyGrant(r.Context(), h.clock())
	if err != nil {
		if errors.Is(err, gems.ErrPersistFailed) {
			writeError(w, http.StatusServiceUnavailable, "grant not saved, try again")
			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if granted {
		h.refreshCache(r, userID, newBalance)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":     userID,
		"granted":    granted,
		"newBalance": newBalance,
	})
}

// GetNotificationHandler handles GET /user/{userId}/notification.
// 204 means nothing is waiting.
func (h *HandlerProvider) GetNotificationHandler(w http.ResponseWriter, r *http.Request) {
	_, led, ok := h.activeLedger(w, r)
	if !ok {
		return
	}

	note, ok := led.PendingNotification()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// ClearNotificationHandler handles DELETE /user/{userId}/notification,
// called once the app has shown the toast.
func (h *HandlerProvider) ClearNotificationHandler(w http.ResponseWriter, r *http.Request) {
	_, led, ok := h.activeLedger(w, r)
	if !ok {
		return
	}

	led.ClearPendingNotification()
	w.WriteHeader(http.StatusNoContent)
}
