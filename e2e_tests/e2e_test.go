package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// These tests drive a running service over HTTP. Point E2E_BASE_URL at it
// (e.g. http://localhost:8080); without it the suite is skipped.

const (
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

func baseURL(t *testing.T) string {
	t.Helper()

	u := os.Getenv("E2E_BASE_URL")
	if u == "" {
		t.Skip("E2E_BASE_URL not set, skipping end-to-end suite")
	}

	return u
}

func TestE2E_GemstoneLifecycle(t *testing.T) {
	base := baseURL(t)
	waitUntilReady(t, base)

	userID := "e2e-" + uuid.NewString()

	t.Run("sign_in_seeds_starter_balance", func(t *testing.T) {
		code, body := signIn(t, base, userID)
		if code != http.StatusOK {
			t.Fatalf("sign in: want 200, got %d (%s)", code, body)
		}

		if got := getBalance(t, base, userID); got != 3 {
			t.Fatalf("starter balance: want 3, got %d", got)
		}
	})

	t.Run("ad_reward_credits_fixed_amount", func(t *testing.T) {
		code, body := postEarn(t, base, userID, "ad", map[string]any{})
		if code != http.StatusOK {
			t.Fatalf("ad earn: want 200, got %d (%s)", code, body)
		}

		// 3 starter + 3 ad reward
		if got := getBalance(t, base, userID); got != 6 {
			t.Fatalf("after ad: want 6, got %d", got)
		}
	})

	t.Run("duplicate_purchase_receipt_conflict", func(t *testing.T) {
		receiptID := uniqReceiptID("purchase-50")

		code, body := postEarn(t, base, userID, "purchase",
			map[string]any{"receiptId": receiptID, "amount": 50})
		if code != http.StatusOK {
			t.Fatalf("first purchase: want 200, got %d (%s)", code, body)
		}

		code, body = postEarn(t, base, userID, "purchase",
			map[string]any{"receiptId": receiptID, "amount": 50})
		if code != http.StatusConflict {
			t.Fatalf("replayed purchase: want 409, got %d (%s)", code, body)
		}

		// credited exactly once: 6 + 50 = 56
		if got := getBalance(t, base, userID); got != 56 {
			t.Fatalf("after replay: want 56, got %d", got)
		}
	})

	t.Run("spend_debits_balance", func(t *testing.T) {
		code, body := postJSON(t, base, "/user/"+userID+"/spend", nil, map[string]any{"amount": 6})
		if code != http.StatusOK {
			t.Fatalf("spend: want 200, got %d (%s)", code, body)
		}

		if got := getBalance(t, base, userID); got != 50 {
			t.Fatalf("after spend: want 50, got %d", got)
		}
	})

	t.Run("overspend_conflict_leaves_balance", func(t *testing.T) {
		code, body := postJSON(t, base, "/user/"+userID+"/spend", nil, map[string]any{"amount": 1000})
		if code != http.StatusConflict {
			t.Fatalf("overspend: want 409, got %d (%s)", code, body)
		}

		if got := getBalance(t, base, userID); got != 50 {
			t.Fatalf("after overspend: want 50, got %d", got)
		}
	})

	t.Run("repeat_grant_inside_window_declined", func(t *testing.T) {
		code, body := postJSON(t, base, "/user/"+userID+"/grant", nil, nil)
		if code != http.StatusOK {
			t.Fatalf("grant: want 200, got %d (%s)", code, body)
		}

		var payload struct {
			Granted    bool  `json:"granted"`
			NewBalance int64 `json:"newBalance"`
		}
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			t.Fatalf("decode grant response: %v", err)
		}
		if payload.Granted {
			t.Fatalf("grant inside 24h window should be declined")
		}
		if payload.NewBalance != 50 {
			t.Fatalf("balance reported by declined grant: want 50, got %d", payload.NewBalance)
		}
	})

	t.Run("notification_read_and_clear", func(t *testing.T) {
		// The last earn left a pending notification only if nothing cleared
		// it; force a fresh one.
		if code, body := postEarn(t, base, userID, "ad", map[string]any{}); code != http.StatusOK {
			t.Fatalf("ad earn: want 200, got %d (%s)", code, body)
		}

		code, body := get(t, base, "/user/"+userID+"/notification")
		if code != http.StatusOK {
			t.Fatalf("notification: want 200, got %d (%s)", code, body)
		}

		var note struct {
			Amount     int64  `json:"amount"`
			NewBalance int64  `json:"newBalance"`
			Source     string `json:"source"`
		}
		if err := json.Unmarshal([]byte(body), &note); err != nil {
			t.Fatalf("decode notification: %v", err)
		}
		if note.Amount != 3 || note.Source != "ad_reward" {
			t.Fatalf("notification: got %+v", note)
		}

		if code, _ := del(t, base, "/user/"+userID+"/notification"); code != http.StatusNoContent {
			t.Fatalf("clear notification: want 204, got %d", code)
		}

		if code, _ := get(t, base, "/user/"+userID+"/notification"); code != http.StatusNoContent {
			t.Fatalf("after clear: want 204, got %d", code)
		}
	})

	t.Run("sign_out_then_balance_from_store", func(t *testing.T) {
		if code, _ := del(t, base, "/session/"+userID); code != http.StatusNoContent {
			t.Fatalf("sign out: want 204, got %d", code)
		}

		// No live session; the balance endpoint falls back to the store.
		if got := getBalance(t, base, userID); got != 53 {
			t.Fatalf("persisted balance: want 53, got %d", got)
		}

		// Mutations need a session.
		code, _ := postJSON(t, base, "/user/"+userID+"/spend", nil, map[string]any{"amount": 1})
		if code != http.StatusNotFound {
			t.Fatalf("spend without session: want 404, got %d", code)
		}
	})
}

func TestE2E_Validation(t *testing.T) {
	base := baseURL(t)
	waitUntilReady(t, base)

	userID := "e2e-" + uuid.NewString()
	if code, body := signIn(t, base, userID); code != http.StatusOK {
		t.Fatalf("sign in: want 200, got %d (%s)", code, body)
	}

	t.Run("sign_in_without_user_id", func(t *testing.T) {
		code, _ := postJSON(t, base, "/session", nil, map[string]any{"userId": ""})
		if code != http.StatusBadRequest {
			t.Fatalf("empty userId: want 400, got %d", code)
		}
	})

	t.Run("spend_non_positive_amount", func(t *testing.T) {
		code, _ := postJSON(t, base, "/user/"+userID+"/spend", nil, map[string]any{"amount": 0})
		if code != http.StatusBadRequest {
			t.Fatalf("zero amount: want 400, got %d", code)
		}
	})

	t.Run("earn_invalid_source_type", func(t *testing.T) {
		code, _ := postEarn(t, base, userID, "cheat", map[string]any{})
		if code != http.StatusBadRequest {
			t.Fatalf("bad source-type: want 400, got %d", code)
		}
	})

	t.Run("purchase_without_amount", func(t *testing.T) {
		code, _ := postEarn(t, base, userID, "purchase",
			map[string]any{"receiptId": uniqReceiptID("noamount")})
		if code != http.StatusBadRequest {
			t.Fatalf("purchase without amount: want 400, got %d", code)
		}
	})
}

/* -------------------- helpers -------------------- */

func signIn(t *testing.T, base, userID string) (int, string) {
	t.Helper()
	return postJSON(t, base, "/session", nil, map[string]any{"userId": userID})
}

func postEarn(t *testing.T, base, userID, sourceType string, body map[string]any) (int, string) {
	t.Helper()

	h := http.Header{}
	h.Set("Source-Type", sourceType)

	return postJSON(t, base, "/user/"+userID+"/earn", h, body)
}

func getBalance(t *testing.T, base, userID string) int64 {
	t.Helper()

	code, body := get(t, base, "/user/"+userID+"/balance")
	if code != http.StatusOK {
		t.Fatalf("GET balance: want 200, got %d (%s)", code, body)
	}

	var payload struct {
		UserID  string `json:"userId"`
		Balance int64  `json:"balance"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if payload.UserID != userID {
		t.Fatalf("userId mismatch: want %s, got %s", userID, payload.UserID)
	}

	return payload.Balance
}

func postJSON(t *testing.T, base, path string, header http.Header, body any) (int, string) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, base+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return do(t, req)
}

func get(t *testing.T, base, path string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, base+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	return do(t, req)
}

func del(t *testing.T, base, path string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, base+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, string) {
	t.Helper()

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(b)
}

func uniqReceiptID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// waitUntilReady polls /healthz until the service responds or the window
// closes.
func waitUntilReady(t *testing.T, base string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/healthz", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}

		resp, err := httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", base, waitReady)
		case <-tick.C:
		}
	}
}
