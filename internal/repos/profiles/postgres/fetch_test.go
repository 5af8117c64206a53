package profiles

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/assetcraft/gemledger/internal/infra/pgtestutil"
	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

func TestProfiles_Fetch_TableDriven(t *testing.T) {
	t.Parallel() // allow this suite to run alongside others

	grantedAt := time.Date(2026, time.February, 10, 8, 30, 0, 0, time.UTC)

	type tc struct {
		name    string
		seed    func(db *sql.DB, t *testing.T)
		userID  string
		want    profiles.Record
		wantErr error
	}

	tests := []tc{
		{
			name: "ok_profile_exists",
			seed: func(db *sql.DB, t *testing.T) {
				_, err := db.Exec(
					`INSERT INTO profiles (user_id, balance, last_grant_at) VALUES ($1, 8, $2)`,
					"u1", grantedAt)
				if err != nil {
					t.Fatalf("seed profile: %v", err)
				}
			},
			userID: "u1",
			want:   profiles.Record{Balance: 8, LastGrantAt: grantedAt},
		},
		{
			name: "ok_never_granted",
			seed: func(db *sql.DB, t *testing.T) {
				_, err := db.Exec(
					`INSERT INTO profiles (user_id, balance, last_grant_at) VALUES ($1, 3, NULL)`,
					"u2")
				if err != nil {
					t.Fatalf("seed profile: %v", err)
				}
			},
			userID: "u2",
			want:   profiles.Record{Balance: 3},
		},
		{
			name:    "error_profile_not_found",
			seed:    nil, // no seed -> profile missing
			userID:  "ghost",
			wantErr: profiles.ErrProfileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			if tt.seed != nil {
				tt.seed(db, t)
			}

			repo := New(db)

			got, err := repo.Fetch(t.Context(), tt.userID)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Balance != tt.want.Balance {
				t.Fatalf("balance: want %d, got %d", tt.want.Balance, got.Balance)
			}
			if !got.LastGrantAt.Equal(tt.want.LastGrantAt) {
				t.Fatalf("last grant: want %v, got %v", tt.want.LastGrantAt, got.LastGrantAt)
			}
		})
	}
}
