package profiles

import (
	"database/sql"

	"github.com/assetcraft/gemledger/internal/repos/profiles"
)

var _ profiles.Store = (*profilesRepo)(nil)

type profilesRepo struct{ db *sql.DB }

func New(db *sql.DB) *profilesRepo {
	return &profilesRepo{db: db}
}
