package gems

import "time"

// Source identifies where a balance change came from.
type Source string

const (
	SourceDailyGrant      Source = "daily_grant"
	SourceAdReward        Source = "ad_reward"
	SourcePurchase        Source = "purchase"
	SourceGenerationSpend Source = "generation_spend"
)

// Account is the in-memory gemstone account for one signed-in user.
// A zero LastGrantAt means the daily grant has never been applied.
type Account struct {
	UserID      string
	Balance     int64
	LastGrantAt time.Time
}

// Notification is the transient "you earned gemstones" slot consumed by the
// notification UI. It is never persisted; it lives only for the session.
type Notification struct {
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"newBalance"`
	Source     Source `json:"source"`
}
