package model

import "time"

// User is a shop customer keyed by Telegram id.
type User struct {
	TelegramID      int64
	Username        string
	TotalSpent      float64
	TotalMonths     int
	TrialUsed       bool
	AgreedToTerms   bool
	Banned          bool
	ReferredBy      *int64
	ReferralBalance float64
	RegisteredAt    time.Time
}
