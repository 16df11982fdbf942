package model

import (
	"time"

	"telegram-vpn-shop/internal/domain"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending" // created at purchase initiation; awaiting a provider notification
	TransactionStatusPaid    TransactionStatus = "paid"    // verified notification received; fulfillment handed off
	TransactionStatusFailed  TransactionStatus = "failed"  // expired or explicitly failed; terminal
)

// Transaction is one row of the payment ledger. payment_id is minted by the
// purchase-initiation flow before any provider notification exists and is the
// only correlation key shared with the outside world. A row transitions
// pending->paid or pending->failed exactly once and is never deleted.
type Transaction struct {
	ID              string // ULID
	PaymentID       string // unique correlation key
	UserID          int64  // Telegram user id
	Status          TransactionStatus
	AmountRequested float64 // in the shop's base currency (RUB)

	// Populated only on the transition to paid.
	AmountReceived   *float64
	ReceivedCurrency *string
	PaymentMethod    *string

	Metadata  PaymentMetadata
	CreatedAt time.Time
}

// PaymentMetadata is the business payload captured when a purchase is
// initiated. It is stored on the pending transaction, echoed through some
// provider payloads, and handed verbatim to fulfillment. CustomerEmail is a
// pointer so "absent" is explicit rather than a sentinel string.
type PaymentMetadata struct {
	UserID        int64   `json:"user_id"`
	Months        int     `json:"months"`
	Price         float64 `json:"price"`
	Action        string  `json:"action"` // e.g. "new_key", "extend_key"
	KeyID         int64   `json:"key_id"`
	HostName      string  `json:"host_name"`
	PlanID        int64   `json:"plan_id"`
	CustomerEmail *string `json:"customer_email,omitempty"`
	PaymentMethod string  `json:"payment_method"`
}

// Validate checks the fields fulfillment cannot work without.
func (m *PaymentMetadata) Validate() error {
	if m == nil {
		return domain.ErrInvalidArgument
	}
	if m.UserID <= 0 || m.Months <= 0 || m.Price < 0 {
		return domain.ErrInvalidArgument
	}
	if m.Action == "" || m.HostName == "" || m.PaymentMethod == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// CanTransitionTo reports whether the status change is allowed. Paid and
// failed are terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s != TransactionStatusPending {
		return false
	}
	return next == TransactionStatusPaid || next == TransactionStatusFailed
}
