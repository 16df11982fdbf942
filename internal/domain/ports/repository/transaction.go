package repository

import (
	"context"
	"time"

	"telegram-vpn-shop/internal/domain/model"
)

// TransactionRepository owns the payment ledger. All mutation funnels through
// the two conditional updates; nothing else ever changes a row's status.
type TransactionRepository interface {
	// CreatePending inserts a new pending row. Returns ErrAlreadyExists when
	// the payment_id is already taken.
	CreatePending(ctx context.Context, tx Tx, t *model.Transaction) error

	// CompleteIfPending atomically flips the row for paymentID from pending
	// to paid, records the received amount/currency/method, and returns the
	// stored metadata. When the row is missing or no longer pending it
	// returns (nil, nil): duplicate and replayed deliveries are a benign
	// no-op, never a second credit.
	CompleteIfPending(ctx context.Context, tx Tx, paymentID string, amount float64, currency, method string) (*model.PaymentMetadata, error)

	// FailIfPending atomically flips a still-pending row to failed. Reports
	// whether a row was actually transitioned.
	FailIfPending(ctx context.Context, tx Tx, paymentID string) (bool, error)

	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Transaction, error)
	ListPage(ctx context.Context, tx Tx, offset, limit int) ([]*model.Transaction, error)
	CountAll(ctx context.Context, tx Tx) (int, error)
	SumPaid(ctx context.Context, tx Tx) (float64, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
}
