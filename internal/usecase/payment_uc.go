// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
	"telegram-vpn-shop/internal/infra/metrics"
)

// nanotonsPerTON converts the smallest on-chain unit to the display unit.
const nanotonsPerTON = 1_000_000_000

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreatePending mints a payment_id and records the purchase intent.
	CreatePending(ctx context.Context, userID int64, amountRequested float64, meta model.PaymentMetadata) (*model.Transaction, error)
	// CompleteIfPending transitions the matching pending transaction to paid
	// and returns its stored metadata; (nil, nil) when there is no match.
	CompleteIfPending(ctx context.Context, paymentID string, amountReceived float64, currency, method string) (*model.PaymentMetadata, error)
	// CompleteTON is CompleteIfPending specialized to on-chain TON payments:
	// the reported value arrives in nanotons.
	CompleteTON(ctx context.Context, paymentID string, nanotons int64) (*model.PaymentMetadata, error)
	// Page lists ledger rows for the dashboard, newest first.
	Page(ctx context.Context, page, perPage int) ([]*model.Transaction, int, error)
	// SweepExpired fails pending transactions older than maxAge and returns
	// how many were flipped.
	SweepExpired(ctx context.Context, maxAge time.Duration) (int, error)
}

type paymentUC struct {
	transactions repository.TransactionRepository
	txm          repository.TransactionManager // nil runs the sweep outside a transaction
	log          *zerolog.Logger
}

func NewPaymentUseCase(transactions repository.TransactionRepository, txm repository.TransactionManager, logger *zerolog.Logger) *paymentUC {
	ucLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{transactions: transactions, txm: txm, log: &ucLog}
}

func (u *paymentUC) CreatePending(ctx context.Context, userID int64, amountRequested float64, meta model.PaymentMetadata) (*model.Transaction, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if userID <= 0 || amountRequested < 0 {
		return nil, domain.ErrInvalidArgument
	}

	t := &model.Transaction{
		ID:              ulid.Make().String(),
		PaymentID:       uuid.NewString(),
		UserID:          userID,
		Status:          model.TransactionStatusPending,
		AmountRequested: amountRequested,
		Metadata:        meta,
		CreatedAt:       time.Now().UTC(),
	}
	if err := u.transactions.CreatePending(ctx, repository.NoTX, t); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.TransactionStatusPending))
	u.log.Debug().Str("payment_id", t.PaymentID).Int64("user_id", userID).Msg("pending transaction created")
	return t, nil
}

func (u *paymentUC) CompleteIfPending(ctx context.Context, paymentID string, amountReceived float64, currency, method string) (*model.PaymentMetadata, error) {
	if paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	meta, err := u.transactions.CompleteIfPending(ctx, repository.NoTX, paymentID, amountReceived, currency, method)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		u.log.Warn().Str("payment_id", paymentID).Str("method", method).
			Msg("notification for unknown or already completed payment")
		return nil, nil
	}
	metrics.IncPayment(string(model.TransactionStatusPaid))
	metrics.AddPaymentRevenue(currency, amountReceived)
	u.log.Info().Str("payment_id", paymentID).Float64("amount", amountReceived).
		Str("currency", currency).Str("method", method).Msg("transaction completed")
	return meta, nil
}

func (u *paymentUC) CompleteTON(ctx context.Context, paymentID string, nanotons int64) (*model.PaymentMetadata, error) {
	amount := float64(nanotons) / nanotonsPerTON
	return u.CompleteIfPending(ctx, paymentID, amount, "TON", "TON")
}

func (u *paymentUC) Page(ctx context.Context, page, perPage int) ([]*model.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 15
	}
	total, err := u.transactions.CountAll(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, err
	}
	rows, err := u.transactions.ListPage(ctx, repository.NoTX, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (u *paymentUC) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	failed := 0
	sweep := func(ctx context.Context, tx repository.Tx) error {
		stale, err := u.transactions.ListPendingOlderThan(ctx, tx, cutoff, 100)
		if err != nil {
			return err
		}
		for _, t := range stale {
			// The conditional update keeps the sweep safe against a webhook
			// confirming the same payment concurrently.
			ok, err := u.transactions.FailIfPending(ctx, tx, t.PaymentID)
			if err != nil {
				return err
			}
			if ok {
				failed++
				u.log.Info().Str("payment_id", t.PaymentID).Int64("user_id", t.UserID).
					Time("created_at", t.CreatedAt).Msg("pending transaction expired")
			}
		}
		return nil
	}

	var err error
	if u.txm == nil {
		err = sweep(ctx, repository.NoTX)
	} else {
		err = u.txm.WithTx(ctx, pgx.TxOptions{}, sweep)
	}
	if err != nil {
		// A rollback undoes the status updates, so the count inside the
		// aborted transaction must not leak into the expiry metrics.
		return 0, err
	}
	for i := 0; i < failed; i++ {
		metrics.IncPayment(string(model.TransactionStatusFailed))
	}
	return failed, nil
}
