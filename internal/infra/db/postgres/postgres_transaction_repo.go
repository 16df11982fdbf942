package postgres

import (
	"encoding/json"
	"errors"
	"time"

	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const txColumns = `id, payment_id, user_id, status, amount_requested, amount_received, received_currency, payment_method, metadata, created_at`

func (r *transactionRepo) CreatePending(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if t.PaymentID == "" || t.UserID <= 0 {
		return domain.ErrInvalidArgument
	}
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO transactions (id, payment_id, user_id, status, amount_requested, metadata, created_at)
VALUES ($1, $2, $3, 'pending', $4, $5, $6);`

	_, err = execSQL(ctx, r.pool, tx, q, t.ID, t.PaymentID, t.UserID, t.AmountRequested, meta, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// CompleteIfPending is the idempotency boundary: a single conditional
// read-modify-write. RETURNING hands back the stored metadata so the caller
// never has to trust the webhook payload for business fields. Concurrent
// deliveries of the same payment_id serialize on the row lock; exactly one
// sees a pending row.
func (r *transactionRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, paymentID string, amount float64, currency, method string) (*model.PaymentMetadata, error) {
	const q = `
UPDATE transactions
   SET status = 'paid',
       amount_received = $2,
       received_currency = $3,
       payment_method = $4
 WHERE payment_id = $1
   AND status = 'pending'
RETURNING metadata;`

	row, err := pickRow(ctx, r.pool, tx, q, paymentID, amount, currency, method)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// unknown payment_id or already paid/failed: benign no-op
			return nil, nil
		}
		return nil, domain.ErrReadDatabaseRow
	}
	meta := &model.PaymentMetadata{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return meta, nil
}

func (r *transactionRepo) FailIfPending(ctx context.Context, tx repository.Tx, paymentID string) (bool, error) {
	const q = `UPDATE transactions SET status = 'failed' WHERE payment_id = $1 AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions WHERE payment_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) ListPage(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 15
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + txColumns + ` FROM transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit, offset)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *transactionRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM transactions;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *transactionRepo) SumPaid(ctx context.Context, tx repository.Tx) (float64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(SUM(amount_requested),0) FROM transactions WHERE status='paid';`)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func (r *transactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + txColumns + ` FROM transactions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var raw []byte
	if err := row.Scan(&t.ID, &t.PaymentID, &t.UserID, &t.Status, &t.AmountRequested,
		&t.AmountReceived, &t.ReceivedCurrency, &t.PaymentMethod, &raw, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(raw, &t.Metadata); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

func scanTransactions(rows pgx.Rows) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for rows.Next() {
		t := &model.Transaction{}
		var raw []byte
		if err := rows.Scan(&t.ID, &t.PaymentID, &t.UserID, &t.Status, &t.AmountRequested,
			&t.AmountReceived, &t.ReceivedCurrency, &t.PaymentMethod, &raw, &t.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if err := json.Unmarshal(raw, &t.Metadata); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}
