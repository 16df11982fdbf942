//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// mockTransactionRepo is an in-memory ledger keyed by payment_id with the
// same conditional-transition semantics as the Postgres implementation.
type mockTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Transaction

	CreateError   error
	CompleteError error
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{rows: map[string]*model.Transaction{}}
}

func (m *mockTransactionRepo) CreatePending(_ context.Context, _ repository.Tx, t *model.Transaction) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.rows[t.PaymentID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *t
	m.rows[t.PaymentID] = &cp
	return nil
}

func (m *mockTransactionRepo) CompleteIfPending(_ context.Context, _ repository.Tx, paymentID string, amount float64, currency, method string) (*model.PaymentMetadata, error) {
	if m.CompleteError != nil {
		return nil, m.CompleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[paymentID]
	if !ok || row.Status != model.TransactionStatusPending {
		return nil, nil
	}
	row.Status = model.TransactionStatusPaid
	row.AmountReceived = &amount
	row.ReceivedCurrency = &currency
	row.PaymentMethod = &method
	meta := row.Metadata
	return &meta, nil
}

func (m *mockTransactionRepo) FailIfPending(_ context.Context, _ repository.Tx, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[paymentID]
	if !ok || row.Status != model.TransactionStatusPending {
		return false, nil
	}
	row.Status = model.TransactionStatusFailed
	return true, nil
}

func (m *mockTransactionRepo) FindByPaymentID(_ context.Context, _ repository.Tx, paymentID string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *mockTransactionRepo) ListPage(_ context.Context, _ repository.Tx, offset, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Transaction, 0, len(m.rows))
	for _, row := range m.rows {
		cp := *row
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *mockTransactionRepo) CountAll(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *mockTransactionRepo) SumPaid(_ context.Context, _ repository.Tx) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, row := range m.rows {
		if row.Status == model.TransactionStatusPaid && row.AmountReceived != nil {
			sum += *row.AmountReceived
		}
	}
	return sum, nil
}

func (m *mockTransactionRepo) ListPendingOlderThan(_ context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, row := range m.rows {
		if row.Status == model.TransactionStatusPending && row.CreatedAt.Before(olderThan) {
			cp := *row
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// mockTxManager runs the callback without a real database transaction.
type mockTxManager struct {
	calls     int
	commitErr error // returned after the callback, as if the commit failed
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	if err := fn(ctx, repository.NoTX); err != nil {
		return err
	}
	return m.commitErr
}

// mockScheduler runs submitted tasks inline.
type mockScheduler struct {
	mu        sync.Mutex
	running   bool
	submitErr error
	submitted int
}

func (m *mockScheduler) Submit(task func(ctx context.Context) error) error {
	m.mu.Lock()
	if m.submitErr != nil {
		err := m.submitErr
		m.mu.Unlock()
		return err
	}
	m.submitted++
	m.mu.Unlock()
	return task(context.Background())
}

func (m *mockScheduler) Running() bool { return m.running }

// mockDeliverer records what it was asked to deliver.
type mockDeliverer struct {
	mu        sync.Mutex
	delivered []*model.PaymentMetadata
	err       error
}

func (m *mockDeliverer) Deliver(_ context.Context, meta *model.PaymentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.delivered = append(m.delivered, meta)
	return nil
}

func testMeta() model.PaymentMetadata {
	return model.PaymentMetadata{
		UserID:        42,
		Months:        3,
		Price:         400,
		Action:        "buy",
		HostName:      "demo",
		PlanID:        7,
		PaymentMethod: "YooKassa",
	}
}
