//go:build !integration

package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/infra/payment"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// ---- mock settings store ----

type mockSettings struct {
	values map[string]string
}

func (m *mockSettings) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}
func (m *mockSettings) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}
func (m *mockSettings) All(_ context.Context) (map[string]string, error) { return m.values, nil }

// ---- mock payment use case ----

type completeCall struct {
	paymentID string
	amount    float64
	currency  string
	method    string
}

type mockPaymentUC struct {
	mu       sync.Mutex
	pending  map[string]*model.PaymentMetadata
	calls    []completeCall
	failWith error
}

func (m *mockPaymentUC) CreatePending(context.Context, int64, float64, model.PaymentMetadata) (*model.Transaction, error) {
	return nil, nil
}

func (m *mockPaymentUC) CompleteIfPending(_ context.Context, paymentID string, amount float64, currency, method string) (*model.PaymentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, completeCall{paymentID, amount, currency, method})
	if m.failWith != nil {
		return nil, m.failWith
	}
	meta, ok := m.pending[paymentID]
	if !ok {
		return nil, nil
	}
	delete(m.pending, paymentID)
	return meta, nil
}

func (m *mockPaymentUC) CompleteTON(ctx context.Context, paymentID string, nanotons int64) (*model.PaymentMetadata, error) {
	return m.CompleteIfPending(ctx, paymentID, float64(nanotons)/1e9, "TON", "TON")
}

func (m *mockPaymentUC) Page(context.Context, int, int) ([]*model.Transaction, int, error) {
	return nil, 0, nil
}

func (m *mockPaymentUC) SweepExpired(context.Context, time.Duration) (int, error) { return 0, nil }

func (m *mockPaymentUC) completeCalls() []completeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]completeCall(nil), m.calls...)
}

// ---- mock fulfillment handoff ----

type mockHandoff struct {
	mu        sync.Mutex
	scheduled []*model.PaymentMetadata
	err       error
}

func (m *mockHandoff) Schedule(meta *model.PaymentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.scheduled = append(m.scheduled, meta)
	return nil
}

func (m *mockHandoff) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scheduled)
}

func validMeta() *model.PaymentMetadata {
	return &model.PaymentMetadata{
		UserID:        42,
		Months:        3,
		Price:         400,
		Action:        "buy",
		HostName:      "demo",
		PlanID:        7,
		PaymentMethod: "YooKassa",
	}
}

func newTestServer(settings map[string]string, pending map[string]*model.PaymentMetadata) (*Server, *mockPaymentUC, *mockHandoff) {
	payUC := &mockPaymentUC{pending: pending}
	handoff := &mockHandoff{}
	srv := NewServer(&mockSettings{values: settings}, payUC, handoff, newTestLogger())
	return srv, payUC, handoff
}

func yookassaAuth(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func TestYooKassaWebhook(t *testing.T) {
	const secret = "yk-secret"

	makeBody := func(paymentID, value string) []byte {
		b, _ := json.Marshal(map[string]any{
			"event": "payment.succeeded",
			"object": map[string]any{
				"id":       "provider-1",
				"amount":   map[string]string{"value": value, "currency": "RUB"},
				"metadata": map[string]string{"payment_id": paymentID},
			},
		})
		return b
	}

	post := func(srv *Server, body []byte, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/yookassa-webhook", bytes.NewReader(body))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec
	}

	t.Run("confirms pending payment end to end", func(t *testing.T) {
		srv, payUC, handoff := newTestServer(
			map[string]string{"yookassa_secret_key": secret},
			map[string]*model.PaymentMetadata{"abc123": validMeta()},
		)
		body := makeBody("abc123", "400.00")

		rec := post(srv, body, yookassaAuth(secret, body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		calls := payUC.completeCalls()
		if len(calls) != 1 {
			t.Fatalf("complete calls = %d, want 1", len(calls))
		}
		if calls[0].paymentID != "abc123" || calls[0].amount != 400.00 || calls[0].currency != "RUB" || calls[0].method != "YooKassa" {
			t.Fatalf("unexpected completion call: %+v", calls[0])
		}
		if handoff.count() != 1 {
			t.Fatalf("handoff count = %d, want 1", handoff.count())
		}
	})

	t.Run("duplicate notification is acked without second handoff", func(t *testing.T) {
		srv, payUC, handoff := newTestServer(
			map[string]string{"yookassa_secret_key": secret},
			map[string]*model.PaymentMetadata{"abc123": validMeta()},
		)
		body := makeBody("abc123", "400.00")
		auth := yookassaAuth(secret, body)

		first := post(srv, body, auth)
		second := post(srv, body, auth)
		if first.Code != http.StatusOK || second.Code != http.StatusOK {
			t.Fatalf("statuses = %d, %d, want 200, 200", first.Code, second.Code)
		}
		if got := len(payUC.completeCalls()); got != 2 {
			t.Fatalf("complete calls = %d, want 2", got)
		}
		if handoff.count() != 1 {
			t.Fatalf("handoff count = %d, want exactly 1", handoff.count())
		}
	})

	t.Run("tampered body never reaches the ledger", func(t *testing.T) {
		srv, payUC, _ := newTestServer(
			map[string]string{"yookassa_secret_key": secret},
			map[string]*model.PaymentMetadata{"abc123": validMeta()},
		)
		body := makeBody("abc123", "400.00")
		auth := yookassaAuth(secret, body)
		tampered := makeBody("abc123", "1.00")

		rec := post(srv, tampered, auth)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		if got := len(payUC.completeCalls()); got != 0 {
			t.Fatalf("ledger was touched %d times on a tampered request", got)
		}
	})

	t.Run("missing authorization header", func(t *testing.T) {
		srv, _, _ := newTestServer(map[string]string{"yookassa_secret_key": secret}, nil)
		rec := post(srv, makeBody("abc123", "400.00"), "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("unconfigured secret rejects everything", func(t *testing.T) {
		srv, _, _ := newTestServer(map[string]string{}, nil)
		body := makeBody("abc123", "400.00")
		rec := post(srv, body, yookassaAuth("whatever", body))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("non-success event is acked untouched", func(t *testing.T) {
		srv, payUC, handoff := newTestServer(map[string]string{"yookassa_secret_key": secret}, nil)
		b, _ := json.Marshal(map[string]any{"event": "payment.canceled", "object": map[string]any{}})
		rec := post(srv, b, yookassaAuth(secret, b))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(payUC.completeCalls()) != 0 || handoff.count() != 0 {
			t.Fatal("non-success event must have no side effects")
		}
	})

	t.Run("event without payment_id is acked", func(t *testing.T) {
		srv, payUC, _ := newTestServer(map[string]string{"yookassa_secret_key": secret}, nil)
		b, _ := json.Marshal(map[string]any{
			"event": "payment.succeeded",
			"object": map[string]any{
				"id":     "provider-2",
				"amount": map[string]string{"value": "10.00", "currency": "RUB"},
			},
		})
		rec := post(srv, b, yookassaAuth(secret, b))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(payUC.completeCalls()) != 0 {
			t.Fatal("no correlation id, ledger must stay untouched")
		}
	})
}

func TestCryptoBotWebhook(t *testing.T) {
	post := func(srv *Server, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/cryptobot-webhook", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec
	}

	t.Run("paid invoice goes straight to fulfillment", func(t *testing.T) {
		srv, payUC, handoff := newTestServer(nil, nil)
		body := `{"update_type":"invoice_paid","payload":{"invoice_id":9,"status":"paid","payload":"42:3:400:buy:0:demo:7:None:CryptoBot"}}`

		rec := post(srv, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if handoff.count() != 1 {
			t.Fatalf("handoff count = %d, want 1", handoff.count())
		}
		meta := handoff.scheduled[0]
		if meta.UserID != 42 || meta.Months != 3 || meta.Price != 400 || meta.HostName != "demo" || meta.PlanID != 7 {
			t.Fatalf("unexpected metadata: %+v", meta)
		}
		if meta.CustomerEmail != nil {
			t.Fatalf("email = %v, want nil for None", *meta.CustomerEmail)
		}
		// Embedded metadata path must not touch the ledger.
		if len(payUC.completeCalls()) != 0 {
			t.Fatal("cryptobot confirmation must not call the ledger")
		}
	})

	t.Run("truncated payload is rejected", func(t *testing.T) {
		srv, _, handoff := newTestServer(nil, nil)
		body := `{"update_type":"invoice_paid","payload":{"invoice_id":9,"status":"paid","payload":"42:3:400:buy:0:demo:7:None"}}`

		rec := post(srv, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if handoff.count() != 0 {
			t.Fatal("rejected payload must not be fulfilled")
		}
	})

	t.Run("other update types are acked", func(t *testing.T) {
		srv, _, handoff := newTestServer(nil, nil)
		rec := post(srv, `{"update_type":"invoice_expired","payload":{}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if handoff.count() != 0 {
			t.Fatal("expired invoice must not be fulfilled")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		srv, _, _ := newTestServer(nil, nil)
		rec := post(srv, `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHeleketWebhook(t *testing.T) {
	const apiKey = "heleket-key"

	post := func(srv *Server, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/heleket-webhook", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec
	}

	signedBody := func(t *testing.T, fields map[string]any) []byte {
		t.Helper()
		sign, err := payment.HeleketSign(fields, apiKey)
		if err != nil {
			t.Fatalf("HeleketSign: %v", err)
		}
		fields["sign"] = sign
		b, _ := json.Marshal(fields)
		return b
	}

	metaJSON, _ := json.Marshal(validMeta())

	t.Run("paid callback is fulfilled", func(t *testing.T) {
		srv, _, handoff := newTestServer(map[string]string{"heleket_api_key": apiKey}, nil)
		body := signedBody(t, map[string]any{
			"status":      "paid",
			"description": string(metaJSON),
		})

		rec := post(srv, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if handoff.count() != 1 {
			t.Fatalf("handoff count = %d, want 1", handoff.count())
		}
		if handoff.scheduled[0].UserID != 42 {
			t.Fatalf("unexpected metadata: %+v", handoff.scheduled[0])
		}
	})

	t.Run("paid_over counts as paid", func(t *testing.T) {
		srv, _, handoff := newTestServer(map[string]string{"heleket_api_key": apiKey}, nil)
		body := signedBody(t, map[string]any{
			"status":      "paid_over",
			"description": string(metaJSON),
		})
		if rec := post(srv, body); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if handoff.count() != 1 {
			t.Fatalf("handoff count = %d, want 1", handoff.count())
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		srv, _, handoff := newTestServer(map[string]string{"heleket_api_key": apiKey}, nil)
		b, _ := json.Marshal(map[string]any{
			"status":      "paid",
			"description": string(metaJSON),
			"sign":        "deadbeef",
		})
		rec := post(srv, b)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		if handoff.count() != 0 {
			t.Fatal("forged callback must not be fulfilled")
		}
	})

	t.Run("missing sign field", func(t *testing.T) {
		srv, _, _ := newTestServer(map[string]string{"heleket_api_key": apiKey}, nil)
		b, _ := json.Marshal(map[string]any{"status": "paid"})
		if rec := post(srv, b); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("paid callback without description", func(t *testing.T) {
		srv, _, _ := newTestServer(map[string]string{"heleket_api_key": apiKey}, nil)
		body := signedBody(t, map[string]any{"status": "paid"})
		if rec := post(srv, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unconfigured api key", func(t *testing.T) {
		srv, _, _ := newTestServer(map[string]string{}, nil)
		b, _ := json.Marshal(map[string]any{"status": "paid", "sign": "x"})
		if rec := post(srv, b); rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("non-final status is acked", func(t *testing.T) {
		srv, _, handoff := newTestServer(map[string]string{"heleket_api_key": apiKey}, nil)
		body := signedBody(t, map[string]any{"status": "process"})
		if rec := post(srv, body); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if handoff.count() != 0 {
			t.Fatal("in-progress callback must not be fulfilled")
		}
	})
}

func TestTONWebhook(t *testing.T) {
	post := func(srv *Server, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ton-webhook", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec
	}

	t.Run("transfer comment resolves the pending payment", func(t *testing.T) {
		srv, payUC, handoff := newTestServer(nil, map[string]*model.PaymentMetadata{"ton-xyz": validMeta()})
		body := `{"tx_id":"t1","account_id":"acc","txs":[{"in_msg":{"decoded_comment":"ton-xyz","value":5000000000}}]}`

		rec := post(srv, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		calls := payUC.completeCalls()
		if len(calls) != 1 {
			t.Fatalf("complete calls = %d, want 1", len(calls))
		}
		if calls[0].paymentID != "ton-xyz" || calls[0].amount != 5.0 || calls[0].currency != "TON" {
			t.Fatalf("unexpected completion call: %+v", calls[0])
		}
		if handoff.count() != 1 {
			t.Fatalf("handoff count = %d, want 1", handoff.count())
		}
	})

	t.Run("in-progress transfers are scanned too", func(t *testing.T) {
		srv, payUC, _ := newTestServer(nil, map[string]*model.PaymentMetadata{"ton-abc": validMeta()})
		body := `{"tx_id":"t2","in_progress_txs":[{"in_msg":{"decoded_comment":"ton-abc","value":1000000000}}],"txs":[]}`

		if rec := post(srv, body); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		calls := payUC.completeCalls()
		if len(calls) != 1 || calls[0].amount != 1.0 {
			t.Fatalf("unexpected calls: %+v", calls)
		}
	})

	t.Run("transfers without comments are skipped", func(t *testing.T) {
		srv, payUC, _ := newTestServer(nil, nil)
		body := `{"tx_id":"t3","txs":[{"in_msg":{"value":5000000000}},{"in_msg":null},{}]}`
		if rec := post(srv, body); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(payUC.completeCalls()) != 0 {
			t.Fatal("uncommented transfers must not reach the ledger")
		}
	})

	t.Run("event without tx_id is acked", func(t *testing.T) {
		srv, payUC, _ := newTestServer(nil, nil)
		if rec := post(srv, `{"txs":[]}`); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if len(payUC.completeCalls()) != 0 {
			t.Fatal("no ledger activity expected")
		}
	})
}

type panickySettings struct{}

func (panickySettings) Get(context.Context, string) (string, error) { panic("settings store blew up") }
func (panickySettings) Set(context.Context, string, string) error   { return nil }
func (panickySettings) All(context.Context) (map[string]string, error) {
	return nil, nil
}

func TestHandlerPanicBecomes500(t *testing.T) {
	srv := NewServer(panickySettings{}, &mockPaymentUC{}, &mockHandoff{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/yookassa-webhook", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 from the recoverer", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
