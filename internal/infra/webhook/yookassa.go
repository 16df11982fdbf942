package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/infra/logging"
	"telegram-vpn-shop/internal/infra/metrics"
	"telegram-vpn-shop/internal/infra/payment"
)

// yookassaEvent is the subset of the YooKassa notification body we act on.
type yookassaEvent struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Amount struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Metadata map[string]string `json:"metadata"`
	} `json:"object"`
}

// handleYooKassa authenticates the notification with an HMAC over the raw
// body, then resolves the referenced pending transaction. The signature check
// runs before the body is even parsed; a tampered request never reaches the
// ledger.
func (s *Server) handleYooKassa(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithProvider(r.Context(), "yookassa")
	log := logging.With(ctx, s.log)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.IncWebhook("yookassa", "error")
		reject(w, http.StatusInternalServerError)
		return
	}

	secret, err := s.settings.Get(ctx, "yookassa_secret_key")
	if err != nil || secret == "" {
		log.Error().Err(err).Msg("yookassa secret key unavailable, rejecting notification")
		metrics.IncWebhook("yookassa", "forbidden")
		reject(w, http.StatusForbidden)
		return
	}

	if !payment.VerifyYooKassaSignature(secret, raw, r.Header.Get("Authorization")) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("yookassa signature mismatch")
		metrics.IncWebhook("yookassa", "forbidden")
		reject(w, http.StatusForbidden)
		return
	}

	var event yookassaEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		metrics.IncWebhook("yookassa", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	if event.Event != "payment.succeeded" {
		log.Debug().Str("event", event.Event).Msg("ignoring non-success yookassa event")
		metrics.IncWebhook("yookassa", "ignored")
		ack(w)
		return
	}

	paymentID := event.Object.Metadata["payment_id"]
	if paymentID == "" {
		log.Warn().Str("provider_id", event.Object.ID).Msg("yookassa event carries no payment_id, skipping")
		metrics.IncWebhook("yookassa", "no_correlation")
		ack(w)
		return
	}
	ctx = logging.WithPaymentID(ctx, paymentID)
	log = logging.With(ctx, s.log)

	amount, err := strconv.ParseFloat(event.Object.Amount.Value, 64)
	if err != nil {
		metrics.IncWebhook("yookassa", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	notification := &model.PaymentNotification{
		PaymentID: paymentID,
		Amount:    amount,
		Currency:  event.Object.Amount.Currency,
		Method:    "YooKassa",
	}
	scheduled, err := s.resolve(ctx, notification)
	if err != nil {
		log.Error().Err(err).Msg("yookassa completion failed")
		metrics.IncWebhook("yookassa", "error")
		reject(w, http.StatusInternalServerError)
		return
	}
	if !scheduled {
		// Already paid, already failed, or unknown. Either way the provider
		// must not retry.
		log.Warn().Msg("no pending transaction matched yookassa notification")
		metrics.IncWebhook("yookassa", "no_match")
		ack(w)
		return
	}

	metrics.IncWebhook("yookassa", "ok")
	ack(w)
}
