package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/infra/logging"
	"telegram-vpn-shop/internal/infra/metrics"
	"telegram-vpn-shop/internal/infra/payment"
)

// handleHeleket processes Heleket payment callbacks. The body is decoded as a
// generic map because the signature covers every field the merchant API sent;
// the order metadata rides embedded in the description field as JSON.
func (s *Server) handleHeleket(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithProvider(r.Context(), "heleket")
	log := logging.With(ctx, s.log)

	apiKey, err := s.settings.Get(ctx, "heleket_api_key")
	if err != nil || apiKey == "" {
		log.Error().Err(err).Msg("heleket api key unavailable, cannot verify callbacks")
		metrics.IncWebhook("heleket", "error")
		reject(w, http.StatusInternalServerError)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.IncWebhook("heleket", "error")
		reject(w, http.StatusInternalServerError)
		return
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		metrics.IncWebhook("heleket", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	sign, _ := body["sign"].(string)
	if sign == "" {
		log.Warn().Msg("heleket callback without sign field")
		metrics.IncWebhook("heleket", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}
	delete(body, "sign")

	if !payment.VerifyHeleketSignature(body, apiKey, sign) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("heleket signature mismatch")
		metrics.IncWebhook("heleket", "forbidden")
		reject(w, http.StatusForbidden)
		return
	}

	status, _ := body["status"].(string)
	if status != "paid" && status != "paid_over" {
		log.Debug().Str("status", status).Msg("ignoring non-final heleket status")
		metrics.IncWebhook("heleket", "ignored")
		ack(w)
		return
	}

	desc, _ := body["description"].(string)
	if desc == "" {
		log.Warn().Msg("paid heleket callback carries no description, cannot recover order")
		metrics.IncWebhook("heleket", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	var meta model.PaymentMetadata
	if err := json.Unmarshal([]byte(desc), &meta); err != nil {
		log.Error().Err(err).Msg("undecodable heleket order description")
		metrics.IncWebhook("heleket", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}
	if err := meta.Validate(); err != nil {
		log.Error().Err(err).Msg("heleket order description failed validation")
		metrics.IncWebhook("heleket", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	notification := &model.PaymentNotification{
		Amount:   meta.Price,
		Method:   "Heleket",
		Metadata: &meta,
	}
	if _, err := s.resolve(ctx, notification); err != nil {
		metrics.IncWebhook("heleket", "error")
		reject(w, http.StatusInternalServerError)
		return
	}
	metrics.IncWebhook("heleket", "ok")
	ack(w)
}
