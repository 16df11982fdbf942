package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/infra/logging"
	"telegram-vpn-shop/internal/infra/metrics"
)

// cryptoBotUpdate mirrors the Crypto Pay webhook envelope.
type cryptoBotUpdate struct {
	UpdateType string `json:"update_type"`
	Payload    struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
		Payload   string `json:"payload"`
	} `json:"payload"`
}

// Crypto Pay invoices round-trip order details through an opaque payload
// string we set at invoice creation. The format is nine colon-separated
// fields:
//
//	user_id:months:price:action:key_id:host_name:plan_id:customer_email:payment_method
//
// The literal "None" in the email slot means no email was collected.

// EncodeCryptoPayPayload serializes order metadata for invoice creation.
func EncodeCryptoPayPayload(meta *model.PaymentMetadata) string {
	email := "None"
	if meta.CustomerEmail != nil && *meta.CustomerEmail != "" {
		email = *meta.CustomerEmail
	}
	return strings.Join([]string{
		strconv.FormatInt(meta.UserID, 10),
		strconv.Itoa(meta.Months),
		strconv.FormatFloat(meta.Price, 'f', -1, 64),
		meta.Action,
		strconv.FormatInt(meta.KeyID, 10),
		meta.HostName,
		strconv.FormatInt(meta.PlanID, 10),
		email,
		meta.PaymentMethod,
	}, ":")
}

// ParseCryptoPayPayload decodes an invoice payload back into order metadata.
// Trailing extra fields are tolerated; fewer than nine are not.
func ParseCryptoPayPayload(payload string) (*model.PaymentMetadata, error) {
	parts := strings.Split(payload, ":")
	if len(parts) < 9 {
		return nil, fmt.Errorf("%w: crypto pay payload has %d fields, want 9", domain.ErrMalformedPayload, len(parts))
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: user_id %q", domain.ErrMalformedPayload, parts[0])
	}
	months, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: months %q", domain.ErrMalformedPayload, parts[1])
	}
	price, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", domain.ErrMalformedPayload, parts[2])
	}
	keyID, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: key_id %q", domain.ErrMalformedPayload, parts[4])
	}
	planID, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: plan_id %q", domain.ErrMalformedPayload, parts[6])
	}

	meta := &model.PaymentMetadata{
		UserID:        userID,
		Months:        months,
		Price:         price,
		Action:        parts[3],
		KeyID:         keyID,
		HostName:      parts[5],
		PlanID:        planID,
		PaymentMethod: parts[8],
	}
	if parts[7] != "None" && parts[7] != "" {
		email := parts[7]
		meta.CustomerEmail = &email
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// handleCryptoBot processes Crypto Pay invoice updates. The endpoint trusts
// transport-level protection; the order metadata travels embedded in the
// invoice payload, so paid invoices go straight to fulfillment.
func (s *Server) handleCryptoBot(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithProvider(r.Context(), "cryptobot")
	log := logging.With(ctx, s.log)

	var update cryptoBotUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		metrics.IncWebhook("cryptobot", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	if update.UpdateType != "invoice_paid" {
		log.Debug().Str("update_type", update.UpdateType).Msg("ignoring cryptobot update")
		metrics.IncWebhook("cryptobot", "ignored")
		ack(w)
		return
	}

	if update.Payload.Payload == "" {
		log.Warn().Int64("invoice_id", update.Payload.InvoiceID).Msg("paid cryptobot invoice carries no payload, skipping")
		metrics.IncWebhook("cryptobot", "no_correlation")
		ack(w)
		return
	}

	meta, err := ParseCryptoPayPayload(update.Payload.Payload)
	if err != nil {
		log.Error().Err(err).Int64("invoice_id", update.Payload.InvoiceID).Msg("undecodable cryptobot payload")
		metrics.IncWebhook("cryptobot", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	notification := &model.PaymentNotification{
		Amount:   meta.Price,
		Method:   "CryptoBot",
		Metadata: meta,
	}
	if _, err := s.resolve(ctx, notification); err != nil {
		metrics.IncWebhook("cryptobot", "error")
		reject(w, http.StatusInternalServerError)
		return
	}
	metrics.IncWebhook("cryptobot", "ok")
	ack(w)
}
