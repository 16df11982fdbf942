package webhook

import (
	"encoding/json"
	"net/http"

	"telegram-vpn-shop/internal/infra/logging"
	"telegram-vpn-shop/internal/infra/metrics"
)

// tonTransferMsg is the inbound message attached to an account transaction as
// reported by the indexer.
type tonTransferMsg struct {
	DecodedComment string `json:"decoded_comment"`
	Value          int64  `json:"value"`
}

type tonTransaction struct {
	InMsg *tonTransferMsg `json:"in_msg"`
}

// tonNotification is the account-event envelope. Transfers may first appear
// in in_progress_txs and only later in txs, so both lists are scanned.
type tonNotification struct {
	TxID          string           `json:"tx_id"`
	AccountID     string           `json:"account_id"`
	InProgressTxs []tonTransaction `json:"in_progress_txs"`
	Txs           []tonTransaction `json:"txs"`
}

// handleTON correlates on-chain TON transfers with pending transactions via
// the transfer comment. There is nothing to verify cryptographically here;
// correlation through an unguessable payment identifier plus the one-shot
// ledger transition is the protection.
func (s *Server) handleTON(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithProvider(r.Context(), "ton")
	log := logging.With(ctx, s.log)

	var event tonNotification
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		metrics.IncWebhook("ton", "malformed")
		reject(w, http.StatusBadRequest)
		return
	}

	if event.TxID == "" {
		log.Debug().Msg("ton event without tx_id, nothing to do")
		metrics.IncWebhook("ton", "ignored")
		ack(w)
		return
	}

	matched := 0
	for _, tx := range append(event.InProgressTxs, event.Txs...) {
		if tx.InMsg == nil || tx.InMsg.DecodedComment == "" {
			continue
		}
		txCtx := logging.WithPaymentID(ctx, tx.InMsg.DecodedComment)
		txLog := logging.With(txCtx, s.log)

		meta, err := s.payments.CompleteTON(txCtx, tx.InMsg.DecodedComment, tx.InMsg.Value)
		if err != nil {
			txLog.Error().Err(err).Msg("ton completion failed")
			metrics.IncWebhook("ton", "error")
			reject(w, http.StatusInternalServerError)
			return
		}
		if meta == nil {
			continue
		}
		matched++
		if err := s.handoff.Schedule(meta); err != nil {
			txLog.Error().Err(err).Msg("fulfillment handoff refused ton payment")
		}
	}

	if matched == 0 {
		metrics.IncWebhook("ton", "no_match")
	} else {
		metrics.IncWebhook("ton", "ok")
	}
	ack(w)
}
