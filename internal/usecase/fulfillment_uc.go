// File: internal/usecase/fulfillment_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/adapter"
	"telegram-vpn-shop/internal/infra/metrics"
)

// TaskScheduler is the cross-goroutine scheduling primitive the handoff runs
// on (the fulfillment worker pool in production).
type TaskScheduler interface {
	Submit(task func(ctx context.Context) error) error
	Running() bool
}

// Compile-time check
var _ FulfillmentHandoff = (*fulfillmentHandoff)(nil)

// FulfillmentHandoff schedules delivery of a confirmed payment's metadata to
// the fulfillment collaborator. Schedule never blocks on delivery; the webhook
// response goes out before the purchased key is provisioned. A scheduling
// failure is returned to the caller and counted, but it must never unwind the
// ledger: the payment stays paid and the drop is reconciled manually.
type FulfillmentHandoff interface {
	Schedule(meta *model.PaymentMetadata) error
}

type fulfillmentHandoff struct {
	scheduler TaskScheduler
	deliverer adapter.Deliverer
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewFulfillmentHandoff(scheduler TaskScheduler, deliverer adapter.Deliverer, logger *zerolog.Logger) *fulfillmentHandoff {
	hLog := logger.With().Str("component", "FulfillmentHandoff").Logger()
	return &fulfillmentHandoff{
		scheduler: scheduler,
		deliverer: deliverer,
		timeout:   2 * time.Minute,
		log:       &hLog,
	}
}

func (h *fulfillmentHandoff) Schedule(meta *model.PaymentMetadata) error {
	if err := meta.Validate(); err != nil {
		metrics.IncFulfillmentHandoff("dropped")
		return err
	}
	if !h.scheduler.Running() {
		metrics.IncFulfillmentHandoff("dropped")
		h.log.Error().Int64("user_id", meta.UserID).Str("host", meta.HostName).
			Msg("fulfillment queue is not running; payment stays paid, manual follow-up required")
		return domain.ErrNotRunning
	}

	m := *meta // the request-scoped value must not outlive the handler
	err := h.scheduler.Submit(func(ctx context.Context) error {
		dctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if err := h.deliverer.Deliver(dctx, &m); err != nil {
			metrics.IncFulfillmentHandoff("failed")
			h.log.Error().Err(err).Int64("user_id", m.UserID).Msg("fulfillment delivery failed")
			return err
		}
		metrics.IncFulfillmentHandoff("delivered")
		return nil
	})
	if err != nil {
		metrics.IncFulfillmentHandoff("dropped")
		h.log.Error().Err(err).Int64("user_id", meta.UserID).
			Msg("could not schedule fulfillment; payment stays paid, manual follow-up required")
		return err
	}
	metrics.IncFulfillmentHandoff("scheduled")
	return nil
}
