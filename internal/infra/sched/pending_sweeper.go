// Package sched hosts the periodic background workers.
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/infra/metrics"
	"telegram-vpn-shop/internal/usecase"
)

// PendingSweeper periodically fails pending transactions whose payment never
// arrived, so abandoned checkouts do not sit in the ledger forever.
type PendingSweeper struct {
	interval time.Duration
	maxAge   time.Duration
	payUC    usecase.PaymentUseCase
	log      *zerolog.Logger
}

func NewPendingSweeper(interval, maxAge time.Duration, payUC usecase.PaymentUseCase, logger *zerolog.Logger) *PendingSweeper {
	swLog := logger.With().Str("component", "PendingSweeper").Logger()
	return &PendingSweeper{
		interval: interval,
		maxAge:   maxAge,
		payUC:    payUC,
		log:      &swLog,
	}
}

func (w *PendingSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("max_age", w.maxAge).Msg("Starting pending sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pending sweeper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.payUC.SweepExpired(ctx, w.maxAge)
			if err != nil {
				w.log.Error().Err(err).Msg("pending sweep error")
			}
			if n > 0 {
				metrics.AddPaymentsExpired(n)
				w.log.Info().Int("count", n).Msg("stale pending transactions failed")
			}
		}
	}
}
