// Package webhook hosts the provider notification endpoints. Every handler
// follows the same shape: authenticate, normalize, transition the ledger,
// schedule fulfillment, acknowledge. Verification always happens before any
// ledger access, and the HTTP response never waits for delivery.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
	"telegram-vpn-shop/internal/infra/logging"
	"telegram-vpn-shop/internal/infra/metrics"
	"telegram-vpn-shop/internal/usecase"
)

type Server struct {
	settings repository.SettingsRepository
	payments usecase.PaymentUseCase
	handoff  usecase.FulfillmentHandoff
	log      *zerolog.Logger
}

func NewServer(
	settings repository.SettingsRepository,
	payments usecase.PaymentUseCase,
	handoff usecase.FulfillmentHandoff,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebhookServer").Logger()
	return &Server{
		settings: settings,
		payments: payments,
		handoff:  handoff,
		log:      &srvLog,
	}
}

// Router builds the webhook mux. The payment endpoints are unauthenticated at
// the HTTP layer; each handler does its own provider-specific verification.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/yookassa-webhook", s.timed("yookassa", s.handleYooKassa))
	r.Post("/cryptobot-webhook", s.timed("cryptobot", s.handleCryptoBot))
	r.Post("/heleket-webhook", s.timed("heleket", s.handleHeleket))
	r.Post("/ton-webhook", s.timed("ton", s.handleTON))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (s *Server) Serve(port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("webhook server listening")
	return srv.ListenAndServe()
}

func (s *Server) timed(provider string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		metrics.ObserveWebhookLatency(provider, float64(time.Since(start).Milliseconds()))
	}
}

// resolve routes a normalized notification to fulfillment. Embedded metadata
// (Metadata non-nil, already validated) is handed off directly; referenced
// metadata is recovered from the pending transaction through the one-shot
// ledger transition. Reports whether fulfillment was scheduled.
func (s *Server) resolve(ctx context.Context, n *model.PaymentNotification) (bool, error) {
	log := logging.With(ctx, s.log)

	meta := n.Metadata
	if meta == nil {
		var err error
		meta, err = s.payments.CompleteIfPending(ctx, n.PaymentID, n.Amount, n.Currency, n.Method)
		if err != nil {
			return false, err
		}
		if meta == nil {
			return false, nil
		}
	}

	if err := s.handoff.Schedule(meta); err != nil {
		// Payment stays paid; the drop is logged and counted by the handoff.
		log.Error().Err(err).Str("method", n.Method).Msg("fulfillment handoff refused confirmed payment")
	}
	return true, nil
}

// Providers expect a bare body; 2xx stops their retry loop.
func ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func reject(w http.ResponseWriter, code int) {
	var body string
	switch code {
	case http.StatusForbidden:
		body = "Forbidden"
	default:
		body = "Error"
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
