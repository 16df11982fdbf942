// Package web serves the admin API: operator login, ledger browsing, shop
// catalog management and runtime settings.
package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain/ports/repository"
	redisinfra "telegram-vpn-shop/internal/infra/redis"
	"telegram-vpn-shop/internal/usecase"
)

// Login attempts allowed per remote address before the limiter kicks in.
const (
	loginAttemptLimit  = 5
	loginAttemptWindow = 10 * time.Minute
)

type Server struct {
	auth     *AuthManager
	limiter  *redisinfra.RateLimiter
	settings repository.SettingsRepository
	users    repository.UserRepository
	hosts    repository.HostRepository
	plans    repository.PlanRepository
	payUC    usecase.PaymentUseCase
	statsUC  usecase.StatsUseCase
	log      *zerolog.Logger
}

func NewServer(
	auth *AuthManager,
	limiter *redisinfra.RateLimiter,
	settings repository.SettingsRepository,
	users repository.UserRepository,
	hosts repository.HostRepository,
	plans repository.PlanRepository,
	payUC usecase.PaymentUseCase,
	statsUC usecase.StatsUseCase,
	logger *zerolog.Logger,
) *Server {
	webLog := logger.With().Str("component", "AdminWeb").Logger()
	return &Server{
		auth:     auth,
		limiter:  limiter,
		settings: settings,
		users:    users,
		hosts:    hosts,
		plans:    plans,
		payUC:    payUC,
		statsUC:  statsUC,
		log:      &webLog,
	}
}

// Router wires the admin API. Everything under /api/v1 except login requires
// a valid session.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/v1/login", s.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireSession)

		pr.Post("/api/v1/logout", s.handleLogout)
		pr.Get("/api/v1/stats", s.handleStats)
		pr.Get("/api/v1/transactions", s.handleTransactions)

		pr.Get("/api/v1/users", s.handleUsersList)
		pr.Post("/api/v1/users/{id}/ban", s.handleUserBan(true))
		pr.Post("/api/v1/users/{id}/unban", s.handleUserBan(false))

		pr.Get("/api/v1/hosts", s.handleHostsList)
		pr.Post("/api/v1/hosts", s.handleHostUpsert)
		pr.Delete("/api/v1/hosts/{name}", s.handleHostDelete)

		pr.Get("/api/v1/plans", s.handlePlansList)
		pr.Post("/api/v1/plans", s.handlePlanCreate)
		pr.Delete("/api/v1/plans/{id}", s.handlePlanDelete)

		pr.Get("/api/v1/settings", s.handleSettingsGet)
		pr.Put("/api/v1/settings", s.handleSettingsUpdate)
	})

	return r
}

func (s *Server) Serve(port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("admin server listening")
	return srv.ListenAndServe()
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.Verify(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
