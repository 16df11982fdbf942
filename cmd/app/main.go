// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telegram-vpn-shop/internal/config"
	pg "telegram-vpn-shop/internal/infra/db/postgres"
	"telegram-vpn-shop/internal/infra/logging"
	"telegram-vpn-shop/internal/infra/metrics"
	red "telegram-vpn-shop/internal/infra/redis"
	"telegram-vpn-shop/internal/infra/sched"
	"telegram-vpn-shop/internal/infra/security"
	tele "telegram-vpn-shop/internal/infra/telegram"
	"telegram-vpn-shop/internal/infra/web"
	"telegram-vpn-shop/internal/infra/webhook"
	"telegram-vpn-shop/internal/infra/worker"
	"telegram-vpn-shop/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	logger.Info().Str("dsn", logging.Redact(cfg.Database.URL, cfg.Runtime.Dev)).Msg("connecting to postgres")
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Encryption ----
	var encSvc *security.EncryptionService
	if cfg.Security.EncryptionKey != "" {
		encSvc, err = security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption init failed")
		}
	} else {
		logger.Warn().Msg("security.encryption_key not set; settings secrets stored in plaintext")
	}

	// ---- Repositories ----
	settingsRepo := pg.NewSettingsRepoCacheDecorator(pg.NewSettingsRepo(pool, encSvc), redisClient, cfg.Redis.TTL)
	userRepo := pg.NewUserRepo(pool)
	hostRepo := pg.NewHostRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	txRepo := pg.NewTransactionRepo(pool)

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(txRepo, pg.NewTxManager(pool), logger)
	statsUC := usecase.NewStatsUseCase(userRepo, txRepo, hostRepo, logger)

	// ---- Fulfillment queue ----
	deliverer, err := tele.NewBotNotifier(cfg.Bot, userRepo, planRepo, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}
	queue := worker.NewPool(cfg.Payment.QueueWorkers, cfg.Payment.QueueDepth, logger)
	queue.Start(ctx)
	defer queue.Stop()
	handoff := usecase.NewFulfillmentHandoff(queue, deliverer, logger)

	// ---- Webhook server ----
	webhookSrv := webhook.NewServer(settingsRepo, paymentUC, handoff, logger)
	go func() {
		if err := webhookSrv.Serve(cfg.Webhook.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("webhook server stopped")
		}
	}()

	// ---- Admin server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SecureCookie, cfg.Admin.CookieDomain, cfg.Admin.SessionTTL)
	adminSrv := web.NewServer(auth, rateLimiter, settingsRepo, userRepo, hostRepo, planRepo, paymentUC, statsUC, logger)
	go func() {
		if err := adminSrv.Serve(cfg.Admin.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	// ---- Pending sweeper ----
	sweeper := sched.NewPendingSweeper(cfg.Payment.SweepInterval, cfg.Payment.PendingTTL, paymentUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
