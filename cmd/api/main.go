package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zaryo/zaryo-backend/internal/api"
	"github.com/zaryo/zaryo-backend/internal/api/handlers"
	"github.com/zaryo/zaryo-backend/internal/auth"
	"github.com/zaryo/zaryo-backend/internal/config"
	"github.com/zaryo/zaryo-backend/internal/db"
	"github.com/zaryo/zaryo-backend/internal/logger"
	"github.com/zaryo/zaryo-backend/internal/metrics"
	"github.com/zaryo/zaryo-backend/internal/middleware"
	"github.com/zaryo/zaryo-backend/internal/repository/postgres"
	"github.com/zaryo/zaryo-backend/internal/services"
	"github.com/zaryo/zaryo-backend/internal/worker"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer,
		15*time.Minute, 7*24*time.Hour)

	userSvc := services.NewUserService(repos.Users, repos.Accounts, tm)
	ledgerSvc := services.NewLedgerService(repos.Ledger, repos.Accounts, log)
	checkoutSvc := services.NewCheckoutService(repos.PurchaseOrders, repos.Products, repos.AuditLogs, wp, log)
	redemptionSvc := services.NewRedemptionService(repos.Redemptions, repos.Accounts, repos.AuditLogs, wp, log)

	r := api.NewRouter(api.Deps{
		Cfg:         cfg,
		Auth:        handlers.NewAuthHandler(userSvc),
		Accounts:    handlers.NewAccountsHandler(ledgerSvc),
		Checkout:    handlers.NewCheckoutHandler(checkoutSvc),
		Redemptions: handlers.NewRedemptionsHandler(redemptionSvc),
		Webhook:     handlers.NewWebhookHandler(ledgerSvc, cfg.WebhookSecret, cfg.TokensPerDollar, log),
		AuthMW:      middleware.NewAuthMiddleware(tm),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
