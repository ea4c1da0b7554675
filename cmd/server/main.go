// Package main is the entry point for the stockledger API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/config"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/auth_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stockledger server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.ConnectionString())
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}
	if cfg.DB.MinConns > 0 {
		poolCfg.MinConns = cfg.DB.MinConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Ledger service ---
	detailRepo := ledger_repo.NewDetailRepo(txManager)
	movementRepo := ledger_repo.NewMovementRepo(txManager)
	batchRepo := ledger_repo.NewBatchRepo(txManager)
	trackingRepo := ledger_repo.NewTrackingRepo(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// Negative-stock policy: strict unless a configured rule matches
	var policy ledger.StockPolicy = ledger.StrictStockPolicy{}
	if len(cfg.Policy.AllowNegativeRules) > 0 {
		rulePolicy, err := ledger.NewRuleStockPolicy(cfg.Policy.AllowNegativeRules)
		if err != nil {
			log.Fatalw("failed to compile stock policy rules", "error", err)
		}
		policy = rulePolicy
		log.Infow("negative stock rules loaded", "count", len(cfg.Policy.AllowNegativeRules))
	}

	ledgerService := ledger.NewService(
		detailRepo,
		movementRepo,
		batchRepo,
		trackingRepo,
		policy,
		auditService,
		txManager,
	)

	// --- Auth ---
	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	credentialRepo := auth_repo.NewCredentialRepo(txManager)
	authService := auth.NewService(credentialRepo, jwtService)

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if cfg.Auth.IdempotencyEnabled {
		idempotencyStore = postgres.NewIdempotencyStore(txManager, cfg.Auth.IdempotencyTTL)
		log.Infow("idempotency enabled", "ttl", cfg.Auth.IdempotencyTTL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		Logger:           log,
		TokenValidator:   jwtService,
		AuthService:      authService,
		LedgerService:    ledgerService,
		Movements:        movementRepo,
		Audit:            auditService,
		IdempotencyStore: idempotencyStore,
	})

	// --- HTTP server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
