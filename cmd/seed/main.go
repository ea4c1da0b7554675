// Package main provides a CLI tool for seeding the database with module
// credentials and optional demo ledger data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/auth_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	if err := seedCredentials(ctx, txManager, log); err != nil {
		log.Fatalw("failed to seed module credentials", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoLedger(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo ledger data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedCredentials issues API keys for the standard set of owning
// modules. Plaintext keys are printed once and never stored.
func seedCredentials(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(os.Getenv("JWT_SECRET")))
	credentialRepo := auth_repo.NewCredentialRepo(txManager)
	authService := auth.NewService(credentialRepo, jwtService)

	modules := []struct {
		name   string
		scopes []string
	}{
		{"sales", []string{auth.ScopeLedgerWrite}},
		{"goods-received", []string{auth.ScopeLedgerWrite}},
		{"transfers", []string{auth.ScopeLedgerWrite}},
		{"production", []string{auth.ScopeLedgerWrite}},
		{"adjustments", []string{auth.ScopeLedgerWrite, auth.ScopeLedgerAdmin}},
		{"reporting", []string{auth.ScopeLedgerRead}},
	}

	for _, m := range modules {
		key, err := authService.IssueKey(ctx, m.name, m.scopes)
		if err != nil {
			return fmt.Errorf("issue key for %s: %w", m.name, err)
		}
		log.Infow("module credential issued", "module", m.name, "api_key", key)
	}
	return nil
}

// seedDemoLedger posts a small receipt/transfer/sale chain for one
// batch-tracked product so the API has data to answer with.
func seedDemoLedger(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		return fmt.Errorf("init audit service: %w", err)
	}

	service := ledger.NewService(
		ledger_repo.NewDetailRepo(txManager),
		ledger_repo.NewMovementRepo(txManager),
		ledger_repo.NewBatchRepo(txManager),
		ledger_repo.NewTrackingRepo(txManager),
		ledger.StrictStockPolicy{},
		auditService,
		txManager,
	)

	const companyID = "demo"
	productID := id.New()
	warehouseID := id.New()
	storeID := id.New()
	batch := "LOT-2026-001"

	if err := service.SetTracking(ctx, entity.ProductTracking{
		CompanyID:  companyID,
		ProductID:  productID,
		Mode:       entity.TrackingBatch,
		Allocation: entity.AllocationFEFO,
	}); err != nil {
		return fmt.Errorf("set tracking: %w", err)
	}

	base := time.Now().UTC().Add(-72 * time.Hour)
	steps := []struct {
		headerID string
		txType   entity.TransactionType
		location id.ID
		qty      int64
		at       time.Time
	}{
		{"GRN-0001", entity.TxGoodsReceived, warehouseID, 100, base},
		{"TRF-0001", entity.TxTransferOut, warehouseID, 40, base.Add(24 * time.Hour)},
		{"TRF-0001", entity.TxTransferIn, storeID, 40, base.Add(24 * time.Hour)},
		{"SAL-0001", entity.TxSale, storeID, 15, base.Add(48 * time.Hour)},
	}

	for _, step := range steps {
		detail := entity.NewTransactionDetail(
			companyID, step.headerID, step.txType,
			productID, step.location,
			types.NewQuantityFromInt(step.qty),
		)
		detail.BatchNumber = &batch
		detail.CreatedAt = step.at

		movements, err := service.RegisterDetail(ctx, detail, nil)
		if err != nil {
			return fmt.Errorf("register %s %s: %w", step.txType, step.headerID, err)
		}
		log.Infow("demo detail registered",
			"header_id", step.headerID,
			"transaction_type", step.txType,
			"movements", len(movements),
		)
	}

	log.Infow("demo chain seeded",
		"company_id", companyID,
		"product_id", productID,
		"batch", batch,
	)
	return nil
}
