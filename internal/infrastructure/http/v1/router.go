// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for service token validation
	TokenValidator middleware.TokenValidator

	// AuthService for the token endpoint
	AuthService *auth.Service

	// LedgerService is the movement ledger
	LedgerService *ledger.Service

	// Movements gives handlers direct read access to movement sets
	Movements ledger.MovementRepository

	// Audit serves the per-detail audit trail
	Audit *postgres.AuditService

	// IdempotencyStore enables transport-level replay protection;
	// nil disables the middleware
	IdempotencyStore *postgres.IdempotencyStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no company scope required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		// Token endpoint needs neither a token nor a company scope
		authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
		apiV1.POST("/auth/token", authHandler.Token)

		// Protected ledger endpoints: company scope first, then auth,
		// then transport-level idempotency for mutating calls
		protected := apiV1.Group("")
		protected.Use(middleware.Company())
		protected.Use(middleware.Auth(cfg.TokenValidator))
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		registerLedgerRoutes(protected, base, cfg)
	}

	return router
}

func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	detailHandler := handlers.NewDetailHandler(base, cfg.LedgerService, cfg.Movements, cfg.Audit)
	stockHandler := handlers.NewStockHandler(base, cfg.LedgerService)
	trackingHandler := handlers.NewTrackingHandler(base, cfg.LedgerService)

	write := middleware.RequireScope(auth.ScopeLedgerWrite, auth.ScopeLedgerAdmin)
	read := middleware.RequireScope(auth.ScopeLedgerRead, auth.ScopeLedgerWrite, auth.ScopeLedgerAdmin)
	admin := middleware.RequireScope(auth.ScopeLedgerAdmin)

	details := rg.Group("/details")
	{
		details.POST("", write, detailHandler.Register)
		details.GET("", read, detailHandler.List)
		details.GET("/:id", read, detailHandler.Get)
		details.POST("/:id/generate", write, detailHandler.Generate)
		details.POST("/:id/reverse", write, detailHandler.Reverse)
		details.GET("/:id/audit", admin, detailHandler.AuditHistory)
	}

	rg.GET("/movements", read, stockHandler.GetMovements)
	rg.GET("/stock", read, stockHandler.GetStock)
	rg.GET("/stock/turnover", read, stockHandler.GetTurnover)
	rg.GET("/trace/:identifier", read, stockHandler.Trace)

	products := rg.Group("/products/:productId")
	{
		products.GET("/tracking", read, trackingHandler.Get)
		products.PUT("/tracking", admin, trackingHandler.Set)
		products.PUT("/batches/:batchNumber/expiry", admin, trackingHandler.SetBatchExpiry)
	}
}
