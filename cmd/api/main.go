package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"

	"github.com/fintlabs/lending-api/internal/config"
	"github.com/fintlabs/lending-api/internal/database"
	"github.com/fintlabs/lending-api/internal/handlers"
	"github.com/fintlabs/lending-api/internal/jobs"
	"github.com/fintlabs/lending-api/internal/middleware"
	"github.com/fintlabs/lending-api/internal/repository"
	"github.com/fintlabs/lending-api/internal/services"
	"github.com/fintlabs/lending-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize repositories and the transactional unit of work
	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, uow, worker)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", h.Health.Check)

		// Loans
		loans := v1.Group("/loans")
		{
			loans.GET("", h.Loan.Index)
			loans.GET("/:loan_id", h.Loan.Show)
			loans.GET("/:loan_id/audit", h.Loan.AuditTrail)
			loans.GET("/:loan_id/statement", h.Loan.Statement)

			// Repayments live under their loan
			loans.POST("/:loan_id/repayments", h.Repayment.Create)
			loans.GET("/:loan_id/repayments", h.Repayment.History)
			loans.GET("/:loan_id/schedule", h.Repayment.Schedule)
			loans.GET("/:loan_id/schedule/export", h.Loan.ExportSchedule)
			loans.GET("/:loan_id/due", h.Repayment.DueNow)
		}

		// Disbursements
		disbursements := v1.Group("/disbursements")
		{
			disbursements.POST("", h.Disbursement.Create)
			disbursements.GET("/:disbursement_id", h.Disbursement.Show)
			disbursements.POST("/:disbursement_id/rollback", h.Disbursement.Rollback)
			disbursements.GET("/:disbursement_id/audit", h.Disbursement.AuditTrail)
		}

		// Generic transaction rollback (disbursement or repayment by id)
		transactions := v1.Group("/transactions")
		{
			transactions.POST("/:transaction_id/rollback", h.Rollback.Create)
			transactions.GET("/:transaction_id/rollback/eligibility", h.Rollback.Eligibility)
			transactions.GET("/:transaction_id/audit", h.Rollback.AuditTrail)
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Scan for overdue installments on the configured interval
	interval := time.Duration(cfg.OverdueScanMinutes) * time.Minute
	worker.ScheduleEvery(interval, func(ctx context.Context) error {
		logger.Info("[Job] Scanning for overdue installments...")
		return svcs.Repayment.CheckOverdueInstallments(ctx)
	})

	logger.Info("Scheduled recurring jobs")
}
