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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/comisiones-api/docs" // Swagger docs
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/config"
	"github.com/sjperalta/comisiones-api/internal/database"
	"github.com/sjperalta/comisiones-api/internal/handlers"
	"github.com/sjperalta/comisiones-api/internal/jobs"
	"github.com/sjperalta/comisiones-api/internal/middleware"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/services"
	"github.com/sjperalta/comisiones-api/internal/storage"
	"github.com/sjperalta/comisiones-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const lockWait = 10 * time.Second

// @title Comisiones API
// @version 1.0
// @description Carrier commission reconciliation and fortnight broker payments
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, logger.Options{File: cfg.LogFile, Debug: cfg.LogDebug})

	// Sentry (GlitchTip) only when a DSN is configured
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

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	catalogCache, locker, redisClient := setupCache(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	repos := repository.NewRepositories(db)
	svcs := services.NewServices(repos, store, catalogCache, locker, cfg)

	worker := jobs.NewWorker(cfg.WorkerCount)
	jobs.Register(worker, svcs, cfg.ProvisionInterval, cfg.RetainedSweepInterval)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	h := handlers.NewHandlers(svcs, worker, cfg.MaxUploadBytes())
	router := setupRouter(h, cfg)

	// Statement parsing can take up to ImportTimeout; the write deadline must outlive it
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.ImportTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

// setupCache uses Redis when REDIS_URL is set and reachable, otherwise an in-process
// cache and lock (single instance only).
func setupCache(cfg *config.Config) (cache.Cache, cache.Locker, *redis.Client) {
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			logger.Info("Using Redis for catalog cache and fortnight locks")
			return cache.NewRedisCache(client, "comisiones:"), cache.NewRedisLocker(client, lockWait), client
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache", "error", err)
	}
	return cache.NewMemoryCache(256), cache.NewLocalLocker(lockWait), nil
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Read access for every role
			read := protected.Group("")
			read.Use(middleware.RequireRole(middleware.RoleOperator, middleware.RoleAuditor))
			{
				read.GET("/fortnights", h.Fortnight.Index)
				read.GET("/fortnights/:fortnight_id/summary", h.Fortnight.Summary)
				read.GET("/fortnights/:fortnight_id/bank-file", h.Fortnight.BankFile)
				read.GET("/fortnights/:fortnight_id/report.xlsx", h.Fortnight.Workbook)
				read.GET("/fortnights/:fortnight_id/brokers/:broker_id/statement.pdf", h.Fortnight.Statement)
				read.GET("/imports/:import_id", h.Import.Show)
				read.GET("/pending-items", h.Import.Pending)
				read.GET("/brokers", h.Broker.Index)
				read.GET("/audits", h.Audit.Index)
			}

			// Day-to-day operations
			ops := protected.Group("")
			ops.Use(middleware.RequireRole(middleware.RoleOperator))
			{
				ops.POST("/imports", h.Import.Create)
				ops.POST("/imports/agent-codes", h.Import.CreateAgentCodes)
				ops.POST("/pending-items/:item_id/resolve", h.Import.Resolve)
				ops.POST("/fortnights", h.Fortnight.Ensure)
				ops.POST("/fortnights/:fortnight_id/recalculate", h.Fortnight.Recalculate)
				ops.POST("/fortnights/:fortnight_id/discounts", h.Ledger.Discount)
				ops.POST("/advances/:advance_id/payments", h.Ledger.RegisterPayment)
				ops.POST("/pending-payments/:payment_id/conciliate", h.Ledger.Conciliate)
				ops.POST("/retained/associate", h.Ledger.AssociateRetained)
			}

			// Money-moving and catalog changes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/fortnights/:fortnight_id/close", h.Fortnight.Close)
				admin.POST("/advances/revert", h.Ledger.Revert)
				admin.POST("/pending-payments/:payment_id/pay", h.Ledger.Pay)
				admin.PATCH("/brokers/:broker_id", h.Broker.Update)
				admin.POST("/overrides", h.Broker.CreateOverride)
				admin.POST("/catalog/reset", h.Broker.ResetCatalog)
				admin.GET("/jobs/status", h.Job.Status)
			}
		}
	}

	return router
}
