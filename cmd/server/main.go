package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	integrationapp "github.com/jiaaaaa1/cozy-commerce/internal/application/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/auth"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/cache"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/config"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/ecommerce"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/logger"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/persistence"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/scheduler"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/telemetry"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/vault"
	"github.com/jiaaaaa1/cozy-commerce/internal/interfaces/http/handler"
	"github.com/jiaaaaa1/cozy-commerce/internal/interfaces/http/middleware"
	"github.com/jiaaaaa1/cozy-commerce/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log, cfg.App.Name))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting platform sync engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := telemetry.NewSyncMetrics(registry)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if db.IsSQLite() {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	} else {
		log.Info("Using postgres; apply schema changes with the migrate command")
	}

	if cfg.Telemetry.DBTraceEnabled {
		dbSystem := "postgresql"
		if db.IsSQLite() {
			dbSystem = "sqlite"
		}
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        dbSystem,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Credential vault
	credentialVault, err := vault.NewFromConfig(vault.Config{
		Key:       cfg.Vault.Key,
		Algorithm: cfg.Vault.Algorithm,
	})
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Platform adapters
	platforms, err := ecommerce.NewPlatformRegistry(ecommerce.RegistryConfig{
		Shopify: ecommerce.ShopifyConfigFrom(cfg.Shopify),
	}, log, syncMetrics)
	if err != nil {
		log.Fatal("Failed to initialize platform adapters", zap.Error(err))
	}

	// Repositories
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	activityRepo := persistence.NewGormActivityLogRepository(db.DB)

	// Application services
	activity := integrationapp.NewActivityRecorder(activityRepo, cfg.Sync.ActivityTimeout, syncMetrics, log)
	storeService := integrationapp.NewStoreService(platforms, credentialVault, storeRepo, productRepo, activity, activityRepo, log)
	syncService := integrationapp.NewSyncService(storeRepo, productRepo, platforms, credentialVault, activity, syncMetrics,
		integrationapp.SyncSettings{
			PageSize:   cfg.Shopify.PageSize,
			MaxItems:   cfg.Shopify.MaxItems,
			StaleAfter: cfg.Sync.StaleAfter,
		}, log)

	// Periodic sync
	if cfg.Scheduler.Enabled {
		lease, err := cache.NewSyncLease(cfg.Redis, cfg.App.Env == "production", log)
		if err != nil {
			log.Fatal("Failed to initialize sync lease", zap.Error(err))
		}
		defer func() {
			if err := lease.Close(); err != nil {
				log.Error("Error closing sync lease", zap.Error(err))
			}
		}()

		syncScheduler, err := scheduler.NewSyncScheduler(
			scheduler.SyncSchedulerConfigFrom(cfg.Scheduler), storeRepo, syncService, lease, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(ctx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Duration("sync_every", cfg.Scheduler.SyncEvery),
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine := router.New(router.Dependencies{
		Logger:      log,
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tracerProvider.IsEnabled(),
		JWT:         auth.NewJWTService(cfg.JWT),
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		MetricsPage: telemetry.Handler(registry),
		System:      handler.NewSystemHandler(version, db),
		Stores:      handler.NewStoreHandler(storeService, syncService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
