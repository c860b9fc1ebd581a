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
	paymentapp "github.com/paymentmanager/backend/internal/application/payment"
	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/infrastructure/cache"
	"github.com/paymentmanager/backend/internal/infrastructure/config"
	"github.com/paymentmanager/backend/internal/infrastructure/geography"
	"github.com/paymentmanager/backend/internal/infrastructure/logger"
	"github.com/paymentmanager/backend/internal/infrastructure/persistence"
	"github.com/paymentmanager/backend/internal/infrastructure/storage"
	"github.com/paymentmanager/backend/internal/infrastructure/telemetry"
	"github.com/paymentmanager/backend/internal/interfaces/http/handler"
	"github.com/paymentmanager/backend/internal/interfaces/http/middleware"
	"github.com/paymentmanager/backend/internal/interfaces/http/router"
	"github.com/paymentmanager/backend/migrations"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//	@title			Payment Manager API
//	@version		1.0
//	@description	Payments with evidence files, CSV import and editable drafts backed by country reference data
//	@BasePath		/api/v1

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting payment manager",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Telemetry.LogsLevel))

	var httpMeter, cacheMeter metric.Meter
	if meterProvider.IsEnabled() {
		httpMeter = meterProvider.Meter("http.server")
		cacheMeter = meterProvider.Meter("refdata.cache")
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.SlowQuery),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing
	dbTracing.SlowQueryThresh = cfg.Telemetry.SlowQuery
	dbTracing.TracerProvider = tracerProvider.Provider()
	if db.Driver == persistence.DriverSQLite {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(context.Background(), db.DB, meterProvider, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.SlowQuery,
		PoolStatsInterval:  cfg.Telemetry.PoolStatsInterval,
	}, log.Named("db_metrics"))
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	defer dbMetrics.Stop()

	if err := db.PrepareSchema(migrations.FS, log.Named("migrate")); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	evidence, err := newEvidenceStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize evidence storage", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Cache.Backend != cache.BackendMemory {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
	}
	caches, err := cache.NewReferenceCaches(cfg.Cache, redisClient, log)
	if err != nil {
		log.Fatal("Failed to initialize reference data caches", zap.Error(err))
	}
	caches, err = cache.InstrumentCaches(caches, cacheMeter)
	if err != nil {
		log.Fatal("Failed to instrument reference data caches", zap.Error(err))
	}

	source := geography.NewCountriesNowClient(cfg.Geography.BaseURL, cfg.Geography.Timeout,
		geography.WithLogger(log.Named("countriesnow")),
	)
	resolver := referencedata.NewResolver(source,
		referencedata.WithCaches(caches),
		referencedata.WithLogger(log.Named("refdata")),
	)

	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	paymentService := paymentapp.NewService(paymentRepo, evidence,
		paymentapp.WithLocation(cfg.App.Location()),
		paymentapp.WithLogger(log.Named("payments")),
	)

	draftHandler := handler.NewDraftHandler(resolver, paymentService, handler.DraftOptions{
		TTL:      cfg.Draft.TTL,
		Capacity: cfg.Draft.Capacity,
		Debounce: cfg.Geography.Debounce,
	}, log.Named("drafts"))
	defer draftHandler.Stop()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, tracerProvider.IsEnabled())...)
	httpMetrics, err := middleware.HTTPMetrics(httpMeter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine.Use(httpMetrics)
	engine.Use(
		logger.Recovery(log),
		logger.GinMiddleware(log, "/health"),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
			MaxAge:       12 * time.Hour,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	var geoMiddleware []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		geoMiddleware = append(geoMiddleware, middleware.RateLimit(limiter))
	}

	router.Setup(engine, router.Handlers{
		Payment:   handler.NewPaymentHandler(paymentService),
		Import:    handler.NewImportHandler(paymentService),
		Geography: handler.NewGeographyHandler(resolver),
		Draft:     draftHandler,
		System:    handler.NewSystemHandler(cfg.App.Name, version, db),
	}, geoMiddleware...)

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Meter shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Error("Log export shutdown failed", zap.Error(err))
	}
}

func newEvidenceStorage(cfg *config.Config, log *zap.Logger) (paymentapp.EvidenceStorage, error) {
	if cfg.Storage.Backend != "s3" {
		log.Warn("Evidence files are kept in memory and lost on restart")
		return storage.NewMemoryObjectStorage(), nil
	}

	s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log.Named("evidence")))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3Storage, nil
}
