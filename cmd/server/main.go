package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaudit "github.com/bizcore/backend/internal/application/audit"
	"github.com/bizcore/backend/internal/application/credit"
	"github.com/bizcore/backend/internal/application/entitlement"
	"github.com/bizcore/backend/internal/application/invoicing"
	"github.com/bizcore/backend/internal/application/membership"
	"github.com/bizcore/backend/internal/application/planstate"
	"github.com/bizcore/backend/internal/application/subscription"
	"github.com/bizcore/backend/internal/application/tenancy"
	"github.com/bizcore/backend/internal/domain/billing"
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/cache"
	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/infrastructure/persistence"
	"github.com/bizcore/backend/internal/infrastructure/telemetry"
	"github.com/bizcore/backend/internal/infrastructure/telemetry/businessmetrics"
	"github.com/bizcore/backend/internal/interfaces/http/handler"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/bizcore/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BizCore backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry
	otelCfg := telemetry.ConfigFrom(cfg.Telemetry)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, otelCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, otelCfg, cfg.Telemetry.LogsEnabled, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdownTelemetry(tracerProvider, meterProvider, loggerProvider, log)
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	entitlementMetrics, err := businessmetrics.NewEntitlementMetrics(meterProvider.Meter("bizcore/entitlement"))
	if err != nil {
		log.Fatal("Failed to register business metrics", zap.Error(err))
	}

	// Database
	dbOpts := persistence.Options{
		Logger:        log,
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}
	if cfg.Telemetry.DBTraceEnabled {
		dbOpts.Tracing = telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access database pool", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis is optional. Without it the plan-state cache stays in-process
	// and revoked tokens are tracked in memory.
	var redisClient redis.UniversalClient
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if cfg.Redis.Host != "" {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			_ = client.Close()
		}()
		redisClient = client
		blacklist = auth.NewRedisTokenBlacklist(client)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	planStateCache := cache.NewPlanStateCache(ctx, redisClient, cfg.PlanState, log)
	defer func() {
		_ = planStateCache.Close()
	}()

	// Application services
	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	sink := appaudit.NewSink(repos.Audit(), log)

	subscriptions := subscription.NewService(repos, txScope, billing.DefaultPlanCatalog(), sink, log)
	if cfg.PlanState.DefaultPlan != "" {
		subscriptions.SetDefaultPlan(billing.PlanCode(cfg.PlanState.DefaultPlan))
	}
	engine := planstate.NewEngine(repos, subscriptions, planStateCache,
		planstate.Config{WarningPercent: int(cfg.PlanState.WarningPercent)}, log)
	subscriptions.SetInvalidator(engine)

	ledger := credit.NewLedgerService(repos, txScope, sink, log)
	entitlements := entitlement.NewService(repos, subscriptions, ledger, sink, log)
	entitlements.SetRecorder(entitlementMetrics)

	tenants := tenancy.NewService(repos, txScope, entitlements, sink, log)
	members := membership.NewService(repos, txScope, entitlements, sink, engine, log)
	invoices := invoicing.NewService(repos, txScope, entitlements, sink, engine, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	httpEngine := gin.New()
	if err := httpEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.App.Env == "production"

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	httpEngine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.SecureWithConfig(securityCfg),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meterProvider),
	)
	httpEngine.NoRoute(middleware.NoRoute())

	healthHandler := handler.NewHealthHandler(sqlDB)
	httpEngine.GET("/health", healthHandler.Check)

	jwtService := auth.NewJWTService(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.Logger = log

	gate := router.Gate{
		JWT: middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		Tenant: middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{
			Resolver:       tenancy.NewContextResolver(repos, log),
			MaxBodyInspect: cfg.HTTP.MaxBodySize,
			Recorder:       entitlementMetrics,
			Logger:         log,
		}),
		PlanEnforcement: middleware.PlanEnforcement(middleware.PlanEnforcementConfig{
			Deriver:         engine,
			ExemptRoutes:    middleware.DefaultExemptRoutes(),
			AllowlistRoutes: middleware.DefaultAllowlistRoutes(),
			Recorder:        entitlementMetrics,
			Logger:          log,
		}),
		Context: []gin.HandlerFunc{
			middleware.SpanEnricher(),
			middleware.ProfilingLabels(profiler.IsEnabled()),
		},
		Logger:  log,
	}
	handlers := router.Handlers{
		Plan:        handler.NewPlanHandler(subscriptions, engine),
		Tenant:      handler.NewTenantHandler(tenants, subscriptions),
		Member:      handler.NewMemberHandler(members),
		Invoice:     handler.NewInvoiceHandler(invoices),
		Entitlement: handler.NewEntitlementHandler(entitlements, ledger),
		Audit:       handler.NewAuditHandler(sink),
	}
	router.NewRouter(httpEngine).Register(router.Groups(handlers, gate)...).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
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
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func shutdownTelemetry(tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lp.Shutdown(ctx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
}
