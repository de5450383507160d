package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	integrationapp "github.com/channelsync/backend/internal/application/integration"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/ecommerce"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/mappingsource"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/infrastructure/syncstate"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/channelsync/backend/internal/interfaces/http/middleware"
	"github.com/channelsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ChannelSync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize telemetry providers. Each constructor returns a no-op
	// provider when its signal is disabled, so the wiring below stays
	// unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		if err := logsProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()

	// Tee application logs to the OTLP collector alongside the local output.
	if cfg.Telemetry.Enabled {
		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		}, logsProvider, cfg.Telemetry.ServiceName)
		if err != nil {
			log.Warn("Failed to bridge logger to OTLP, keeping local logger", zap.Error(err))
		} else {
			log = bridged
		}
	}

	// Continuous profiling via Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.ProfilingServer,
		ApplicationName:     cfg.App.Name,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Sync flow metrics and the monitor the services log through
	syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:  meterProvider.Meter("sync.flows"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}
	monitor := telemetry.NewMonitor(log, syncMetrics)

	// Sync cursor store: Redis when configured, in-process otherwise
	var stateStore integration.StateStore
	if cfg.Redis.Enabled {
		redisStore, err := syncstate.NewRedisStore(syncstate.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		stateStore = redisStore
		log.Info("Sync state store connected",
			zap.String("backend", "redis"),
			zap.String("addr", cfg.Redis.Addr()),
		)
	} else {
		stateStore = syncstate.NewMemoryStore()
		log.Warn("Redis disabled, sync cursors are held in memory and reset on restart")
	}
	defer func() {
		if err := stateStore.Close(); err != nil {
			log.Error("Error closing sync state store", zap.Error(err))
		}
	}()

	// Attribute mapping table for product classification
	var mappings integration.MappingSource
	switch cfg.Mapping.Source {
	case "s3":
		s3Source, err := mappingsource.NewS3Source(ctx, &cfg.Mapping)
		if err != nil {
			log.Fatal("Failed to initialize S3 mapping source", zap.Error(err))
		}
		mappings = s3Source
		log.Info("Attribute mappings loaded from S3",
			zap.String("bucket", cfg.Mapping.S3Bucket),
			zap.String("key", cfg.Mapping.S3Key),
		)
	default:
		fileSource, err := mappingsource.NewFileSource(cfg.Mapping.Path)
		if err != nil {
			log.Fatal("Failed to open mapping file", zap.Error(err))
		}
		mappings = fileSource
		log.Info("Attribute mappings loaded from file", zap.String("path", cfg.Mapping.Path))
	}

	// Platform adapters
	shopify, err := ecommerce.NewShopifyAdapter(&ecommerce.ShopifyConfig{
		ShopDomain:           cfg.Shopify.ShopDomain,
		AccessToken:          cfg.Shopify.AccessToken,
		APIVersion:           cfg.Shopify.APIVersion,
		WebhookSecret:        cfg.Shopify.WebhookSecret,
		TimeoutSeconds:       cfg.Shopify.TimeoutSeconds,
		MaxRequestsPerSecond: cfg.Shopify.MaxRequestsPerSecond,
	})
	if err != nil {
		log.Fatal("Failed to initialize storefront adapter", zap.Error(err))
	}

	nautical, err := ecommerce.NewNauticalAdapter(&ecommerce.NauticalConfig{
		APIURL:               cfg.Nautical.APIURL,
		APIToken:             cfg.Nautical.APIToken,
		TenantID:             cfg.Nautical.TenantID,
		TimeoutSeconds:       cfg.Nautical.TimeoutSeconds,
		MaxRequestsPerSecond: cfg.Nautical.MaxRequestsPerSecond,
	})
	if err != nil {
		log.Fatal("Failed to initialize commerce backend adapter", zap.Error(err))
	}

	log.Info("Platform adapters ready",
		zap.String("source", shopify.Name()),
		zap.String("target", nautical.Name()),
	)

	// Sync services
	retryPolicy := integration.DefaultRetryPolicy()
	productImport := integrationapp.NewProductImportService(shopify, nautical, mappings, monitor, retryPolicy, cfg.Sync.PageSize)
	inventorySync := integrationapp.NewInventorySyncService(shopify, nautical, monitor, retryPolicy, cfg.Sync.PageSize)
	orderSync := integrationapp.NewOrderSyncService(shopify, nautical, stateStore, monitor, retryPolicy,
		cfg.Sync.PageSize, cfg.Sync.OrderLookback, cfg.Sync.OrderInitialLookback)
	webhookService := integrationapp.NewWebhookService(productImport, inventorySync, orderSync, monitor)

	// Scheduler drives the periodic flow runs and serializes manual triggers
	syncScheduler, err := scheduler.NewSyncScheduler(scheduler.Config{
		ProductsInterval:  cfg.Scheduler.ProductsInterval,
		InventoryInterval: cfg.Scheduler.InventoryInterval,
		OrdersInterval:    cfg.Scheduler.OrdersInterval,
		RunTimeout:        cfg.Scheduler.RunTimeout,
	}, map[integration.Flow]scheduler.FlowRunner{
		integration.FlowProducts:  productImport,
		integration.FlowInventory: inventorySync,
		integration.FlowOrders:    orderSync,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize sync scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
	} else {
		log.Info("Background schedule disabled, flows run on manual trigger only")
	}

	// Register webhook subscriptions on the storefront. Registration is
	// idempotent and a failure only delays change delivery until the next
	// scheduled run, so the server still comes up.
	if cfg.Shopify.RegisterWebhooks && cfg.Shopify.WebhookCallbackURL != "" {
		if err := shopify.RegisterWebhooks(ctx, cfg.Shopify.WebhookCallbackURL, integrationapp.SubscribedTopics()); err != nil {
			log.Warn("Webhook registration failed, relying on scheduled runs", zap.Error(err))
		} else {
			log.Info("Webhook subscriptions registered",
				zap.String("callback_url", cfg.Shopify.WebhookCallbackURL),
			)
		}
	}

	// Export cursor age gauges while the server runs
	if meterProvider.IsEnabled() {
		syncMetrics.StartPeriodicCollection(ctx, stateStore, integration.AllFlows(), time.Minute)
		defer syncMetrics.Stop()
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - server spans, attribute enrichment, error marking
	// 5. Metrics - RED metrics per route
	// 6. Profiling - pprof labels per route
	// 7. Security - Add security headers
	// 8. CORS - Handle cross-origin requests
	// 9. BodyLimit - Limit request body size
	// 10. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:   cfg.Telemetry.ProfilingEnabled,
		SkipPaths: []string{"/health", "/api/v1/ping"},
	}))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(stateStore, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	r.Register(handler.NewSystemHandler())
	r.Register(handler.NewSyncHandler(syncScheduler))

	// Webhook deliveries carry a per-source throttle on top of the global
	// limiter, keyed by client IP.
	webhookHandler := handler.NewWebhookHandler(webhookService, cfg.Shopify.WebhookSecret)
	webhookLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	r.Register(registrarFunc(func(rg *gin.RouterGroup) {
		webhookHandler.RegisterRoutes(rg.Group("", middleware.WebhookRateLimit(webhookLimiter)))
	}))

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// registrarFunc adapts a plain function to the router.RouteRegistrar
// interface so main can register a handler behind extra group middleware.
type registrarFunc func(rg *gin.RouterGroup)

func (f registrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

// healthHandler returns a handler for health check endpoints. The probe
// reads one sync cursor so a lost Redis connection turns the check red.
func healthHandler(store integration.StateStore, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if _, err := store.LastSyncTime(c.Request.Context(), integration.FlowProducts); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "unhealthy",
				"time":        time.Now().Format(time.RFC3339),
				"state_store": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"time":        time.Now().Format(time.RFC3339),
			"state_store": "ok",
		})
	}
}
