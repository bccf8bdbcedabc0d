package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/ecom/backend/internal/application/cart"
	couponapp "github.com/ecom/backend/internal/application/coupon"
	inventoryapp "github.com/ecom/backend/internal/application/inventory"
	orderapp "github.com/ecom/backend/internal/application/order"
	pricingapp "github.com/ecom/backend/internal/application/pricing"
	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/ecom/backend/internal/infrastructure/auth"
	"github.com/ecom/backend/internal/infrastructure/cache"
	"github.com/ecom/backend/internal/infrastructure/config"
	"github.com/ecom/backend/internal/infrastructure/event"
	"github.com/ecom/backend/internal/infrastructure/logger"
	"github.com/ecom/backend/internal/infrastructure/notification"
	"github.com/ecom/backend/internal/infrastructure/persistence"
	"github.com/ecom/backend/internal/infrastructure/scheduler"
	"github.com/ecom/backend/internal/infrastructure/telemetry"
	"github.com/ecom/backend/internal/interfaces/http/handler"
	"github.com/ecom/backend/internal/interfaces/http/middleware"
	"github.com/ecom/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/ecom/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Storefront Backend API
//	@version		1.0
//	@description	Order fulfillment backend: carts, coupons, pricing, checkout and inventory

//	@contact.name	API Support

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token issued by the identity service. Format: "Bearer {token}"

const stockGaugeInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry providers (no-op when disabled)
	var (
		meterProvider   *telemetry.MeterProvider
		businessMetrics *telemetry.BusinessMetrics
	)
	if cfg.Telemetry.Enabled {
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()

		meterProvider, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}()

		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:  meterProvider.Meter("ecom-backend/business"),
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		defer businessMetrics.Stop()

		log.Info("Telemetry enabled",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.Telemetry.SamplingRatio),
		)
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database tracing and pool metrics
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		} else {
			dbMetrics.StartPoolStatsCollection(ctx)
			defer dbMetrics.Stop()
		}
	}

	// Low-stock gauge fed straight from the stock_units table
	if businessMetrics != nil {
		stockProvider := telemetry.NewGormStockMetricsProvider(db.DB)
		businessMetrics.StartPeriodicCollection(ctx, stockProvider, stockGaugeInterval)
	}

	// Initialize repositories
	cartRepo := persistence.NewGormCartRepository(db.DB)
	catalogReader := persistence.NewGormCatalogReader(db.DB)
	couponRepo := persistence.NewGormCouponRepository(db.DB)
	usageRepo := persistence.NewGormUsageRecordRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	statusLogRepo := persistence.NewGormStatusLogRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentTransactionRepository(db.DB)
	returnRepo := persistence.NewGormReturnRequestRepository(db.DB)
	zoneRepo := persistence.NewGormShippingZoneRepository(db.DB)
	taxRepo := persistence.NewGormTaxRuleRepository(db.DB)
	stockUnitRepo := persistence.NewGormStockUnitRepository(db.DB)
	inventoryLogRepo := persistence.NewGormInventoryLogRepository(db.DB)

	// Transaction scopes for the multi-aggregate writes
	orderScope := persistence.NewGormOrderTransactionScope(db.DB)
	inventoryScope := persistence.NewGormInventoryTransactionScope(db.DB)

	// Checkout idempotency store: Redis-backed, in-memory for development
	var idempotencyStore shared.IdempotencyStore
	if cfg.Checkout.IdempotencyEnabled {
		storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.App.Env != "production"),
		)
		idempotencyStore, err = storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
	}

	// Initialize application services
	cartService := cartapp.NewCartService(cartRepo, catalogReader, stockUnitRepo)
	couponService := couponapp.NewCouponService(couponRepo, usageRepo, orderRepo, cartRepo, catalogReader)
	pricingService := pricingapp.NewPricingService(zoneRepo, taxRepo)
	orderService := orderapp.NewOrderService(
		orderScope,
		orderRepo,
		statusLogRepo,
		paymentRepo,
		returnRepo,
		cartRepo,
		zoneRepo,
		taxRepo,
		catalogReader,
		idempotencyStore,
	)
	inventoryService := inventoryapp.NewInventoryService(inventoryScope, stockUnitRepo, inventoryLogRepo)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Order lifecycle -> shopper notifications
	orderNotificationHandler := orderapp.NewOrderNotificationHandler(log, notification.NewLogNotifier(log))
	eventBus.Subscribe(orderNotificationHandler, orderNotificationHandler.EventTypes()...)

	// Stock below threshold -> replenishment alert
	stockAlertHandler := inventoryapp.NewStockBelowThresholdHandler(log).
		WithNotifier(inventoryapp.NewLoggingStockAlertNotifier(log))
	eventBus.Subscribe(stockAlertHandler, stockAlertHandler.EventTypes()...)

	log.Info("Event handlers registered",
		zap.Strings("order_notification_events", orderNotificationHandler.EventTypes()),
		zap.Strings("stock_alert_events", stockAlertHandler.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	orderService.SetEventPublisher(eventBus)
	inventoryService.SetEventPublisher(eventBus)

	// Expired guest cart sweep loop
	if cfg.Cart.SweepEnabled {
		cartSweeper := scheduler.NewCartSweeper(scheduler.CartSweeperConfig{
			Enabled:  cfg.Cart.SweepEnabled,
			Interval: cfg.Cart.SweepInterval,
		}, cartService, log)
		if err := cartSweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start cart sweeper", zap.Error(err))
		}
		defer func() {
			if err := cartSweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping cart sweeper", zap.Error(err))
			}
		}()
		log.Info("Cart sweeper started", zap.Duration("interval", cfg.Cart.SweepInterval))
	}

	// Initialize HTTP handlers
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(orderService, businessMetrics)
	couponHandler := handler.NewCouponHandler(couponService)
	pricingHandler := handler.NewPricingHandler(pricingService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, businessMetrics)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first: request ID, panic recovery, request
	// log, security headers, CORS, body limit, tracing/metrics, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("ecom-backend/http"), true))
	}

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, nil)
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Every API request resolves to a user or a guest session
	identityMiddleware := middleware.Identity(middleware.IdentityConfig{
		Verifier:     auth.NewTokenVerifier(cfg.Auth),
		CookieMaxAge: int(cart.GuestCartTTL.Seconds()),
		CookiePath:   cfg.Cookie.Path,
		CookieDomain: cfg.Cookie.Domain,
		CookieSecure: cfg.Cookie.Secure,
		Logger:       log,
	})
	r.Use(identityMiddleware)

	// Cart routes (user or guest)
	cartRoutes := router.NewDomainGroup("cart", "/cart")
	cartRoutes.GET("", cartHandler.GetCart)
	cartRoutes.DELETE("", cartHandler.ClearCart)
	cartRoutes.POST("/items", cartHandler.AddItem)
	cartRoutes.PUT("/items/:line_id", cartHandler.UpdateItem)
	cartRoutes.DELETE("/items/:line_id", cartHandler.RemoveItem)
	cartRoutes.POST("/merge", middleware.RequireUser(), cartHandler.Merge)
	cartRoutes.POST("/validate", cartHandler.Validate)
	cartRoutes.POST("/refresh-prices", cartHandler.RefreshPrices)

	// Checkout is a root-level operation, not a cart sub-route
	checkoutRoutes := router.NewDomainGroup("checkout", "")
	checkoutRoutes.POST("/checkout", orderHandler.Checkout)

	// Order routes
	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.GET("", orderHandler.ListOrders)
	orderRoutes.GET("/mine", middleware.RequireUser(), orderHandler.ListMyOrders)
	orderRoutes.GET("/number/:order_number", orderHandler.GetOrderByNumber)
	orderRoutes.GET("/:id", orderHandler.GetOrder)
	orderRoutes.POST("/:id/status", orderHandler.ChangeStatus)
	orderRoutes.POST("/:id/payments", orderHandler.RecordPayment)
	orderRoutes.POST("/:id/returns", orderHandler.RequestReturn)

	// Return routes
	returnRoutes := router.NewDomainGroup("returns", "/returns")
	returnRoutes.GET("", orderHandler.ListReturns)
	returnRoutes.GET("/:id", orderHandler.GetReturn)
	returnRoutes.POST("/:id/process", orderHandler.ProcessReturn)

	// Coupon routes
	couponRoutes := router.NewDomainGroup("coupons", "/coupons")
	couponRoutes.POST("/validate", couponHandler.Validate)
	couponRoutes.POST("", couponHandler.Create)
	couponRoutes.GET("", couponHandler.List)
	couponRoutes.GET("/code/:code", couponHandler.GetByCode)
	couponRoutes.GET("/:id", couponHandler.GetByID)
	couponRoutes.GET("/:id/usage", couponHandler.GetUsage)
	couponRoutes.POST("/:id/activate", couponHandler.Activate)
	couponRoutes.POST("/:id/deactivate", couponHandler.Deactivate)
	couponRoutes.DELETE("/:id", couponHandler.Delete)

	// Pricing routes (quotes plus zone and tax rule admin)
	pricingRoutes := router.NewDomainGroup("pricing", "/pricing")
	pricingRoutes.GET("/shipping-quote", pricingHandler.QuoteShipping)
	pricingRoutes.GET("/tax-quote", pricingHandler.QuoteTaxes)
	pricingRoutes.POST("/zones", pricingHandler.CreateZone)
	pricingRoutes.GET("/zones", pricingHandler.ListZones)
	pricingRoutes.GET("/zones/:id", pricingHandler.GetZone)
	pricingRoutes.PUT("/zones/:id", pricingHandler.UpdateZone)
	pricingRoutes.DELETE("/zones/:id", pricingHandler.DeleteZone)
	pricingRoutes.POST("/tax-rules", pricingHandler.CreateTaxRule)
	pricingRoutes.GET("/tax-rules", pricingHandler.ListTaxRules)
	pricingRoutes.GET("/tax-rules/:id", pricingHandler.GetTaxRule)
	pricingRoutes.PUT("/tax-rules/:id", pricingHandler.UpdateTaxRule)
	pricingRoutes.DELETE("/tax-rules/:id", pricingHandler.DeleteTaxRule)

	// Inventory routes
	inventoryRoutes := router.NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.POST("/adjustments", inventoryHandler.AdjustStock)
	inventoryRoutes.POST("/adjustments/bulk", inventoryHandler.BulkAdjust)
	inventoryRoutes.POST("/availability", inventoryHandler.CheckAvailability)
	inventoryRoutes.PUT("/stock-units", inventoryHandler.UpsertStockUnit)
	inventoryRoutes.GET("/stock-units", inventoryHandler.ListStockUnits)
	inventoryRoutes.GET("/stock-units/low", inventoryHandler.ListLowStock)
	inventoryRoutes.GET("/stock-units/:variant_id", inventoryHandler.GetStockUnit)
	inventoryRoutes.GET("/stock-units/:variant_id/ledger", inventoryHandler.GetLedger)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(cartRoutes).
		Register(checkoutRoutes).
		Register(orderRoutes).
		Register(returnRoutes).
		Register(couponRoutes).
		Register(pricingRoutes).
		Register(inventoryRoutes).
		Register(systemRoutes)

	r.Setup()

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

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
