// Package app wires configuration, storage, the carrier client and the HTTP
// surface into a runnable API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier/delhivery"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/auth"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/cart"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/discount"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/order"
	"github.com/harsh-expnovateur/zenveda-backend/internal/domain/shipment"
	"github.com/harsh-expnovateur/zenveda-backend/internal/handler"
	"github.com/harsh-expnovateur/zenveda-backend/internal/notify"
	"github.com/harsh-expnovateur/zenveda-backend/internal/storage/postgres"
	storageredis "github.com/harsh-expnovateur/zenveda-backend/internal/storage/redis"
	"github.com/harsh-expnovateur/zenveda-backend/pkg/health"
	"github.com/harsh-expnovateur/zenveda-backend/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Redis cart store.
	cartStore, err := storageredis.NewCartStore(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "create cart store")
	}
	defer func() { _ = cartStore.Close() }()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
		return cartStore.Client().Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(100*time.Millisecond))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	shipmentRepo := postgres.NewShipmentRepository(pool)
	estimateRepo := postgres.NewEstimateRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Carrier.
	carrierClient := delhivery.New(delhivery.Config{
		BaseURL: cfg.Delhivery.BaseURL,
		Token:   cfg.Delhivery.Token,
	})

	// Notifications.
	var emailSender notify.EmailSender = notify.NopEmailSender{}
	if cfg.Resend.APIKey != "" {
		emailSender = notify.NewResendSender(cfg.Resend.APIKey, cfg.Resend.From)
	}
	whatsappClient := notify.NewWhatsAppClient(notify.WhatsAppConfig{
		BaseURL: cfg.WhatsApp.BaseURL,
		Token:   cfg.WhatsApp.Token,
		Enabled: cfg.WhatsApp.Enabled,
	})
	notifier := notify.NewNotifier(emailSender, whatsappClient, cfg.AdminEmail)

	// Domain services.
	engine := discount.NewEngine(discountRepo)
	couponValidator := discount.NewValidator(discountRepo)
	snapshotReader := cart.NewSnapshotReader(cartStore, catalogRepo)
	estimator := shipment.NewEstimator(carrierClient, estimateRepo, cfg.OriginPincode)
	coordinator := shipment.NewCoordinator(shipmentRepo, orderRepo, catalogRepo, carrierClient)
	orderService := order.NewService(order.ServiceDeps{
		Repo:      orderRepo,
		Carts:     snapshotReader,
		CartStore: cartStore,
		Catalog:   catalogRepo,
		Validator: couponValidator,
		Engine:    engine,
		Charges:   estimator,
		Transit:   estimator,
		Shipments: coordinator,
		Notifier:  notifier,
	})
	verifier := auth.NewVerifier(apikeyRepo, []byte(cfg.APIKeyPepper))

	// HTTP routes: health endpoints + API router on one server.
	h := handler.NewHandler(orderService, engine, couponValidator, snapshotReader, cartStore, catalogRepo, estimator, coordinator, verifier)
	router := mux.NewRouter()
	h.Register(router)

	root := http.NewServeMux()
	root.HandleFunc("/livez", healthSvc.LiveEndpoint)
	root.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	root.Handle("/api/", router)

	wrapped := httpmiddleware.Wrap(root,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "X-Customer-ID", "X-API-Key"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(wrapped, "zenveda-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
