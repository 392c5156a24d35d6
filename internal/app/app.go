package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/catalog"
	"github.com/xenking/pizzeria/internal/domain/order"
	"github.com/xenking/pizzeria/internal/domain/payment"
	"github.com/xenking/pizzeria/internal/handler"
	"github.com/xenking/pizzeria/internal/notify"
	"github.com/xenking/pizzeria/internal/storage/postgres"
	"github.com/xenking/pizzeria/internal/storage/redis"
	"github.com/xenking/pizzeria/pkg/health"
	"github.com/xenking/pizzeria/pkg/httpmiddleware"
)

// Telemetry provides the tracer and meter providers; *app.Telemetry from
// go-faster/sdk satisfies it.
type Telemetry = httpmiddleware.TelemetryProvider

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
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

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	// Repositories.
	var pizzas catalog.Repository = postgres.NewCatalogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(cfg.Redis.Addr)
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Warn("Close redis", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck("redis", health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})))
		pizzas = redis.NewCatalogCache(pizzas, redis.NewClientStore(rdb), cfg.Redis.TTL)
		lg.Info("Catalog cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	// Notifications leave the request path through the dispatcher.
	var sender notify.Sender = notify.LogSender{}
	if brokers := notify.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		ks := notify.NewKafkaSender(brokers, cfg.Kafka.Topic)
		defer func() {
			if err := ks.Close(); err != nil {
				lg.Warn("Close kafka sender", zap.Error(err))
			}
		}()
		sender = ks
		lg.Info("Publishing notifications to Kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	dispatcher := notify.NewDispatcher(sender, notify.DispatcherConfig{
		QueueSize:   cfg.Notify.QueueSize,
		Workers:     cfg.Notify.Workers,
		SendTimeout: cfg.Notify.SendTimeout,
	})
	// Closed after the server stops so in-flight notices are flushed.
	defer dispatcher.Close()

	// Domain services.
	orderService, err := order.NewService(
		order.Config{
			OperatorEmail:       cfg.Order.OperatorEmail,
			DeliveryEstimate:    cfg.Order.DeliveryEstimate,
			RejectTotalMismatch: cfg.Order.RejectTotalMismatch,
		},
		pizzas, orderRepo, userRepo, dispatcher,
		order.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	payments := payment.NewDemo(payment.Config{
		Delay:       cfg.Payment.Delay,
		FailureRate: cfg.Payment.FailureRate,
	})

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		pizzas,
		orderService,
		payments,
	)
	securityHandler := handler.NewSecurityHandler(userRepo, []byte(cfg.APIKeyPepper))

	// Router: health endpoints + API routes on one server.
	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	mux.Mount("/", h.Router(securityHandler.Middleware))

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RouteContext(),
			httpmiddleware.Instrument("pizzeria-api", m),
			httpmiddleware.LogRequests(),
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
