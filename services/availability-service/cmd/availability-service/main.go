package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/glowbook/clinicavail/libs/auth"
	"github.com/glowbook/clinicavail/libs/config"
	"github.com/glowbook/clinicavail/libs/db"
	"github.com/glowbook/clinicavail/libs/grpcx"
	"github.com/glowbook/clinicavail/libs/httpx"
	"github.com/glowbook/clinicavail/libs/kafkax"
	otelx "github.com/glowbook/clinicavail/libs/otel"
	"github.com/glowbook/clinicavail/libs/runtime"
	"github.com/glowbook/clinicavail/services/availability-service/internal/cache"
	"github.com/glowbook/clinicavail/services/availability-service/internal/handlers"
	"github.com/glowbook/clinicavail/services/availability-service/internal/outbox"
	"github.com/glowbook/clinicavail/services/availability-service/internal/policy"
	"github.com/glowbook/clinicavail/services/availability-service/internal/scheduling"
	"github.com/glowbook/clinicavail/services/availability-service/internal/storage"
	"github.com/glowbook/clinicavail/services/availability-service/internal/upstream"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL, storage.Migrations, storage.MigrationsDir); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if cfg.KafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Token:   cfg.UpstreamToken,
		Timeout: cfg.UpstreamTimeout,
	}, logger)
	var catalog cache.CatalogSource = upstreamClient
	if rdb != nil {
		catalog = cache.NewCatalogCache(rdb, upstreamClient, cfg.CatalogCacheTTL, logger)
	} else {
		logger.Warn("catalog cache disabled (no REDIS_ADDR)")
	}
	locations, err := cache.NewLocationCache(128)
	if err != nil {
		panic(err)
	}

	entryRepo := storage.NewEntryRepository(pool)
	var bookings scheduling.BookingSource = upstreamClient
	if cfg.BookingsSource == "db" {
		bookings = storage.NewBookingRepository(pool)
	}
	policies := policy.NewTenantProvider(logger, catalog, policy.Policy{
		SlotIntervalMinutes: cfg.DefaultSlotIntervalMinutes,
		Timezone:            cfg.Timezone,
	})

	schedulingSvc := scheduling.NewService(logger, entryRepo, bookings, catalog, policies, locations, scheduling.Config{
		MaxRangeDays:    cfg.MaxRangeDays,
		DefaultTimezone: cfg.Timezone,
	})
	outboxRepo := outbox.NewRepository(pool)
	entryAdmin := scheduling.NewEntryAdmin(entryRepo, outboxRepo, logger, cfg.MaxRangeDays)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	healthSrv := grpcx.NewHealthServer(logger, readyChecks...)
	go func() {
		if err := healthSrv.Serve(ctx, ":"+cfg.GRPCPort, 10*time.Second); err != nil {
			logger.Error("grpc health server error", "err", err)
		}
	}()

	var limiter httpx.Limiter = httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	if rdb != nil {
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "availability:ratelimit:", logger, true)
	}
	verifier := auth.Verifier{Secret: cfg.JWTSecret, CookieName: cfg.JWTCookieName}
	protect := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, verifier.RequireTenant(), limiter.Middleware())
	}

	availabilityHandler := handlers.NewAvailabilityHandler(schedulingSvc, logger)
	entryHandler := handlers.NewEntryHandler(entryAdmin, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/api/v1/availability/grid", protect(availabilityHandler.Grid))
	mux.Handle("/api/v1/availability/slots", protect(availabilityHandler.Slots))
	mux.Handle("/api/v1/availability/entries", httpx.Chain(protect(entryHandler.Entries), httpx.WithBodyLimit(256<<10)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithTimeout(30*time.Second),
		httpx.WithCORS(httpx.ConsolePolicy(config.List(cfg.CORSAllowedOrigins))),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "bookings_source", cfg.BookingsSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
