package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/account"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/app"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/auth"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/billing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/cart"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/catalog"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/checkout"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/config"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/events"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/health"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/kids"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/media"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/obs"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/wizard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "portal")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "portal-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if envBool("MIGRATE_ON_START", true) {
		source := envOrDefault("MIGRATIONS_URL", "file://migrations")
		if err := app.MigrateUp(source, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "portal-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	db := store.New(pool)
	validate := validator.New()

	resolver := &pricing.Resolver{
		Source: db,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("tariff condition lookup failed")
		},
	}

	mediaProvider := media.NewHTTPProvider(cfg.StorageBaseURL, cfg.StorageAPIKey, cfg.SignedURLTTL)

	mailer := common.NopEmailSender{}
	bus := &events.Bus{
		Store: db,
		Notifiers: []events.Notifier{
			&events.EmailNotifier{Sender: mailer, Accounts: db},
		},
		Logger: logger,
	}

	verifier := auth.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, 30*time.Second)
	authMiddleware := auth.Middleware{Verifier: verifier}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	catalogSvc := &catalog.Service{
		Sessions:     db,
		Kids:         db,
		Refs:         db,
		Resolver:     resolver,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger:       logger,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	}
	catalogHandler := catalog.NewHandler(catalogSvc)

	cartSvc := &cart.Service{
		Client:   redisClient,
		TTL:      cfg.CartTTL,
		Sessions: db,
		Kids:     db,
		Resolver: resolver,
		Logger:   logger,
	}
	cartHandler := cart.NewHandler(cartSvc)

	wizardSvc := &wizard.Service{
		Client:   redisClient,
		TTL:      cfg.WizardDraftTTL,
		Kids:     db,
		Events:   bus,
		Validate: validate,
		Logger:   logger,
	}
	wizardHandler := wizard.NewHandler(wizardSvc)

	kidsSvc := &kids.Service{Store: db, Media: mediaProvider, Logger: logger}
	kidsHandler := kids.NewHandler(kidsSvc)

	checkoutSvc := &checkout.Service{
		Cart:      cartSvc,
		Store:     db,
		Invoices:  db,
		Payments:  checkout.NewHTTPPaymentProvider(cfg.PaymentBaseURL, cfg.PaymentAPIKey),
		Events:    bus,
		Resolver:  resolver,
		Logger:    logger,
		Currency:  cfg.CurrencyCode,
		ReturnURL: cfg.PaymentReturnURL,
	}
	checkoutHandler := checkout.NewHandler(checkoutSvc)

	billingSvc := &billing.Service{Store: db, Media: mediaProvider, Logger: logger, Currency: cfg.CurrencyCode}
	billingHandler := billing.NewHandler(billingSvc)

	accountSvc := &account.Service{Store: db, Validate: validate}
	accountHandler := account.NewHandler(accountSvc)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	rateLimit, err := app.NewRateLimitMiddleware(limiterStore, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse rate limit")
	}
	r.Use(rateLimit)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(authMiddleware.RequireAuth)

		v.Get("/sessions", catalogHandler.Sessions)
		v.Get("/sessions/{sessionID}", catalogHandler.SessionDetail)
		v.Get("/centers", catalogHandler.Centers)
		v.Get("/schools", catalogHandler.Schools)

		v.Get("/profile", accountHandler.Get)
		v.Put("/profile", accountHandler.Update)

		v.Route("/kids", func(k chi.Router) {
			k.Get("/", kidsHandler.List)
			k.Get("/{kidID}", kidsHandler.Get)
			k.Post("/{kidID}/photo-url", kidsHandler.PhotoUploadURL)
		})

		v.Route("/intake", func(i chi.Router) {
			i.Post("/", wizardHandler.Start)
			i.Get("/", wizardHandler.Get)
			i.Delete("/", wizardHandler.Abandon)
			i.Put("/steps/{step}", wizardHandler.SubmitStep)
			i.Post("/submit", wizardHandler.Submit)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Put("/price-mode", cartHandler.SetPriceMode)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/items", cartHandler.Add)
				g.Delete("/items/{sessionID}/{kidID}", cartHandler.Remove)
			})
		})

		v.With(idem.Middleware).Post("/checkout", checkoutHandler.Checkout)

		v.Get("/dashboard", billingHandler.Overview)
		v.Get("/registrations", billingHandler.Registrations)
		v.Get("/invoices", billingHandler.Invoices)
		v.Get("/invoices/{invoiceID}", billingHandler.Invoice)
		v.Post("/invoices/{invoiceID}/confirm-payment", checkoutHandler.ConfirmPayment)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
