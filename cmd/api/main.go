package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-books/internal/book"
	"github.com/noah-isme/backend-books/internal/checkout"
	"github.com/noah-isme/backend-books/internal/common"
	"github.com/noah-isme/backend-books/internal/config"
	"github.com/noah-isme/backend-books/internal/db"
	"github.com/noah-isme/backend-books/internal/health"
	"github.com/noah-isme/backend-books/internal/obs"
	"github.com/noah-isme/backend-books/internal/openapi"
	"github.com/noah-isme/backend-books/internal/ratelimit"
	"github.com/noah-isme/backend-books/internal/resilience"
)

const serviceName = "books-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "books")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	var domainMetrics *obs.DomainMetrics
	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		domainMetrics = obs.MustRegisterDomainMetrics(metricsNamespace, nil)
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.RunMigrations {
		version, err := db.Migrate(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info().Uint("version", version).Msg("database migrated")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := db.Connect(connectCtx, cfg.DatabaseURL, serviceName)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := connectRedis(connectCtx, cfg.RedisURL, metricsEnabled, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	} else {
		logger.Warn().Msg("REDIS_URL not set; book cache and idempotency disabled, rate limits kept in memory")
	}

	promotions, err := config.LoadPromotions(cfg.PromotionsFile)
	if err != nil {
		return err
	}
	logger.Info().Strs("codes", promotions.Codes()).Str("file", cfg.PromotionsFile).Msg("promotions loaded")

	var cacheBreaker *resilience.Breaker
	if redisClient != nil {
		var breakerMetrics *resilience.Metrics
		if metricsEnabled {
			breakerMetrics = resilience.NewMetrics(metricsNamespace, nil)
		}
		cacheBreaker = resilience.NewBreaker(resilience.Config{
			Target:       "book_cache",
			MinRequests:  envInt("CACHE_BREAKER_MIN_REQUESTS", 10),
			FailureRatio: envFloat("CACHE_BREAKER_FAILURE_RATIO", 0.5),
			OpenFor:      envDurationMillis("CACHE_BREAKER_OPEN_MS", 30000),
			Metrics:      breakerMetrics,
			Logger:       &logger,
		})
	}

	validate := common.NewValidator()
	bookService, err := book.NewService(book.ServiceConfig{
		Store: book.NewPGStore(pool),
		Cache: book.NewCache(book.CacheConfig{
			Client:  redisClient,
			TTL:     cfg.BookCacheTTL,
			Metrics: domainMetrics,
			Breaker: cacheBreaker,
		}),
		Validator: validate,
	})
	if err != nil {
		return err
	}
	checkoutService := checkout.NewService(checkout.ServiceConfig{
		Promotions: promotions,
		Metrics:    domainMetrics,
		Validator:  validate,
	})

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.RedisLimiter{Client: redisClient}
	} else {
		limiter = ratelimit.NewMemoryLimiter("")
	}

	doc, err := openapi.Load(ctx)
	if err != nil {
		return err
	}
	docHandler, err := openapi.Handler(doc)
	if err != nil {
		return err
	}

	deps := routerDeps{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		SecurityHeaders: cfg.SecurityHeadersEnabled,
		TrustProxy:      cfg.TrustProxyHeaders,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		Tracing:         tracingEnabled,
		HTTPMetrics:     httpMetrics,
		Health: health.Handler{
			Checker:      health.Probes{DB: pool, Redis: redisClient},
			DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
			RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		},
		OpenAPI:       docHandler,
		Books:         book.NewHandler(book.HandlerConfig{Service: bookService}),
		Checkout:      checkout.NewHandler(checkout.HandlerConfig{Service: checkoutService}),
		Idempotency:   common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		Limiter:       limiter,
		CheckoutLimit: cfg.CheckoutRateLimit,
		CheckoutEvery: cfg.CheckoutRateWindow,
	}
	if metricsEnabled {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if envBool("OBS_ENABLE_PPROF", !cfg.IsProduction()) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		deps.Pprof = protectPprof(newPprofMux(), user, pass)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(deps),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown requested")
	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// connectRedis returns nil when url is empty.
func connectRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
