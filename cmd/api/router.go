package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-books/internal/book"
	"github.com/noah-isme/backend-books/internal/checkout"
	"github.com/noah-isme/backend-books/internal/common"
	"github.com/noah-isme/backend-books/internal/health"
	"github.com/noah-isme/backend-books/internal/obs"
	"github.com/noah-isme/backend-books/internal/ratelimit"
	"github.com/noah-isme/backend-books/internal/security"
)

// routerDeps carries everything the HTTP surface needs. Nil optional parts are skipped.
type routerDeps struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	SecurityHeaders bool
	TrustProxy      bool
	MaxBodyBytes    int64

	Tracing     bool
	HTTPMetrics *obs.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Pprof       http.Handler

	Health   health.Handler
	OpenAPI  http.Handler
	Books    *book.Handler
	Checkout *checkout.Handler

	Idempotency   common.Idem
	Limiter       ratelimit.Limiter
	CheckoutLimit int
	CheckoutEvery time.Duration
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: d.SecurityHeaders, EnableHSTS: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Pprof != nil {
		r.Mount("/debug/pprof", http.StripPrefix("/debug/pprof", d.Pprof))
	}
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)
	if d.OpenAPI != nil {
		r.Method(http.MethodGet, "/openapi.json", d.OpenAPI)
	}

	limit := ratelimit.Handler{
		Limiter: d.Limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("checkout"),
			Window: d.CheckoutEvery,
			Max:    d.CheckoutLimit,
		},
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("checkout rate limiter unavailable")
		},
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: d.MaxBodyBytes}.Middleware)
		v.Route("/books", func(b chi.Router) {
			// inline middleware runs after routing, so the full pattern is known here
			leaf := b.With(obs.RoutePatternMiddleware)
			if d.Checkout != nil {
				leaf.With(limit.Middleware).Post("/checkout", d.Checkout.Checkout)
			}
			if d.Books != nil {
				d.Books.Routes(leaf, d.Idempotency.Middleware)
			}
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
