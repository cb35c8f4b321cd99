package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/notekeep/notekeep/internal/config"
	"github.com/notekeep/notekeep/internal/handler"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/middleware"
)

// routerDeps collects everything the router wires together.
type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	verifier middleware.TokenVerifier
	limiter  middleware.RateLimiter
	recorder metrics.Recorder
	metrics  http.Handler

	health   *handler.HealthHandler
	notes    *handler.NoteHandler
	accounts *handler.AuthHandler

	uploadsDir string
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.cfg
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(
		chimiddleware.RealIP,
		middleware.RequestID,
		middleware.Logger(d.logger),
		middleware.Recoverer(d.logger),
		middleware.Security(middleware.SecurityConfig{
			IsDevelopment:   cfg.IsDevelopment(),
			CacheablePrefix: cfg.UploadURLPrefix,
		}),
		middleware.CORS(cors),
		middleware.Metrics(d.recorder),
	)

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	if d.metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.metrics)
	}

	limits := middleware.RateLimitConfig{
		Logger:      d.logger,
		Limiter:     d.limiter,
		UserEnabled: cfg.RateLimitAPIEnabled,
		UserRPM:     cfg.RateLimitAPIRPM,
		UserBurst:   cfg.RateLimitAPIBurst,
		IPEnabled:   cfg.RateLimitAuthEnabled,
		IPScope:     "auth",
		IPRPS:       cfg.RateLimitAuthRPS,
		IPBurst:     cfg.RateLimitAuthBurst,
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(
			middleware.MaxBodySize(cfg.MaxRequestBodySize),
			middleware.RateLimitIP(limits),
			middleware.AllowContentTypes("application/json"),
		)
		r.Post("/register", d.accounts.Register)
		r.Post("/login", d.accounts.Login)
	})

	r.Route("/api/notes", func(r chi.Router) {
		r.Use(
			middleware.Auth(middleware.AuthConfig{
				Logger:   d.logger,
				Verifier: d.verifier,
				Metrics:  d.recorder,
			}),
			middleware.RateLimitUser(limits),
			middleware.AllowContentTypes("application/json", "multipart/form-data"),
			// Form fields and multipart framing ride on top of the file.
			middleware.MaxBodySize(cfg.MaxUploadSize+cfg.MaxRequestBodySize),
		)
		r.Get("/", d.notes.List)
		r.Post("/", d.notes.Create)
		r.Put("/{id}", d.notes.Update)
		r.Delete("/{id}", d.notes.Delete)
	})

	if d.uploadsDir != "" {
		prefix := "/" + strings.Trim(cfg.UploadURLPrefix, "/")
		r.Method(http.MethodGet, prefix+"/*", handler.Uploads(prefix, d.uploadsDir))
	}

	h := handler.New()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
