package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"podpal/internal/api/handler"
	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/common"
	"podpal/internal/common/security"
)

// Deps is everything the HTTP layer needs. Optional fields may be left zero.
type Deps struct {
	Auth          *service.AuthService
	Admin         *service.AdminService
	Profile       *service.ProfileService
	Channel       *service.ChannelService
	Podcast       *service.PodcastService
	Transcription *service.TranscriptionService

	Tokens *security.TokenIssuer
	Logger *slog.Logger

	AuthLimiter    middleware.RateLimiter // nil disables throttling
	MaxUploadBytes int64
	Metrics        http.Handler // served at /metrics when set
	UploadDir      string       // local uploads served at /uploads when set
	HealthChecks   map[string]handler.HealthCheck
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifier never rejects; routes opt in to enforcement with
	// middleware.Authenticator.
	r.Use(middleware.Verifier(d.Tokens))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(d.HealthChecks))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}

	var limit func(string) func(http.Handler) http.Handler
	if d.AuthLimiter != nil {
		limit = func(operation string) func(http.Handler) http.Handler {
			return middleware.RateLimit(d.AuthLimiter, operation)
		}
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		handler.NewAuthHandler(d.Auth).RegisterRoutes(v1, limit)

		adminHandler := handler.NewAdminHandler(d.Admin)
		v1.Route("/admin", func(admin chi.Router) {
			adminHandler.RegisterRoutes(admin, limit)
		})

		v1.Route("/me", handler.NewProfileHandler(d.Profile).RegisterRoutes)
		v1.Route("/channels", handler.NewChannelHandler(d.Channel).RegisterRoutes)
		v1.Route("/podcasts", handler.NewPodcastHandler(d.Podcast, d.MaxUploadBytes).RegisterRoutes)
		v1.Route("/transcriptions", handler.NewTranscriptionHandler(d.Transcription).RegisterRoutes)
	})

	return r
}
