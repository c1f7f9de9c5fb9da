package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/eyecare-clinic-api/internal/admin"
	"github.com/wolfman30/eyecare-clinic-api/internal/booking"
	"github.com/wolfman30/eyecare-clinic-api/internal/contact"
	"github.com/wolfman30/eyecare-clinic-api/internal/health"
	httpmiddleware "github.com/wolfman30/eyecare-clinic-api/internal/http/middleware"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	BookingHandler     *booking.Handler
	ContactHandler     *contact.Handler
	AdminHandler       *admin.Handler
	HealthHandler      *health.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the peer
	// address. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders  bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Live)
			public.Get("/ready", cfg.HealthHandler.Ready)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient-facing forms. Compression stays off the admin group so the
	// websocket upgrade is not wrapped.
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Compress(5))
		if cfg.BookingHandler != nil {
			cfg.BookingHandler.Routes(api)
		}
		if cfg.ContactHandler != nil {
			cfg.ContactHandler.Routes(api)
		}
	})

	// Admin board (login is public, everything else needs a session)
	if cfg.AdminHandler != nil {
		r.Route("/admin", cfg.AdminHandler.Routes)
	}

	return r
}
