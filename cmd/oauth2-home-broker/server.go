package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/auth"
	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/devices"
	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/health"
	"github.com/wrale/oauth2-home-broker/internal/authstate"
	"github.com/wrale/oauth2-home-broker/internal/dispatch"
	"github.com/wrale/oauth2-home-broker/internal/provider"
	"github.com/wrale/oauth2-home-broker/internal/ratelimit"
	"github.com/wrale/oauth2-home-broker/internal/templates"
	"github.com/wrale/oauth2-home-broker/internal/tokenstore"
)

// Bounds every request, including outbound provider calls made for it
const requestTimeout = 30 * time.Second

type server struct {
	cfg        Config
	router     *chi.Mux
	logger     *slog.Logger
	states     *authstate.Manager
	tokens     *tokenstore.Store
	registry   *provider.Registry
	dispatcher *dispatch.Dispatcher
	limiter    *ratelimit.Limiter
	templates  *templates.Templates
}

type dependencies struct {
	Logger   *slog.Logger
	States   *authstate.Manager
	Tokens   *tokenstore.Store
	Registry *provider.Registry
	Limiter  *ratelimit.Limiter
}

func newServer(cfg Config, deps dependencies) (*server, error) {
	// Load HTML templates
	tmpls, err := templates.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	// Parse proxies allowed to set the client address
	trusted, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	srv := &server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		logger:     deps.Logger,
		states:     deps.States,
		tokens:     deps.Tokens,
		registry:   deps.Registry,
		dispatcher: dispatch.New(deps.Tokens, deps.Registry, dispatch.WithLogger(deps.Logger)),
		limiter:    deps.Limiter,
		templates:  tmpls,
	}

	// Add middleware
	srv.router.Use(middleware.RequestID)
	srv.router.Use(ratelimit.RealIP(trusted))
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.Timeout(requestTimeout))
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Setup routes
	srv.routes()
	return srv, nil
}

func (s *server) routes() {
	// JSON errors for unmatched routes
	s.router.NotFound(s.handleNotFound())
	s.router.MethodNotAllowed(s.handleMethodNotAllowed())

	// Health check endpoint, never rate limited
	s.router.Method(http.MethodGet, "/health", health.New(health.Config{
		Components: map[string]health.Checker{
			"state_store": s.states,
			"token_store": s.tokens,
		},
		Providers:   s.registry,
		Version:     Version,
		Environment: s.cfg.Environment,
	}))

	// Create handlers
	authHandler := auth.New(auth.Config{
		States:    s.states,
		Tokens:    s.tokens,
		Providers: s.registry,
		Templates: s.templates,
		Logger:    s.logger,
	})
	deviceHandler := devices.New(devices.Config{
		Dispatcher: s.dispatcher,
		Logger:     s.logger,
	})

	// Rate-limited API routes
	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}

		r.Get("/api", s.handleAPIInfo())
		r.Route("/auth", authHandler.Routes)
		r.Route("/devices", deviceHandler.Routes)
		r.Route("/api/devices", deviceHandler.Routes)
	})
}
