package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/wrale/oauth2-home-broker/internal/authstate"
	"github.com/wrale/oauth2-home-broker/internal/jobs"
	"github.com/wrale/oauth2-home-broker/internal/logging"
	"github.com/wrale/oauth2-home-broker/internal/provider"
	"github.com/wrale/oauth2-home-broker/internal/ratelimit"
	"github.com/wrale/oauth2-home-broker/internal/tokenstore"
)

// Version is set by the build process
var Version = "dev"

// Store backends selectable with STORE_BACKEND
const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Initialize logger
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	// Open state and token stores
	stateStore, tokenBackend, closeStores, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	// Register providers
	registry := newRegistry(cfg)
	for name, err := range registry.CheckHealth(context.Background()) {
		if err != nil {
			logger.Warn("provider not configured", "provider", name)
		}
	}

	// Create state manager and token store
	states := authstate.NewManager(stateStore, authstate.WithTTL(cfg.StateTTL))

	tokenOpts := []tokenstore.Option{tokenstore.WithLogger(logger)}
	if cfg.TokenRefreshEnabled {
		tokenOpts = append(tokenOpts, tokenstore.WithRefresher(registry))
	}
	tokens := tokenstore.New(tokenBackend, tokenOpts...)

	// Create rate limiter
	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// Schedule maintenance jobs
	scheduler := jobs.NewScheduler(logger, time.Minute)
	if err := scheduler.Add(cfg.StateSweepSchedule, "state-sweep", jobs.SweepStates(states, logger)); err != nil {
		return err
	}
	if err := scheduler.Add("@every 5m", "ratelimit-prune", jobs.PruneClients(limiter, cfg.RateLimitWindow, logger)); err != nil {
		return err
	}

	// Create server
	srv, err := newServer(cfg, dependencies{
		Logger:   logger,
		States:   states,
		Tokens:   tokens,
		Registry: registry,
		Limiter:  limiter,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// Start server
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"frontend_url", cfg.FrontendURL,
			"store_backend", cfg.StoreBackend,
			"token_refresh", cfg.TokenRefreshEnabled,
			"version", Version)
		serverErrors <- httpServer.ListenAndServe()
	}()
	scheduler.Start()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		// Give outstanding requests time to complete
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		scheduler.Stop(ctx)
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutting down server", "error", err)
			if err := httpServer.Close(); err != nil {
				logger.Error("closing server", "error", err)
			}
		}
		return nil
	}
}

// newRegistry builds the provider adapters. Providers without credentials
// are still registered so their routes report not_configured.
func newRegistry(cfg Config) *provider.Registry {
	timeout := provider.WithTimeout(cfg.ProviderTimeout)

	return provider.NewRegistry(
		provider.NewSmartThings(provider.Config{
			ClientID:     cfg.SmartThingsClientID,
			ClientSecret: cfg.SmartThingsClientSecret,
			RedirectURI:  cfg.RedirectURI(provider.SmartThingsName),
		}, timeout),
		provider.NewGoogleHome(provider.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.RedirectURI(provider.GoogleHomeName),
		}, timeout),
	)
}

// openStores creates the state store and token backend for STORE_BACKEND
func openStores(cfg Config, logger *slog.Logger) (authstate.Store, tokenstore.Backend, func(), error) {
	switch cfg.StoreBackend {
	case backendMemory:
		logger.Warn("using in-memory stores; connections are lost on restart")
		return authstate.NewMemoryStore(), tokenstore.NewMemoryBackend(), func() {}, nil

	case backendRedis:
		if cfg.RedisURL == "" {
			return nil, nil, nil, errors.New("REDIS_URL is required when STORE_BACKEND=redis")
		}
		// Create Redis client
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		client := redis.NewClient(opts)

		// Verify Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}

		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Error("closing Redis connection", "error", err)
			}
		}
		return authstate.NewRedisStore(client), tokenstore.NewRedisBackend(client), closeFn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", cfg.StoreBackend, backendMemory, backendRedis)
	}
}
