package main

import (
	"strings"
	"time"
)

// Config holds server configuration loaded from environment variables
type Config struct {
	Port        int    `envconfig:"PORT" default:"3000"`
	BaseURL     string `envconfig:"BASE_URL" required:"true"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// StoreBackend selects where states and tokens live: memory or redis
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	RedisURL     string `envconfig:"REDIS_URL"`

	StateTTL           time.Duration `envconfig:"STATE_TTL" default:"10m"`
	StateSweepSchedule string        `envconfig:"STATE_SWEEP_SCHEDULE" default:"@every 1m"`

	TokenRefreshEnabled bool          `envconfig:"TOKEN_REFRESH_ENABLED" default:"false"`
	ProviderTimeout     time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`

	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`

	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For and X-Real-IP
	// headers are honoured; empty means clients are keyed by socket peer
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	SmartThingsClientID     string `envconfig:"SMARTTHINGS_CLIENT_ID"`
	SmartThingsClientSecret string `envconfig:"SMARTTHINGS_CLIENT_SECRET"`
	GoogleClientID          string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret      string `envconfig:"GOOGLE_CLIENT_SECRET"`

	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"35s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// RedirectURI returns the callback URL registered with a provider
func (c Config) RedirectURI(providerName string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/" + providerName + "/callback"
}
