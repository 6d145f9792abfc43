package tokenstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wrale/oauth2-home-broker/internal/provider"
)

// Refresher performs a refresh-token grant against a named provider
type Refresher interface {
	Refresh(ctx context.Context, providerName, refreshToken string) (*provider.TokenResponse, error)
}

// Status describes a user's connection to a provider
type Status struct {
	Provider     string
	Exists       bool
	Connected    bool
	NeedsRefresh bool
	ConnectedAt  *time.Time
	ExpiresAt    *time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRefresher enables refreshing expired tokens on Get
func WithRefresher(r Refresher) Option {
	return func(s *Store) {
		s.refresher = r
	}
}

// WithLogger sets the logger used for expiry and refresh events
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store manages the token lifecycle on top of a Backend
type Store struct {
	backend   Backend
	refresher Refresher
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a token store
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshEnabled reports whether expired tokens are refreshed on Get
func (s *Store) RefreshEnabled() bool {
	return s.refresher != nil
}

// Save records the result of a grant, replacing any existing record
func (s *Store) Save(ctx context.Context, userID, providerName string, tok *provider.TokenResponse) (*Record, error) {
	now := s.now()
	rec := &Record{
		UserID:       userID,
		Provider:     providerName,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		CreatedAt:    now,
	}
	// expires_in is optional; without it the token is kept until revoked
	if tok.ExpiresIn > 0 {
		rec.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving token: %w", err)
	}
	return rec, nil
}

// Get returns a usable access token or ErrUnauthenticated
func (s *Store) Get(ctx context.Context, userID, providerName string) (string, error) {
	rec, err := s.backend.Get(ctx, userID, providerName)
	if err != nil {
		return "", fmt.Errorf("getting token: %w", err)
	}
	if rec == nil {
		return "", ErrUnauthenticated
	}
	if !rec.Expired(s.now()) {
		return rec.AccessToken, nil
	}

	s.logger.Warn("token expired",
		"user_id", userID,
		"provider", providerName,
		"expires_at", rec.ExpiresAt)

	if s.refresher == nil || rec.RefreshToken == "" {
		return "", ErrUnauthenticated
	}
	return s.refresh(ctx, rec)
}

func (s *Store) refresh(ctx context.Context, rec *Record) (string, error) {
	tok, err := s.refresher.Refresh(ctx, rec.Provider, rec.RefreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed",
			"user_id", rec.UserID,
			"provider", rec.Provider,
			"error", err)
		return "", fmt.Errorf("%w: refresh failed", ErrUnauthenticated)
	}

	// Providers may omit the refresh token when it is not rotated
	if tok.RefreshToken == "" {
		tok.RefreshToken = rec.RefreshToken
	}

	updated, err := s.Save(ctx, rec.UserID, rec.Provider, tok)
	if err != nil {
		return "", err
	}
	s.logger.Info("token refreshed",
		"user_id", rec.UserID,
		"provider", rec.Provider,
		"expires_at", updated.ExpiresAt)
	return updated.AccessToken, nil
}

// Delete removes the record; it is a no-op when none exists
func (s *Store) Delete(ctx context.Context, userID, providerName string) (bool, error) {
	existed, err := s.backend.Delete(ctx, userID, providerName)
	if err != nil {
		return false, fmt.Errorf("deleting token: %w", err)
	}
	return existed, nil
}

// Status reports the connection state without refreshing
func (s *Store) Status(ctx context.Context, userID, providerName string) (*Status, error) {
	rec, err := s.backend.Get(ctx, userID, providerName)
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	st := &Status{Provider: providerName}
	if rec == nil {
		return st, nil
	}

	expired := rec.Expired(s.now())
	connectedAt := rec.CreatedAt
	st.Exists = true
	st.Connected = !expired
	st.NeedsRefresh = expired
	st.ConnectedAt = &connectedAt
	if !rec.ExpiresAt.IsZero() {
		expiresAt := rec.ExpiresAt
		st.ExpiresAt = &expiresAt
	}
	return st, nil
}

// CheckHealth verifies the backend is operational
func (s *Store) CheckHealth(ctx context.Context) error {
	if err := s.backend.CheckHealth(ctx); err != nil {
		return fmt.Errorf("token store health check failed: %w", err)
	}
	return nil
}
