package authstate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// DefaultTTL is how long an issued state stays valid
	DefaultTTL = 10 * time.Minute

	// StateBytes is the amount of randomness per state; hex encoding doubles it
	StateBytes = 32

	// Attempts at finding an unused state before giving up
	maxIssueAttempts = 5
)

// Option configures a Manager
type Option func(*Manager)

// WithTTL sets the state lifetime
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRandom replaces crypto/rand as the source of state bytes
func WithRandom(r io.Reader) Option {
	return func(m *Manager) {
		m.random = r
	}
}

// Manager issues, validates and consumes authorization states
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

// NewManager creates a state manager backed by store
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured state lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a new state bound to provider and userID
func (m *Manager) Issue(ctx context.Context, provider, userID string) (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		state, err := m.generate()
		if err != nil {
			return "", fmt.Errorf("generating state: %w", err)
		}

		err = m.store.Create(ctx, &State{
			State:     state,
			Provider:  provider,
			UserID:    userID,
			CreatedAt: m.now(),
		}, m.ttl)
		if errors.Is(err, ErrStateExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("saving state: %w", err)
		}
		return state, nil
	}
	return "", fmt.Errorf("saving state: %w after %d attempts", ErrStateExists, maxIssueAttempts)
}

// Validate returns the pending entry for state if it exists, has not
// expired and was issued for provider. Expired entries are removed.
func (m *Manager) Validate(ctx context.Context, state, provider string) (*State, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	st, err := m.store.Get(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("getting state: %w", err)
	}
	if st == nil {
		return nil, ErrInvalidState
	}

	if m.expired(st) {
		if _, err := m.store.Delete(ctx, state); err != nil {
			return nil, fmt.Errorf("deleting expired state: %w", err)
		}
		return nil, ErrInvalidState
	}

	if st.Provider != provider {
		return nil, ErrInvalidState
	}
	return st, nil
}

// Consume deletes state. It returns ErrInvalidState when the entry was
// already gone, so of two concurrent callbacks only one proceeds.
func (m *Manager) Consume(ctx context.Context, state string) error {
	existed, err := m.store.Delete(ctx, state)
	if err != nil {
		return fmt.Errorf("deleting state: %w", err)
	}
	if !existed {
		return ErrInvalidState
	}
	return nil
}

// Sweep removes every entry older than the TTL
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	n, err := m.store.Sweep(ctx, m.now().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("sweeping states: %w", err)
	}
	return n, nil
}

// CheckHealth verifies the state store is operational
func (m *Manager) CheckHealth(ctx context.Context) error {
	if err := m.store.CheckHealth(ctx); err != nil {
		return fmt.Errorf("state store health check failed: %w", err)
	}
	return nil
}

func (m *Manager) expired(st *State) bool {
	return m.now().Sub(st.CreatedAt) > m.ttl
}

func (m *Manager) generate() (string, error) {
	b := make([]byte, StateBytes)
	if _, err := io.ReadFull(m.random, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
