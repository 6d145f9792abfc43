// Package authstate issues and validates the single-use CSRF state tokens
// that bind an OAuth2 authorization redirect to a user and provider.
package authstate

import (
	"context"
	"time"
)

// State is a pending authorization request
type State struct {
	State     string    `json:"state"`
	Provider  string    `json:"provider"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists pending states
type Store interface {
	// Create saves st unless an entry with the same state exists, in which
	// case it returns ErrStateExists. ttl bounds how long the store must keep it.
	Create(ctx context.Context, st *State, ttl time.Duration) error

	// Get returns the entry for state, or nil if none exists
	Get(ctx context.Context, state string) (*State, error)

	// Delete removes the entry and reports whether it existed
	Delete(ctx context.Context, state string) (bool, error)

	// Sweep removes entries created before cutoff and returns how many were removed
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	// CheckHealth verifies the store is operational
	CheckHealth(ctx context.Context) error
}
