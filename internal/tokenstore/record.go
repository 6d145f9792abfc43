// Package tokenstore keeps OAuth2 tokens per user and provider and tracks
// their expiry.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthenticated indicates no usable token exists for the user and provider
var ErrUnauthenticated = errors.New("not authenticated with provider")

// Record is a stored token set
type Record struct {
	UserID       string    `json:"userId"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"` // Zero when the provider reported no lifetime
	CreatedAt    time.Time `json:"createdAt"`
}

// Expired reports whether the access token is past its expiry at now.
// A record without an expiry never expires.
func (r *Record) Expired(now time.Time) bool {
	if r.ExpiresAt.IsZero() {
		return false
	}
	return now.After(r.ExpiresAt)
}

// Backend persists records keyed by (userID, provider)
type Backend interface {
	// Put stores rec, replacing any existing record for the same key
	Put(ctx context.Context, rec *Record) error

	// Get returns the record or nil if none exists
	Get(ctx context.Context, userID, provider string) (*Record, error)

	// Delete removes the record and reports whether it existed
	Delete(ctx context.Context, userID, provider string) (bool, error)

	// CheckHealth verifies the backend is operational
	CheckHealth(ctx context.Context) error
}
