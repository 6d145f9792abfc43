package authstate

import "errors"

// Common errors returned by the state manager and its stores
var (
	// ErrInvalidState indicates a state that is unknown, expired, already
	// consumed or bound to a different provider
	ErrInvalidState = errors.New("invalid or expired state parameter")

	// ErrStateExists indicates a store already holds an entry for the state
	ErrStateExists = errors.New("state already exists")
)
