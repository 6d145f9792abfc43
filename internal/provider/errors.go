package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors returned by adapters and the registry
var (
	// ErrUnknownProvider indicates no adapter is registered under the requested name
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNotConfigured indicates the provider has no client credentials
	ErrNotConfigured = errors.New("provider credentials not configured")

	// ErrNotSupported indicates the adapter does not implement the operation
	ErrNotSupported = errors.New("operation not supported by provider")
)

// ExchangeError is returned when a token grant fails. Body holds the
// provider's error payload exactly as received.
type ExchangeError struct {
	Provider   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s token exchange failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s token exchange failed: %v", e.Provider, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Details returns the raw provider payload for inclusion in error responses
func (e *ExchangeError) Details() any { return rawDetails(e.Body, e.Err) }

// CommandError is returned when a device API call fails. Op names the call,
// Body holds the provider's response body exactly as received.
type CommandError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *CommandError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d", e.Provider, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Details returns the raw provider payload for inclusion in error responses
func (e *CommandError) Details() any { return rawDetails(e.Body, e.Err) }

// rawDetails keeps JSON payloads as JSON and everything else as text
func rawDetails(body []byte, err error) any {
	if len(body) > 0 {
		if json.Valid(body) {
			return json.RawMessage(body)
		}
		return string(body)
	}
	if err != nil {
		return err.Error()
	}
	return nil
}
