// Package common holds the JSON response helpers shared by all handlers.
package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wrale/oauth2-home-broker/internal/authstate"
	"github.com/wrale/oauth2-home-broker/internal/provider"
	"github.com/wrale/oauth2-home-broker/internal/tokenstore"
	"github.com/wrale/oauth2-home-broker/internal/validation"
)

// Error codes reported in the error field
const (
	ErrorCodeValidation       = "validation_error"
	ErrorCodeInvalidState     = "invalid_state"
	ErrorCodeUnknownProvider  = "unknown_provider"
	ErrorCodeNotConfigured    = "not_configured"
	ErrorCodeUnauthenticated  = "unauthenticated"
	ErrorCodeExchangeFailed   = "provider_exchange_error"
	ErrorCodeCommandFailed    = "provider_command_error"
	ErrorCodeNotSupported     = "not_supported"
	ErrorCodeInternal         = "internal_error"
	ErrorCodeOAuth            = "oauth_error"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeMethodNotAllowed = "method_not_allowed"
)

// ErrorResponse is the error envelope of every JSON endpoint
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Provider         string `json:"provider,omitempty"`
	NeedsAuth        bool   `json:"needsAuth,omitempty"`
	Details          any    `json:"details,omitempty"`
}

// SetJSONHeaders sets the headers of every JSON response
func SetJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		WriteJSONError(w, err)
		return
	}
	SetJSONHeaders(w)
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// WriteError sends an error envelope with status 400
func WriteError(w http.ResponseWriter, code string, description string) {
	WriteErrorResponse(w, http.StatusBadRequest, ErrorResponse{
		Error:            code,
		ErrorDescription: strings.TrimSpace(description),
	})
}

// WriteErrorResponse sends resp with the given status
func WriteErrorResponse(w http.ResponseWriter, status int, resp ErrorResponse) {
	WriteJSON(w, status, resp)
}

// WriteJSONError handles JSON encoding failures with a fixed response
func WriteJSONError(w http.ResponseWriter, err error) {
	SetJSONHeaders(w)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal_error","error_description":"Failed to encode response"}`))
}

// Classify maps an error to its HTTP status and envelope
func Classify(err error) (int, ErrorResponse) {
	var (
		vErr   *validation.Error
		exErr  *provider.ExchangeError
		cmdErr *provider.CommandError
	)

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, ErrorResponse{Error: ErrorCodeValidation, ErrorDescription: vErr.Message}
	case errors.Is(err, authstate.ErrInvalidState):
		return http.StatusBadRequest, ErrorResponse{Error: ErrorCodeInvalidState, ErrorDescription: "Invalid or expired state parameter"}
	case errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusBadRequest, ErrorResponse{Error: ErrorCodeUnknownProvider, ErrorDescription: "Unknown provider"}
	case errors.Is(err, provider.ErrNotConfigured):
		return http.StatusInternalServerError, ErrorResponse{Error: ErrorCodeNotConfigured, ErrorDescription: "Provider OAuth credentials not configured"}
	case errors.Is(err, tokenstore.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{
			Error:            ErrorCodeUnauthenticated,
			ErrorDescription: "User not connected to provider or token expired",
			NeedsAuth:        true,
		}
	case errors.As(err, &exErr):
		return http.StatusBadGateway, ErrorResponse{
			Error:            ErrorCodeExchangeFailed,
			ErrorDescription: "Failed to exchange authorization code for tokens",
			Details:          exErr.Details(),
		}
	case errors.As(err, &cmdErr):
		return http.StatusBadGateway, ErrorResponse{
			Error:            ErrorCodeCommandFailed,
			ErrorDescription: "Provider rejected the " + cmdErr.Op + " request",
			Details:          cmdErr.Details(),
		}
	case errors.Is(err, provider.ErrNotSupported):
		return http.StatusNotImplemented, ErrorResponse{Error: ErrorCodeNotSupported, ErrorDescription: "Operation not supported by provider"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: ErrorCodeInternal, ErrorDescription: "Internal server error"}
	}
}

// WriteAppError classifies err, logs it and writes the envelope. Provider
// is echoed in the response when set.
func WriteAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, providerName string) {
	status, resp := Classify(err)
	resp.Provider = providerName

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", resp.Error,
		"provider", providerName,
		"error", err)

	WriteErrorResponse(w, status, resp)
}
