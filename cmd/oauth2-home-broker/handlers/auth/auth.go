// Package auth implements the OAuth2 connect, callback, status and
// disconnect endpoints.
package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/common"
	"github.com/wrale/oauth2-home-broker/internal/authstate"
	"github.com/wrale/oauth2-home-broker/internal/provider"
	"github.com/wrale/oauth2-home-broker/internal/templates"
	"github.com/wrale/oauth2-home-broker/internal/tokenstore"
	"github.com/wrale/oauth2-home-broker/internal/validation"
)

// Seconds before the confirmation page closes itself
const autoCloseSeconds = 3

// StateManager issues and checks authorization states
type StateManager interface {
	Issue(ctx context.Context, providerName, userID string) (string, error)
	Validate(ctx context.Context, state, providerName string) (*authstate.State, error)
	Consume(ctx context.Context, state string) error
}

// TokenStore persists the tokens obtained in the callback
type TokenStore interface {
	Save(ctx context.Context, userID, providerName string, tok *provider.TokenResponse) (*tokenstore.Record, error)
	Delete(ctx context.Context, userID, providerName string) (bool, error)
	Status(ctx context.Context, userID, providerName string) (*tokenstore.Status, error)
}

// Providers resolves provider names to adapters
type Providers interface {
	Lookup(name string) (provider.Adapter, error)
}

// Handler serves the /auth/{provider}/... endpoints
type Handler struct {
	states    StateManager
	tokens    TokenStore
	providers Providers
	templates *templates.Templates
	logger    *slog.Logger
}

// Config contains handler configuration
type Config struct {
	States    StateManager
	Tokens    TokenStore
	Providers Providers
	Templates *templates.Templates
	Logger    *slog.Logger
}

// New creates the auth handler
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		states:    cfg.States,
		tokens:    cfg.Tokens,
		providers: cfg.Providers,
		templates: cfg.Templates,
		logger:    logger,
	}
}

// Routes mounts the endpoints on r; r is expected at /auth
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{provider}/start", h.Start)
	r.Get("/{provider}/callback", h.Callback)
	r.Get("/{provider}/status", h.Status)
	r.Delete("/{provider}/disconnect", h.Disconnect)
}

type startResponse struct {
	Success  bool   `json:"success"`
	AuthURL  string `json:"authUrl"`
	State    string `json:"state"`
	Provider string `json:"provider"`
}

// Start issues a state and returns the provider authorization URL
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	userID := r.URL.Query().Get("userId")

	if err := validation.ValidateUserID(userID); err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}
	adapter, err := h.lookup(name)
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}
	if err := adapter.CheckHealth(r.Context()); err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	state, err := h.states.Issue(r.Context(), name, userID)
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	h.logger.Info("starting oauth flow", "provider", name, "user_id", userID)
	common.WriteJSON(w, http.StatusOK, startResponse{
		Success:  true,
		AuthURL:  adapter.AuthorizationURL(state),
		State:    state,
		Provider: name,
	})
}

// Callback completes the authorization-code grant. The state survives a
// failed exchange and is consumed after a successful one; only the caller
// that consumes it stores the token.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	q := r.URL.Query()

	adapter, err := h.lookup(name)
	if err != nil {
		h.callbackError(w, r, err, name)
		return
	}

	if oauthErr := q.Get("error"); oauthErr != "" {
		h.logger.Warn("oauth error from provider",
			"provider", name,
			"error", oauthErr,
			"error_description", q.Get("error_description"))
		h.callbackFailure(w, r, http.StatusBadRequest, common.ErrorResponse{
			Error:            common.ErrorCodeOAuth,
			ErrorDescription: "OAuth error: " + oauthErr,
			Provider:         name,
		})
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.callbackFailure(w, r, http.StatusBadRequest, common.ErrorResponse{
			Error:            common.ErrorCodeValidation,
			ErrorDescription: "Missing authorization code or state parameter",
			Provider:         name,
		})
		return
	}

	pending, err := h.states.Validate(r.Context(), state, name)
	if err != nil {
		h.callbackError(w, r, err, name)
		return
	}

	tok, err := adapter.Exchange(r.Context(), code)
	if err != nil {
		h.callbackError(w, r, err, name)
		return
	}

	// A concurrent callback for the same state may have won already
	if err := h.states.Consume(r.Context(), state); err != nil {
		h.callbackError(w, r, err, name)
		return
	}

	if _, err := h.tokens.Save(r.Context(), pending.UserID, name, tok); err != nil {
		h.callbackError(w, r, err, name)
		return
	}
	h.logger.Info("provider connected", "provider", name, "user_id", pending.UserID)

	if h.templates == nil {
		common.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "provider": name})
		return
	}
	if err := h.templates.RenderConnected(w, templates.ConnectedData{
		ProviderName:     adapter.DisplayName(),
		AutoCloseSeconds: autoCloseSeconds,
	}); err != nil {
		h.logger.Error("rendering connected page", "error", err)
		common.WriteJSONError(w, err)
	}
}

type statusResponse struct {
	Connected    bool   `json:"connected"`
	Provider     string `json:"provider"`
	ConnectedAt  *int64 `json:"connectedAt,omitempty"`
	ExpiresAt    *int64 `json:"expiresAt,omitempty"`
	NeedsRefresh bool   `json:"needsRefresh"`
}

// Status reports whether the user holds a live token for the provider.
// Timestamps are epoch milliseconds.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	userID := r.URL.Query().Get("userId")

	if err := validation.ValidateUserID(userID); err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}
	if _, err := h.lookup(name); err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	st, err := h.tokens.Status(r.Context(), userID, name)
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	resp := statusResponse{
		Connected:    st.Connected,
		Provider:     name,
		NeedsRefresh: st.NeedsRefresh,
	}
	if st.ConnectedAt != nil {
		ms := st.ConnectedAt.UnixMilli()
		resp.ConnectedAt = &ms
	}
	if st.ExpiresAt != nil {
		ms := st.ExpiresAt.UnixMilli()
		resp.ExpiresAt = &ms
	}
	common.WriteJSON(w, http.StatusOK, resp)
}

type disconnectResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	WasConnected bool   `json:"wasConnected"`
}

// Disconnect removes the stored token; it succeeds whether or not one existed
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	userID := r.URL.Query().Get("userId")

	if err := validation.ValidateUserID(userID); err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}
	if _, err := h.lookup(name); err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	existed, err := h.tokens.Delete(r.Context(), userID, name)
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	h.logger.Info("provider disconnected", "provider", name, "user_id", userID, "was_connected", existed)
	common.WriteJSON(w, http.StatusOK, disconnectResponse{
		Success:      true,
		Message:      name + " disconnected successfully",
		WasConnected: existed,
	})
}

func (h *Handler) lookup(name string) (provider.Adapter, error) {
	if err := validation.ValidateProviderName(name); err != nil {
		return nil, err
	}
	return h.providers.Lookup(name)
}

func (h *Handler) callbackError(w http.ResponseWriter, r *http.Request, err error, name string) {
	status, resp := common.Classify(err)
	resp.Provider = name

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "oauth callback failed", "provider", name, "status", status, "error", err)

	h.callbackFailure(w, r, status, resp)
}

// callbackFailure renders an HTML page for browsers and the JSON envelope
// for everything else
func (h *Handler) callbackFailure(w http.ResponseWriter, r *http.Request, status int, resp common.ErrorResponse) {
	if h.templates == nil || !strings.Contains(r.Header.Get("Accept"), "text/html") {
		common.WriteErrorResponse(w, status, resp)
		return
	}
	if err := h.templates.RenderError(w, status, templates.ErrorData{
		Title:   "Authorization Failed",
		Message: resp.ErrorDescription,
	}); err != nil {
		h.logger.Error("rendering error page", "error", err)
		common.WriteErrorResponse(w, status, resp)
	}
}
