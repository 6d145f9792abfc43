// Package devices implements the device listing, status and control endpoints.
package devices

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/common"
	"github.com/wrale/oauth2-home-broker/internal/dispatch"
	"github.com/wrale/oauth2-home-broker/internal/provider"
)

// Upper bound on command request bodies
const maxBodyBytes = 64 << 10

// Dispatcher runs device operations for a user
type Dispatcher interface {
	ListDevices(ctx context.Context, userID, providerName string) ([]provider.Device, error)
	DeviceStatus(ctx context.Context, userID, deviceID, providerName string) (*provider.Status, error)
	TurnOn(ctx context.Context, req dispatch.TurnOnRequest) (*dispatch.Result, error)
	TurnOff(ctx context.Context, userID, deviceID, providerName string) (*dispatch.Result, error)
	SetTemperature(ctx context.Context, userID, deviceID, providerName string, temperature *float64) (*dispatch.Result, error)
}

// Handler serves the device endpoints
type Handler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// Config contains handler configuration
type Config struct {
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

// New creates the devices handler
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{dispatcher: cfg.Dispatcher, logger: logger}
}

// Routes mounts the endpoints on r; r is expected at /devices or /api/devices
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}/status", h.Status)
	r.Post("/{id}/turn-on", h.TurnOn)
	r.Post("/{id}/turn-off", h.TurnOff)
	r.Post("/{id}/temperature", h.SetTemperature)
}

type listResponse struct {
	Success  bool              `json:"success"`
	Devices  []provider.Device `json:"devices"`
	Provider string            `json:"provider"`
	Count    int               `json:"count"`
}

// List returns the user's climate devices
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, name := queryTarget(r)

	devices, err := h.dispatcher.ListDevices(r.Context(), userID, name)
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}
	if devices == nil {
		devices = []provider.Device{}
	}

	common.WriteJSON(w, http.StatusOK, listResponse{
		Success:  true,
		Devices:  devices,
		Provider: name,
		Count:    len(devices),
	})
}

type statusResponse struct {
	Success      bool             `json:"success"`
	DeviceStatus *provider.Status `json:"deviceStatus"`
	Provider     string           `json:"provider"`
}

// Status returns the normalized status of one device
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, name := queryTarget(r)

	status, err := h.dispatcher.DeviceStatus(r.Context(), userID, chi.URLParam(r, "id"), name)
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}

	common.WriteJSON(w, http.StatusOK, statusResponse{
		Success:      true,
		DeviceStatus: status,
		Provider:     name,
	})
}

// commandRequest is the body of every command endpoint
type commandRequest struct {
	UserID      string   `json:"userId"`
	Provider    string   `json:"provider"`
	Temperature *float64 `json:"temperature"`
	FanMode     *string  `json:"fanMode"`
}

type commandResponse struct {
	Success bool `json:"success"`
	*dispatch.Result
}

// TurnOn powers the device on in cooling mode
func (h *Handler) TurnOn(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.dispatcher.TurnOn(r.Context(), dispatch.TurnOnRequest{
		UserID:      req.UserID,
		DeviceID:    chi.URLParam(r, "id"),
		Provider:    req.Provider,
		Temperature: req.Temperature,
		FanMode:     req.FanMode,
	})
	h.respond(w, r, req.Provider, res, err)
}

// TurnOff powers the device off
func (h *Handler) TurnOff(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.dispatcher.TurnOff(r.Context(), req.UserID, chi.URLParam(r, "id"), req.Provider)
	h.respond(w, r, req.Provider, res, err)
}

// SetTemperature changes the cooling setpoint
func (h *Handler) SetTemperature(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.dispatcher.SetTemperature(r.Context(), req.UserID, chi.URLParam(r, "id"), req.Provider, req.Temperature)
	h.respond(w, r, req.Provider, res, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (commandRequest, bool) {
	var req commandRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("malformed command body", "path", r.URL.Path, "error", err)
		common.WriteError(w, common.ErrorCodeValidation, "Request body must be a JSON object")
		return req, false
	}
	if req.Provider == "" {
		req.Provider = dispatch.DefaultProvider
	}
	return req, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, name string, res *dispatch.Result, err error) {
	if err != nil {
		common.WriteAppError(w, r, h.logger, err, name)
		return
	}
	common.WriteJSON(w, http.StatusOK, commandResponse{Success: true, Result: res})
}

func queryTarget(r *http.Request) (userID, providerName string) {
	q := r.URL.Query()
	providerName = q.Get("provider")
	if providerName == "" {
		providerName = dispatch.DefaultProvider
	}
	return q.Get("userId"), providerName
}
