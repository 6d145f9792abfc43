// Package main implements the smart-home OAuth2 broker server
package main

import (
	"net/http"

	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/common"
)

type apiInfo struct {
	Name        string                       `json:"name"`
	Version     string                       `json:"version"`
	Description string                       `json:"description"`
	Providers   []string                     `json:"providers"`
	Endpoints   map[string]map[string]string `json:"endpoints"`
	Usage       map[string]string            `json:"usage"`
}

// API info handler
func (s *server) handleAPIInfo() http.HandlerFunc {
	info := apiInfo{
		Name:        "oauth2-home-broker",
		Version:     Version,
		Description: "OAuth2 and device control API for smart-home climate devices",
		Providers:   s.registry.Names(),
		Endpoints: map[string]map[string]string{
			"auth": {
				"GET /auth/{provider}/start":         "Start OAuth flow",
				"GET /auth/{provider}/callback":      "OAuth callback",
				"GET /auth/{provider}/status":        "Check connection status",
				"DELETE /auth/{provider}/disconnect": "Disconnect provider",
			},
			"devices": {
				"GET /api/devices":                   "Get user devices",
				"GET /api/devices/{id}/status":       "Get device status",
				"POST /api/devices/{id}/turn-on":     "Turn on AC",
				"POST /api/devices/{id}/turn-off":    "Turn off AC",
				"POST /api/devices/{id}/temperature": "Set AC temperature",
			},
		},
		Usage: map[string]string{
			"baseUrl":       s.cfg.BaseURL,
			"authFlow":      "Start at /auth/{provider}/start?userId=123",
			"deviceControl": "Requires OAuth token from connected provider",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		common.WriteJSON(w, http.StatusOK, info)
	}
}

func (s *server) handleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.WriteErrorResponse(w, http.StatusNotFound, common.ErrorResponse{
			Error:            common.ErrorCodeNotFound,
			ErrorDescription: "Endpoint not found: " + r.URL.Path,
		})
	}
}

func (s *server) handleMethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.WriteErrorResponse(w, http.StatusMethodNotAllowed, common.ErrorResponse{
			Error:            common.ErrorCodeMethodNotAllowed,
			ErrorDescription: r.Method + " not allowed on " + r.URL.Path,
		})
	}
}
