package main

import "testing"

func TestRedirectURI(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{baseURL: "https://broker.example.com", want: "https://broker.example.com/auth/smartthings/callback"},
		{baseURL: "https://broker.example.com/", want: "https://broker.example.com/auth/smartthings/callback"},
		{baseURL: "http://localhost:3000", want: "http://localhost:3000/auth/smartthings/callback"},
	}

	for _, tt := range tests {
		cfg := Config{BaseURL: tt.baseURL}
		if got := cfg.RedirectURI("smartthings"); got != tt.want {
			t.Errorf("RedirectURI(%q) = %q, want %q", tt.baseURL, got, tt.want)
		}
	}
}
