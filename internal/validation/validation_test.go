package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{name: "simple", userID: "user1"},
		{name: "email", userID: "someone@example.com"},
		{name: "empty", userID: "", wantErr: true},
		{name: "whitespace", userID: "   ", wantErr: true},
		{name: "control character", userID: "user\n1", wantErr: true},
		{name: "too long", userID: strings.Repeat("a", MaxUserIDLength+1), wantErr: true},
		{name: "max length", userID: strings.Repeat("a", MaxUserIDLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.userID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUserID(%q) error = %v, wantErr %v", tt.userID, err, tt.wantErr)
			}
			if err != nil {
				var vErr *Error
				if !errors.As(err, &vErr) || vErr.Field != "userId" {
					t.Errorf("expected *Error for userId, got %#v", err)
				}
			}
		})
	}
}

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		deviceID string
		wantErr  bool
	}{
		{deviceID: "6f5ea629-4c05-4a90-a244-cc129b0a80c3"},
		{deviceID: "dev1"},
		{deviceID: "", wantErr: true},
		{deviceID: "../../etc", wantErr: true},
		{deviceID: "has space", wantErr: true},
		{deviceID: strings.Repeat("a", MaxDeviceIDLength+1), wantErr: true},
	}

	for _, tt := range tests {
		if err := ValidateDeviceID(tt.deviceID); (err != nil) != tt.wantErr {
			t.Errorf("ValidateDeviceID(%q) error = %v, wantErr %v", tt.deviceID, err, tt.wantErr)
		}
	}
}

func TestValidateProviderName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "smartthings"},
		{name: "googlehome"},
		{name: "", wantErr: true},
		{name: "SmartThings", wantErr: true},
		{name: "smart things", wantErr: true},
		{name: "1provider", wantErr: true},
	}

	for _, tt := range tests {
		if err := ValidateProviderName(tt.name); (err != nil) != tt.wantErr {
			t.Errorf("ValidateProviderName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidateTemperature(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		temp    *float64
		wantErr string
	}{
		{name: "set", temp: f(22)},
		{name: "negative", temp: f(-5)},
		{name: "missing", temp: nil, wantErr: "invalid temperature: temperature is required"},
		{name: "nan", temp: f(math.NaN()), wantErr: "invalid temperature: must be a finite number"},
		{name: "inf", temp: f(math.Inf(1)), wantErr: "invalid temperature: must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemperature(tt.temp)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateTemperature() error = %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ValidateTemperature() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
