// Package validation checks request parameters before they reach the
// state manager, token store or a provider.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Validation settings
const (
	MaxUserIDLength   = 256
	MaxDeviceIDLength = 128
)

var (
	// Provider keys are short lowercase identifiers such as "smartthings"
	providerRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

	// Device IDs are opaque provider identifiers, usually UUIDs
	deviceRegex = regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9._:-]{1,%d}$`, MaxDeviceIDLength))
)

// Error reports an invalid request parameter
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Required fails when value is empty after trimming whitespace
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateUserID checks a caller supplied user identifier
func ValidateUserID(userID string) error {
	if err := Required("userId", userID); err != nil {
		return err
	}
	if len(userID) > MaxUserIDLength {
		return &Error{
			Field:   "userId",
			Message: fmt.Sprintf("must be at most %d characters", MaxUserIDLength),
		}
	}
	for _, r := range userID {
		if unicode.IsControl(r) {
			return &Error{Field: "userId", Message: "must not contain control characters"}
		}
	}
	return nil
}

// ValidateDeviceID checks a provider device identifier
func ValidateDeviceID(deviceID string) error {
	if err := Required("deviceId", deviceID); err != nil {
		return err
	}
	if !deviceRegex.MatchString(deviceID) {
		return &Error{Field: "deviceId", Message: "contains unsupported characters"}
	}
	return nil
}

// ValidateProviderName checks the format of a provider key. Whether the
// provider is registered is decided by the registry.
func ValidateProviderName(name string) error {
	if err := Required("provider", name); err != nil {
		return err
	}
	if !providerRegex.MatchString(name) {
		return &Error{Field: "provider", Message: "must be a lowercase provider key"}
	}
	return nil
}

// ValidateTemperature requires a finite setpoint
func ValidateTemperature(t *float64) error {
	if t == nil {
		return &Error{Field: "temperature", Message: "temperature is required"}
	}
	if math.IsNaN(*t) || math.IsInf(*t, 0) {
		return &Error{Field: "temperature", Message: "must be a finite number"}
	}
	return nil
}
