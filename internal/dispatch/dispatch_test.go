package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wrale/oauth2-home-broker/internal/provider"
	"github.com/wrale/oauth2-home-broker/internal/tokenstore"
)

type mockTokens struct {
	calls  int
	tokens map[string]string
}

func (m *mockTokens) Get(ctx context.Context, userID, providerName string) (string, error) {
	m.calls++
	tok, ok := m.tokens[userID+"/"+providerName]
	if !ok {
		return "", tokenstore.ErrUnauthenticated
	}
	return tok, nil
}

type mockAdapter struct {
	provider.Adapter // unused methods panic

	name     string
	token    string
	deviceID string
	commands []provider.Command
	sendErr  error
	devices  []provider.Device
	status   *provider.Status
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) SendCommands(ctx context.Context, accessToken, deviceID string, commands []provider.Command) (json.RawMessage, error) {
	m.token, m.deviceID, m.commands = accessToken, deviceID, commands
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return json.RawMessage(`{"results":[]}`), nil
}

func (m *mockAdapter) ListDevices(ctx context.Context, accessToken string) ([]provider.Device, error) {
	m.token = accessToken
	return m.devices, nil
}

func (m *mockAdapter) DeviceStatus(ctx context.Context, accessToken, deviceID string) (*provider.Status, error) {
	m.token, m.deviceID = accessToken, deviceID
	return m.status, nil
}

type mockLookup map[string]provider.Adapter

func (m mockLookup) Lookup(name string) (provider.Adapter, error) {
	a, ok := m[name]
	if !ok {
		return nil, provider.ErrUnknownProvider
	}
	return a, nil
}

var fixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDispatcher() (*Dispatcher, *mockAdapter, *mockTokens) {
	adapter := &mockAdapter{name: "smartthings"}
	tokens := &mockTokens{tokens: map[string]string{"user1/smartthings": "at"}}
	d := New(tokens, mockLookup{"smartthings": adapter}, WithClock(func() time.Time { return fixedTime }))
	return d, adapter, tokens
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestTurnOnCommands(t *testing.T) {
	got := TurnOnCommands(24, "low")
	want := []provider.Command{
		{Component: "main", Capability: "switch", Command: "on"},
		{Component: "main", Capability: "airConditionerMode", Command: "setAirConditionerMode", Arguments: []any{"cool"}},
		{Component: "main", Capability: "thermostatCoolingSetpoint", Command: "setCoolingSetpoint", Arguments: []any{24.0}},
		{Component: "main", Capability: "airConditionerFanMode", Command: "setAirConditionerFanMode", Arguments: []any{"low"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TurnOnCommands() mismatch (-want +got):\n%s", diff)
	}

	if n := len(TurnOnCommands(24, "")); n != 3 {
		t.Errorf("TurnOnCommands() without fan mode returned %d commands, want 3", n)
	}
}

func TestTurnOn(t *testing.T) {
	tests := []struct {
		name         string
		req          TurnOnRequest
		wantCommands []provider.Command
		wantSettings Settings
	}{
		{
			name:         "defaults",
			req:          TurnOnRequest{UserID: "user1", DeviceID: "dev1"},
			wantCommands: TurnOnCommands(22, "auto"),
			wantSettings: Settings{Mode: "cool", Temperature: f64(22), FanMode: str("auto"), Power: "on"},
		},
		{
			name:         "explicit settings",
			req:          TurnOnRequest{UserID: "user1", DeviceID: "dev1", Provider: "smartthings", Temperature: f64(19.5), FanMode: str("high")},
			wantCommands: TurnOnCommands(19.5, "high"),
			wantSettings: Settings{Mode: "cool", Temperature: f64(19.5), FanMode: str("high"), Power: "on"},
		},
		{
			name:         "empty fan mode skips fan command",
			req:          TurnOnRequest{UserID: "user1", DeviceID: "dev1", FanMode: str("")},
			wantCommands: TurnOnCommands(22, ""),
			wantSettings: Settings{Mode: "cool", Temperature: f64(22), FanMode: str(""), Power: "on"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, adapter, _ := newTestDispatcher()

			res, err := d.TurnOn(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("TurnOn() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantCommands, adapter.commands); diff != "" {
				t.Errorf("commands mismatch (-want +got):\n%s", diff)
			}
			if adapter.token != "at" || adapter.deviceID != "dev1" {
				t.Errorf("adapter called with token %q device %q", adapter.token, adapter.deviceID)
			}

			want := &Result{
				Action:      ActionTurnOn,
				DeviceID:    "dev1",
				Provider:    "smartthings",
				Settings:    tt.wantSettings,
				Timestamp:   fixedTime,
				ProviderAck: json.RawMessage(`{"results":[]}`),
			}
			if diff := cmp.Diff(want, res); diff != "" {
				t.Errorf("TurnOn() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTurnOff(t *testing.T) {
	d, adapter, _ := newTestDispatcher()

	res, err := d.TurnOff(context.Background(), "user1", "dev1", "")
	if err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	if diff := cmp.Diff(TurnOffCommands(), adapter.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if res.Action != ActionTurnOff || res.Settings.Power != "off" || res.Provider != "smartthings" {
		t.Errorf("TurnOff() = %+v", res)
	}
}

func TestSetTemperature(t *testing.T) {
	d, adapter, _ := newTestDispatcher()

	res, err := d.SetTemperature(context.Background(), "user1", "dev1", "smartthings", f64(21))
	if err != nil {
		t.Fatalf("SetTemperature() error = %v", err)
	}
	if diff := cmp.Diff(SetTemperatureCommands(21), adapter.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if res.Action != ActionSetTemperature || *res.Settings.Temperature != 21 {
		t.Errorf("SetTemperature() = %+v", res)
	}
}

func TestSetTemperatureValidatesBeforeTokenLookup(t *testing.T) {
	d, adapter, tokens := newTestDispatcher()

	_, err := d.SetTemperature(context.Background(), "user1", "dev1", "smartthings", nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("SetTemperature() error = %v, want *ValidationError", err)
	}
	if vErr.Field != "temperature" {
		t.Errorf("Field = %q, want temperature", vErr.Field)
	}
	if tokens.calls != 0 {
		t.Errorf("token store consulted %d times", tokens.calls)
	}
	if adapter.commands != nil {
		t.Errorf("commands sent: %+v", adapter.commands)
	}
}

func TestDispatchErrors(t *testing.T) {
	sendErr := &provider.CommandError{Provider: "smartthings", Op: "send commands", StatusCode: 422}

	tests := []struct {
		name    string
		userID  string
		device  string
		prov    string
		sendErr error
		wantErr error
	}{
		{name: "missing user", userID: "", device: "dev1", wantErr: &ValidationError{}},
		{name: "missing device", userID: "user1", device: "", wantErr: &ValidationError{}},
		{name: "not connected", userID: "user2", device: "dev1", wantErr: tokenstore.ErrUnauthenticated},
		{name: "unknown provider", userID: "user1", device: "dev1", prov: "nest", wantErr: provider.ErrUnknownProvider},
		{name: "provider failure", userID: "user1", device: "dev1", sendErr: sendErr, wantErr: sendErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, adapter, _ := newTestDispatcher()
			adapter.sendErr = tt.sendErr

			_, err := d.TurnOff(context.Background(), tt.userID, tt.device, tt.prov)
			if err == nil {
				t.Fatal("TurnOff() error = nil")
			}

			switch want := tt.wantErr.(type) {
			case *ValidationError:
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("error = %v, want *ValidationError", err)
				}
			case *provider.CommandError:
				var cErr *provider.CommandError
				if !errors.As(err, &cErr) || cErr != want {
					t.Errorf("error = %v, want %v", err, want)
				}
			default:
				if !errors.Is(err, want) {
					t.Errorf("error = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestListDevicesAndStatus(t *testing.T) {
	d, adapter, _ := newTestDispatcher()
	adapter.devices = []provider.Device{{ID: "dev1", Provider: "smartthings"}}
	adapter.status = &provider.Status{DeviceID: "dev1", Power: "on"}
	ctx := context.Background()

	devices, err := d.ListDevices(ctx, "user1", "")
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if diff := cmp.Diff(adapter.devices, devices); diff != "" {
		t.Errorf("ListDevices() mismatch (-want +got):\n%s", diff)
	}

	status, err := d.DeviceStatus(ctx, "user1", "dev1", "smartthings")
	if err != nil {
		t.Fatalf("DeviceStatus() error = %v", err)
	}
	if status != adapter.status || adapter.token != "at" {
		t.Errorf("DeviceStatus() = %+v with token %q", status, adapter.token)
	}

	if _, err := d.ListDevices(ctx, "user2", ""); !errors.Is(err, tokenstore.ErrUnauthenticated) {
		t.Errorf("ListDevices() for unconnected user error = %v, want %v", err, tokenstore.ErrUnauthenticated)
	}
}
