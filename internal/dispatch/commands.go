package dispatch

import "github.com/wrale/oauth2-home-broker/internal/provider"

// Defaults applied by TurnOn when the request leaves a setting out
const (
	DefaultTemperature = 22.0
	DefaultFanMode     = "auto"
	CoolingMode        = "cool"
)

const mainComponent = "main"

// TurnOnCommands builds the ordered turn-on batch: power, cooling mode,
// setpoint and, unless fanMode is empty, the fan mode
func TurnOnCommands(temperature float64, fanMode string) []provider.Command {
	commands := []provider.Command{
		{Component: mainComponent, Capability: "switch", Command: "on"},
		{Component: mainComponent, Capability: "airConditionerMode", Command: "setAirConditionerMode", Arguments: []any{CoolingMode}},
		{Component: mainComponent, Capability: "thermostatCoolingSetpoint", Command: "setCoolingSetpoint", Arguments: []any{temperature}},
	}
	if fanMode != "" {
		commands = append(commands, provider.Command{
			Component:  mainComponent,
			Capability: "airConditionerFanMode",
			Command:    "setAirConditionerFanMode",
			Arguments:  []any{fanMode},
		})
	}
	return commands
}

// TurnOffCommands builds the turn-off batch
func TurnOffCommands() []provider.Command {
	return []provider.Command{
		{Component: mainComponent, Capability: "switch", Command: "off"},
	}
}

// SetTemperatureCommands builds the cooling setpoint batch
func SetTemperatureCommands(temperature float64) []provider.Command {
	return []provider.Command{
		{Component: mainComponent, Capability: "thermostatCoolingSetpoint", Command: "setCoolingSetpoint", Arguments: []any{temperature}},
	}
}
