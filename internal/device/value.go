// Package device defines the entity model shared by all LightTools
// behaviors: typed values for the device kinds the host exposes, and the
// Accessor abstraction over the host's read/write API.
package device

import "fmt"

// Kind identifies what sort of entity a value belongs to.
type Kind string

const (
	KindRelay      Kind = "relay"
	KindDimmer     Kind = "dimmer"
	KindFan        Kind = "fan"
	KindBlind      Kind = "blind"
	KindThermostat Kind = "thermostat"
	KindVariable   Kind = "variable"
)

// Valid returns true if the kind is one of the supported entity kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRelay, KindDimmer, KindFan, KindBlind, KindThermostat, KindVariable:
		return true
	}
	return false
}

// Value is the controllable state of a single entity. Only the fields
// relevant to the Kind are meaningful; the rest stay at their zero value.
type Value struct {
	Kind Kind `json:"kind"`

	// Relay, dimmer and fan power state.
	On bool `json:"on,omitempty"`

	// Dimmer brightness or blind position, 0-100.
	Level int `json:"level,omitempty"`

	// Fan speed index 0-3 (off/low/medium/high) and its 0-100 equivalent.
	SpeedIndex int `json:"speed_index,omitempty"`
	SpeedLevel int `json:"speed_level,omitempty"`

	// Thermostat state. Modes are the host's integer enum values.
	HvacMode     int     `json:"hvac_mode,omitempty"`
	FanMode      int     `json:"fan_mode,omitempty"`
	HeatSetpoint float64 `json:"heat_setpoint,omitempty"`
	CoolSetpoint float64 `json:"cool_setpoint,omitempty"`

	// Variable value, stored as the host stores it (a string).
	Text string `json:"text,omitempty"`
}

// Relay builds a relay value.
func Relay(on bool) Value {
	return Value{Kind: KindRelay, On: on}
}

// Dimmer builds a dimmer value. A non-zero level implies power on.
func Dimmer(level int) Value {
	return Value{Kind: KindDimmer, Level: level, On: level > 0}
}

// Blind builds a blind position value.
func Blind(position int) Value {
	return Value{Kind: KindBlind, Level: position}
}

// Fan builds a fan value from a speed index (0-3).
func Fan(speedIndex int) Value {
	if speedIndex < 0 {
		speedIndex = 0
	}
	if speedIndex > 3 {
		speedIndex = 3
	}
	level := 0
	if speedIndex > 0 {
		level = speedIndex * 33
	}
	if speedIndex == 3 {
		level = 100
	}
	return Value{Kind: KindFan, SpeedIndex: speedIndex, SpeedLevel: level, On: speedIndex > 0}
}

// Variable builds a variable value.
func Variable(text string) Value {
	return Value{Kind: KindVariable, Text: text}
}

// Thermostat builds a thermostat value.
func Thermostat(hvacMode, fanMode int, heat, cool float64) Value {
	return Value{
		Kind:         KindThermostat,
		HvacMode:     hvacMode,
		FanMode:      fanMode,
		HeatSetpoint: heat,
		CoolSetpoint: cool,
	}
}

// Equal compares two values for scene purposes. Discrete state (power,
// modes, speed index, variable text) must match exactly; continuous state
// (brightness, position, setpoints) matches within tolerance.
func (v Value) Equal(other Value, tolerance float64) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindRelay:
		return v.On == other.On
	case KindDimmer:
		return v.On == other.On && withinTolerance(float64(v.Level), float64(other.Level), tolerance)
	case KindBlind:
		return withinTolerance(float64(v.Level), float64(other.Level), tolerance)
	case KindFan:
		return v.On == other.On && v.SpeedIndex == other.SpeedIndex
	case KindThermostat:
		return v.HvacMode == other.HvacMode &&
			v.FanMode == other.FanMode &&
			withinTolerance(v.HeatSetpoint, other.HeatSetpoint, tolerance) &&
			withinTolerance(v.CoolSetpoint, other.CoolSetpoint, tolerance)
	case KindVariable:
		return v.Text == other.Text
	}

	return false
}

// String returns a short human-readable form for logging.
func (v Value) String() string {
	switch v.Kind {
	case KindRelay:
		if v.On {
			return "on"
		}
		return "off"
	case KindDimmer:
		return fmt.Sprintf("brightness=%d%%", v.Level)
	case KindBlind:
		return fmt.Sprintf("position=%d%%", v.Level)
	case KindFan:
		return fmt.Sprintf("speed=%s", SpeedName(v.SpeedIndex))
	case KindThermostat:
		return fmt.Sprintf("hvac=%d fan=%d heat=%.1f cool=%.1f", v.HvacMode, v.FanMode, v.HeatSetpoint, v.CoolSetpoint)
	case KindVariable:
		return fmt.Sprintf("value=%q", v.Text)
	}
	return "unknown"
}

// SpeedName returns the display name for a fan speed index.
func SpeedName(index int) string {
	names := []string{"off", "low", "medium", "high"}
	if index < 0 || index >= len(names) {
		return "unknown"
	}
	return names[index]
}

func withinTolerance(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
