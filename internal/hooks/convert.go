package hooks

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/durosity/lighttools/internal/device"
)

// luaToGo converts a Lua value to a Go value
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		// Check if it's an array or object
		isArray := true
		maxIdx := 0
		val.ForEach(func(k, _ lua.LValue) {
			if num, ok := k.(lua.LNumber); ok {
				idx := int(num)
				if idx > maxIdx {
					maxIdx = idx
				}
			} else {
				isArray = false
			}
		})

		if isArray && maxIdx > 0 {
			arr := make([]any, maxIdx)
			val.ForEach(func(k, v lua.LValue) {
				if num, ok := k.(lua.LNumber); ok {
					arr[int(num)-1] = luaToGo(v)
				}
			})
			return arr
		}

		obj := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			obj[lua.LVAsString(k)] = luaToGo(v)
		})
		return obj
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

// tableToMap converts a Lua table to a Go map
func tableToMap(tbl *lua.LTable) map[string]any {
	m := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = luaToGo(v)
		}
	})
	return m
}

// valueToLua exposes an entity value to Lua as a plain table.
func valueToLua(L *lua.LState, v device.Value) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "kind", lua.LString(v.Kind))

	switch v.Kind {
	case device.KindRelay:
		L.SetField(tbl, "on", lua.LBool(v.On))
	case device.KindDimmer:
		L.SetField(tbl, "on", lua.LBool(v.On))
		L.SetField(tbl, "level", lua.LNumber(v.Level))
	case device.KindBlind:
		L.SetField(tbl, "level", lua.LNumber(v.Level))
	case device.KindFan:
		L.SetField(tbl, "on", lua.LBool(v.On))
		L.SetField(tbl, "speed", lua.LNumber(v.SpeedIndex))
	case device.KindThermostat:
		L.SetField(tbl, "hvac_mode", lua.LNumber(v.HvacMode))
		L.SetField(tbl, "fan_mode", lua.LNumber(v.FanMode))
		L.SetField(tbl, "heat_setpoint", lua.LNumber(v.HeatSetpoint))
		L.SetField(tbl, "cool_setpoint", lua.LNumber(v.CoolSetpoint))
	case device.KindVariable:
		L.SetField(tbl, "text", lua.LString(v.Text))
	}
	return tbl
}

// luaToValue builds an entity value from a Lua table. The kind field is
// required; the rest default sensibly.
func luaToValue(tbl *lua.LTable) (device.Value, error) {
	kind := device.Kind(lua.LVAsString(tbl.RawGetString("kind")))
	if !kind.Valid() {
		return device.Value{}, fmt.Errorf("invalid entity kind %q", kind)
	}

	v := device.Value{Kind: kind}
	switch kind {
	case device.KindRelay:
		v.On = lua.LVAsBool(tbl.RawGetString("on"))
	case device.KindDimmer:
		v = device.Dimmer(int(lua.LVAsNumber(tbl.RawGetString("level"))))
	case device.KindBlind:
		v = device.Blind(int(lua.LVAsNumber(tbl.RawGetString("level"))))
	case device.KindFan:
		v = device.Fan(int(lua.LVAsNumber(tbl.RawGetString("speed"))))
	case device.KindThermostat:
		v = device.Thermostat(
			int(lua.LVAsNumber(tbl.RawGetString("hvac_mode"))),
			int(lua.LVAsNumber(tbl.RawGetString("fan_mode"))),
			float64(lua.LVAsNumber(tbl.RawGetString("heat_setpoint"))),
			float64(lua.LVAsNumber(tbl.RawGetString("cool_setpoint"))),
		)
	case device.KindVariable:
		v = device.Variable(lua.LVAsString(tbl.RawGetString("text")))
	}
	return v, nil
}
