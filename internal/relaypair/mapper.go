// Package relaypair maps a pair of host relays onto a three-step dimmer
// or fan device. The relay combination encodes the level: both off is 0,
// relay one alone is 33, relay two alone is 66, both on is 100.
package relaypair

// LevelFromRelays converts relay states to a level (0, 33, 66 or 100).
func LevelFromRelays(relay1On, relay2On bool) int {
	switch {
	case !relay1On && !relay2On:
		return 0
	case relay1On && !relay2On:
		return 33
	case !relay1On && relay2On:
		return 66
	default:
		return 100
	}
}

// RelaysFromLevel converts a requested level to relay states, rounding to
// the nearest encodable step first.
func RelaysFromLevel(level int) (relay1On, relay2On bool) {
	switch RoundLevel(level) {
	case 0:
		return false, false
	case 33:
		return true, false
	case 66:
		return false, true
	default:
		return true, true
	}
}

// RoundLevel snaps an arbitrary 0-100 level to the nearest encodable
// step. Band edges follow the midpoints between steps.
func RoundLevel(level int) int {
	switch {
	case level <= 16:
		return 0
	case level <= 49:
		return 33
	case level <= 83:
		return 66
	default:
		return 100
	}
}

// SpeedIndexFromLevel converts a step level to a fan speed index (0-3).
func SpeedIndexFromLevel(level int) int {
	if level <= 0 {
		return 0
	}
	return level / 33
}

// LevelFromSpeedIndex converts a fan speed index (0-3) to its step level.
func LevelFromSpeedIndex(index int) int {
	switch {
	case index <= 0:
		return 0
	case index >= 3:
		return 100
	default:
		return index * 33
	}
}
