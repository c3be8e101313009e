package relaypair

import "testing"

func TestLevelFromRelays(t *testing.T) {
	tests := []struct {
		name     string
		relay1   bool
		relay2   bool
		expected int
	}{
		{name: "both_off", relay1: false, relay2: false, expected: 0},
		{name: "relay1_only", relay1: true, relay2: false, expected: 33},
		{name: "relay2_only", relay1: false, relay2: true, expected: 66},
		{name: "both_on", relay1: true, relay2: true, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelFromRelays(tt.relay1, tt.relay2); got != tt.expected {
				t.Errorf("LevelFromRelays(%v, %v) = %d, want %d", tt.relay1, tt.relay2, got, tt.expected)
			}
		})
	}
}

func TestRoundLevel(t *testing.T) {
	tests := []struct {
		level    int
		expected int
	}{
		{0, 0},
		{10, 0},
		{16, 0},
		{17, 33},
		{33, 33},
		{49, 33},
		{50, 66},
		{66, 66},
		{83, 66},
		{84, 100},
		{100, 100},
	}

	for _, tt := range tests {
		if got := RoundLevel(tt.level); got != tt.expected {
			t.Errorf("RoundLevel(%d) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestRelaysFromLevel(t *testing.T) {
	tests := []struct {
		name   string
		level  int
		relay1 bool
		relay2 bool
	}{
		{name: "zero", level: 0, relay1: false, relay2: false},
		{name: "rounds_down_to_zero", level: 12, relay1: false, relay2: false},
		{name: "low", level: 33, relay1: true, relay2: false},
		{name: "rounds_to_low", level: 40, relay1: true, relay2: false},
		{name: "medium", level: 66, relay1: false, relay2: true},
		{name: "rounds_to_medium", level: 75, relay1: false, relay2: true},
		{name: "full", level: 100, relay1: true, relay2: true},
		{name: "rounds_to_full", level: 90, relay1: true, relay2: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r1, r2 := RelaysFromLevel(tt.level)
			if r1 != tt.relay1 || r2 != tt.relay2 {
				t.Errorf("RelaysFromLevel(%d) = (%v, %v), want (%v, %v)", tt.level, r1, r2, tt.relay1, tt.relay2)
			}
		})
	}
}

func TestSpeedIndexFromLevel(t *testing.T) {
	tests := []struct {
		level    int
		expected int
	}{
		{0, 0},
		{33, 1},
		{66, 2},
		{100, 3},
	}

	for _, tt := range tests {
		if got := SpeedIndexFromLevel(tt.level); got != tt.expected {
			t.Errorf("SpeedIndexFromLevel(%d) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestLevelFromSpeedIndex(t *testing.T) {
	tests := []struct {
		index    int
		expected int
	}{
		{-1, 0},
		{0, 0},
		{1, 33},
		{2, 66},
		{3, 100},
		{5, 100},
	}

	for _, tt := range tests {
		if got := LevelFromSpeedIndex(tt.index); got != tt.expected {
			t.Errorf("LevelFromSpeedIndex(%d) = %d, want %d", tt.index, got, tt.expected)
		}
	}
}

// Round-tripping any level through relays must be stable: the derived
// level maps back to the same relay states.
func TestRelayLevelRoundTrip(t *testing.T) {
	for level := 0; level <= 100; level++ {
		r1, r2 := RelaysFromLevel(level)
		derived := LevelFromRelays(r1, r2)
		d1, d2 := RelaysFromLevel(derived)
		if d1 != r1 || d2 != r2 {
			t.Errorf("level %d not stable: (%v,%v) -> %d -> (%v,%v)", level, r1, r2, derived, d1, d2)
		}
	}
}
