package dimmer

import "testing"

func TestParseScale(t *testing.T) {
	tests := []struct {
		name      string
		min, max  string
		wantMin   float64
		wantMax   float64
		wantFloat bool
	}{
		{name: "defaults", min: "", max: "", wantMin: 0, wantMax: 100, wantFloat: false},
		{name: "plain_0_100", min: "0", max: "100", wantMin: 0, wantMax: 100, wantFloat: false},
		{name: "small_range_is_float", min: "0", max: "10", wantMin: 0, wantMax: 10, wantFloat: true},
		{name: "unit_range_is_float", min: "0", max: "1", wantMin: 0, wantMax: 1, wantFloat: true},
		{name: "decimals_force_float", min: "0.0", max: "255", wantMin: 0, wantMax: 255, wantFloat: true},
		{name: "large_int_range", min: "0", max: "255", wantMin: 0, wantMax: 255, wantFloat: false},
		{name: "inverted_falls_back", min: "100", max: "0", wantMin: 0, wantMax: 100, wantFloat: false},
		{name: "equal_falls_back", min: "50", max: "50", wantMin: 0, wantMax: 100, wantFloat: false},
		{name: "garbage_falls_back", min: "abc", max: "100", wantMin: 0, wantMax: 100, wantFloat: false},
		{name: "negative_range", min: "-40", max: "60", wantMin: -40, wantMax: 60, wantFloat: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ParseScale(tt.min, tt.max)
			if s.Min != tt.wantMin || s.Max != tt.wantMax || s.Float != tt.wantFloat {
				t.Errorf("ParseScale(%q, %q) = {%v %v %v}, want {%v %v %v}",
					tt.min, tt.max, s.Min, s.Max, s.Float, tt.wantMin, tt.wantMax, tt.wantFloat)
			}
		})
	}
}

func TestToBrightness(t *testing.T) {
	tests := []struct {
		name        string
		scale       Scale
		raw         string
		want        int
		wantClamped bool
		wantErr     bool
	}{
		{name: "mid_scale", scale: Scale{Min: 0, Max: 100}, raw: "50", want: 50},
		{name: "bottom", scale: Scale{Min: 0, Max: 100}, raw: "0", want: 0},
		{name: "top", scale: Scale{Min: 0, Max: 100}, raw: "100", want: 100},
		{name: "custom_scale", scale: Scale{Min: 0, Max: 255}, raw: "128", want: 50},
		{name: "unit_scale", scale: Scale{Min: 0, Max: 1, Float: true}, raw: "0.7", want: 70},
		{name: "offset_scale", scale: Scale{Min: 10, Max: 20, Float: true}, raw: "15", want: 50},
		{name: "below_min_clamps", scale: Scale{Min: 0, Max: 100}, raw: "-5", want: 0, wantClamped: true},
		{name: "above_max_clamps", scale: Scale{Min: 0, Max: 100}, raw: "120", want: 100, wantClamped: true},
		{name: "whitespace_ok", scale: Scale{Min: 0, Max: 100}, raw: " 42 ", want: 42},
		{name: "not_a_number", scale: Scale{Min: 0, Max: 100}, raw: "bright", wantErr: true},
		{name: "empty", scale: Scale{Min: 0, Max: 100}, raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped, err := tt.scale.ToBrightness(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || clamped != tt.wantClamped {
				t.Errorf("ToBrightness(%q) = (%d, %v), want (%d, %v)", tt.raw, got, clamped, tt.want, tt.wantClamped)
			}
		})
	}
}

func TestFromBrightness(t *testing.T) {
	tests := []struct {
		name       string
		scale      Scale
		brightness int
		want       string
	}{
		{name: "mid_default", scale: Scale{Min: 0, Max: 100}, brightness: 50, want: "50"},
		{name: "zero", scale: Scale{Min: 0, Max: 100}, brightness: 0, want: "0"},
		{name: "full", scale: Scale{Min: 0, Max: 100}, brightness: 100, want: "100"},
		{name: "custom_int_scale", scale: Scale{Min: 0, Max: 255}, brightness: 50, want: "128"},
		{name: "unit_scale_trims_zeros", scale: Scale{Min: 0, Max: 1, Float: true}, brightness: 70, want: "0.7"},
		{name: "unit_scale_two_decimals", scale: Scale{Min: 0, Max: 1, Float: true}, brightness: 33, want: "0.33"},
		{name: "ten_scale", scale: Scale{Min: 0, Max: 10, Float: true}, brightness: 45, want: "4.5"},
		{name: "wide_float_one_decimal", scale: Scale{Min: 0, Max: 255, Float: true}, brightness: 33, want: "84.2"},
		{name: "clamps_negative", scale: Scale{Min: 0, Max: 100}, brightness: -10, want: "0"},
		{name: "clamps_over", scale: Scale{Min: 0, Max: 100}, brightness: 150, want: "100"},
		{name: "offset_scale", scale: Scale{Min: 10, Max: 20, Float: true}, brightness: 50, want: "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.scale.FromBrightness(tt.brightness)
			if got != tt.want {
				t.Errorf("FromBrightness(%d) = %q, want %q", tt.brightness, got, tt.want)
			}
		})
	}
}

// Converting to brightness and back must not drift for representable
// values on the scale.
func TestScaleRoundTrip(t *testing.T) {
	scale := Scale{Min: 0, Max: 100}
	for _, b := range []int{0, 1, 25, 50, 99, 100} {
		raw := scale.FromBrightness(b)
		got, clamped, err := scale.ToBrightness(raw)
		if err != nil || clamped {
			t.Fatalf("round trip %d failed: err=%v clamped=%v", b, err, clamped)
		}
		if got != b {
			t.Errorf("round trip %d -> %q -> %d", b, raw, got)
		}
	}
}
