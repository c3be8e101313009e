// Package dimmer links a host dimmer device to a numeric variable through
// a configurable value scale, keeping both sides in sync.
package dimmer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Scale maps between 0-100 brightness and a variable's custom value range.
type Scale struct {
	Min   float64
	Max   float64
	Float bool // format values as decimals instead of integers
}

// DefaultScale is the plain 0-100 integer scale.
var DefaultScale = Scale{Min: 0, Max: 100}

// ParseScale builds a scale from the configured min/max strings. Invalid
// or inverted ranges fall back to 0-100. Scales are treated as float when
// either bound carries decimals or the range is small (10 or less), so
// 0-1 and 0-10 ranges keep their precision.
func ParseScale(minStr, maxStr string) Scale {
	if minStr == "" {
		minStr = "0"
	}
	if maxStr == "" {
		maxStr = "100"
	}

	min, errMin := strconv.ParseFloat(minStr, 64)
	max, errMax := strconv.ParseFloat(maxStr, 64)
	if errMin != nil || errMax != nil {
		return DefaultScale
	}

	if min >= max {
		log.Warn().Str("min", minStr).Str("max", maxStr).Msg("Invalid scale range, using 0-100")
		return DefaultScale
	}

	hasDecimals := strings.Contains(minStr, ".") || strings.Contains(maxStr, ".")
	smallRange := max-min <= 10

	return Scale{Min: min, Max: max, Float: hasDecimals || smallRange}
}

// Range returns the scale span.
func (s Scale) Range() float64 {
	return s.Max - s.Min
}

// ToBrightness converts a variable value to 0-100 brightness. Values
// outside the scale are clamped and reported so the caller can correct
// the variable. An unparseable value returns an error.
func (s Scale) ToBrightness(raw string) (brightness int, clamped bool, err error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", raw)
	}

	if value < s.Min {
		value = s.Min
		clamped = true
	} else if value > s.Max {
		value = s.Max
		clamped = true
	}

	brightness = int(math.Round((value - s.Min) / s.Range() * 100))
	return brightness, clamped, nil
}

// FromBrightness converts 0-100 brightness to a variable value string on
// this scale. Float scales keep two decimals for ranges up to 10 and one
// decimal above that; integer scales round to whole numbers.
func (s Scale) FromBrightness(brightness int) string {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 100 {
		brightness = 100
	}

	value := float64(brightness)/100.0*s.Range() + s.Min

	if s.Float {
		digits := 1
		if s.Range() <= 10 {
			digits = 2
		}
		return trimZeros(value, digits)
	}

	return strconv.Itoa(int(math.Round(value)))
}

// trimZeros rounds to the given number of decimals and drops trailing
// zeros, so 0.70 renders as "0.7".
func trimZeros(value float64, digits int) string {
	shift := math.Pow(10, float64(digits))
	rounded := math.Round(value*shift) / shift
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
