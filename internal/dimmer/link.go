package dimmer

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/device"
)

// SkipFunc reports whether a device should be left alone this cycle,
// e.g. because a flash sequence currently owns it.
type SkipFunc func(deviceID string) bool

// LinkConfig describes one variable-linked dimmer.
type LinkConfig struct {
	DeviceID   string
	VariableID string
	Scale      Scale
}

// Link keeps a dimmer device and a scaled variable in sync. Variable
// edits flow to the device on poll; device commands flow back to the
// variable immediately. Change caches on both sides stop the two
// directions from re-triggering each other.
type Link struct {
	cfg      LinkConfig
	accessor device.Accessor
	skip     SkipFunc

	mu             sync.Mutex
	lastVarValue   string
	haveVarValue   bool
	lastBrightness int
}

// NewLink creates a link. skip may be nil.
func NewLink(cfg LinkConfig, accessor device.Accessor, skip SkipFunc) *Link {
	return &Link{
		cfg:            cfg,
		accessor:       accessor,
		skip:           skip,
		lastBrightness: -1,
	}
}

// DeviceID returns the linked device id.
func (l *Link) DeviceID() string {
	return l.cfg.DeviceID
}

// Init reads the variable and pushes its brightness to the device,
// correcting the variable when its value is invalid or out of range.
func (l *Link) Init(ctx context.Context) {
	value, err := l.accessor.ReadValue(ctx, l.cfg.VariableID)
	if err != nil {
		log.Warn().Err(err).Str("variable", l.cfg.VariableID).Msg("Variable unreachable during init")
		return
	}

	brightness, ok := l.applyVariable(ctx, value.Text)
	if !ok {
		return
	}
	l.writeBrightness(ctx, brightness)
}

// Poll checks the variable for changes and updates the device when it
// moved. Skipped while the device is flashing.
func (l *Link) Poll(ctx context.Context) {
	if l.skip != nil && l.skip(l.cfg.DeviceID) {
		return
	}

	value, err := l.accessor.ReadValue(ctx, l.cfg.VariableID)
	if err != nil {
		log.Warn().Err(err).Str("variable", l.cfg.VariableID).Msg("Variable unreachable")
		return
	}

	l.mu.Lock()
	unchanged := l.haveVarValue && l.lastVarValue == value.Text
	l.mu.Unlock()
	if unchanged {
		return
	}

	brightness, ok := l.applyVariable(ctx, value.Text)
	if !ok {
		return
	}
	l.writeBrightness(ctx, brightness)
}

// HandleCommand applies a brightness command to the device and mirrors it
// into the variable on the configured scale.
func (l *Link) HandleCommand(ctx context.Context, level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}

	varValue := l.cfg.Scale.FromBrightness(level)
	if err := l.accessor.WriteValue(ctx, l.cfg.VariableID, device.Variable(varValue)); err != nil {
		log.Error().Err(err).Str("variable", l.cfg.VariableID).Msg("Failed to update linked variable")
		return
	}

	l.writeBrightness(ctx, level)

	l.mu.Lock()
	l.lastVarValue = varValue
	l.haveVarValue = true
	l.lastBrightness = level
	l.mu.Unlock()
}

// NotifyBrightness handles an externally observed device brightness
// change, mirroring it into the variable.
func (l *Link) NotifyBrightness(ctx context.Context, brightness int) {
	if l.skip != nil && l.skip(l.cfg.DeviceID) {
		return
	}

	l.mu.Lock()
	unchanged := brightness == l.lastBrightness
	l.mu.Unlock()
	if unchanged {
		return
	}

	l.HandleCommand(ctx, brightness)
}

// applyVariable converts a raw variable value to brightness, correcting
// the variable when it is invalid or clamped. Returns ok=false when the
// device should not be updated.
func (l *Link) applyVariable(ctx context.Context, raw string) (int, bool) {
	brightness, clamped, err := l.cfg.Scale.ToBrightness(raw)

	if err != nil {
		// Reset the variable to match the device's last known level.
		l.mu.Lock()
		current := l.lastBrightness
		l.mu.Unlock()
		if current < 0 {
			current = 0
		}

		corrected := l.cfg.Scale.FromBrightness(current)
		log.Warn().
			Str("variable", l.cfg.VariableID).
			Str("value", raw).
			Str("corrected", corrected).
			Msg("Invalid variable value, resetting")

		if werr := l.accessor.WriteValue(ctx, l.cfg.VariableID, device.Variable(corrected)); werr != nil {
			log.Error().Err(werr).Str("variable", l.cfg.VariableID).Msg("Failed to correct variable")
			return 0, false
		}
		l.remember(corrected, current)
		return 0, false
	}

	if clamped {
		corrected := l.cfg.Scale.FromBrightness(brightness)
		log.Warn().
			Str("variable", l.cfg.VariableID).
			Str("value", raw).
			Str("corrected", corrected).
			Msg("Variable value out of range, correcting")

		if werr := l.accessor.WriteValue(ctx, l.cfg.VariableID, device.Variable(corrected)); werr != nil {
			log.Error().Err(werr).Str("variable", l.cfg.VariableID).Msg("Failed to correct variable")
		}
		l.remember(corrected, brightness)
		return brightness, true
	}

	l.remember(raw, brightness)
	return brightness, true
}

func (l *Link) writeBrightness(ctx context.Context, brightness int) {
	if err := l.accessor.WriteValue(ctx, l.cfg.DeviceID, device.Dimmer(brightness)); err != nil {
		log.Error().Err(err).Str("device", l.cfg.DeviceID).Msg("Failed to update dimmer")
	}
}

func (l *Link) remember(varValue string, brightness int) {
	l.mu.Lock()
	l.lastVarValue = varValue
	l.haveVarValue = true
	l.lastBrightness = brightness
	l.mu.Unlock()
}
