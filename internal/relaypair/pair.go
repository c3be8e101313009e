package relaypair

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/device"
)

// Mode selects how the pair presents itself.
type Mode string

const (
	ModeDimmer Mode = "dimmer"
	ModeFan    Mode = "fan"
)

// DefaultSettleDelay is how long relay writes are deferred after a
// command, letting rapid commands coalesce into one relay change.
const DefaultSettleDelay = time.Second

// Config describes one relay pair device.
type Config struct {
	ID          string
	Name        string
	Mode        Mode
	Relay1      string
	Relay2      string
	SettleDelay time.Duration
}

// Pair presents two relays as a single stepped dimmer or fan. Commands
// update the derived level immediately and defer the relay writes by the
// settle delay; external relay flips are picked up on poll and re-derive
// the level.
type Pair struct {
	cfg      Config
	accessor device.Accessor

	mu         sync.Mutex
	level      int
	lastStates [2]bool
	haveStates bool
	pending    *time.Timer
}

// New creates a relay pair device.
func New(cfg Config, accessor device.Accessor) *Pair {
	if cfg.Mode == "" {
		cfg.Mode = ModeDimmer
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Pair{cfg: cfg, accessor: accessor}
}

// ID returns the pair id.
func (p *Pair) ID() string {
	return p.cfg.ID
}

// Name returns the display name, falling back to the id.
func (p *Pair) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}
	return p.cfg.ID
}

// Mode returns the presentation mode.
func (p *Pair) Mode() Mode {
	return p.cfg.Mode
}

// Level returns the current derived level.
func (p *Pair) Level() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// SpeedIndex returns the current fan speed index.
func (p *Pair) SpeedIndex() int {
	return SpeedIndexFromLevel(p.Level())
}

// On returns true if the derived level is above zero.
func (p *Pair) On() bool {
	return p.Level() > 0
}

// Init reads both relays and derives the initial level.
func (p *Pair) Init(ctx context.Context) {
	relay1, relay2, ok := p.readRelays(ctx)
	if !ok {
		return
	}

	level := LevelFromRelays(relay1, relay2)
	p.mu.Lock()
	p.level = level
	p.lastStates = [2]bool{relay1, relay2}
	p.haveStates = true
	p.mu.Unlock()

	log.Info().Str("pair", p.Name()).Int("level", level).Msg("Relay pair initialized")
}

// Poll detects external relay changes and re-derives the level. Relay
// states are change-detected so a pending command apply is not undone by
// polls that still see the old relay positions.
func (p *Pair) Poll(ctx context.Context) {
	relay1, relay2, ok := p.readRelays(ctx)
	if !ok {
		return
	}

	current := [2]bool{relay1, relay2}

	p.mu.Lock()
	if p.haveStates && p.lastStates == current {
		p.mu.Unlock()
		return
	}
	p.lastStates = current
	p.haveStates = true
	level := LevelFromRelays(relay1, relay2)
	changed := level != p.level
	p.level = level
	p.mu.Unlock()

	if changed {
		if p.cfg.Mode == ModeFan {
			log.Info().
				Str("pair", p.Name()).
				Str("speed", device.SpeedName(SpeedIndexFromLevel(level))).
				Msg("Relay change detected, fan level updated")
		} else {
			log.Info().Str("pair", p.Name()).Int("level", level).Msg("Relay change detected, level updated")
		}
	}
}

// SetLevel handles a brightness command: the derived level snaps to the
// nearest step immediately, the relay writes follow after the settle
// delay.
func (p *Pair) SetLevel(ctx context.Context, target int) {
	rounded := RoundLevel(target)
	relay1, relay2 := RelaysFromLevel(rounded)

	p.mu.Lock()
	p.level = rounded
	p.mu.Unlock()

	if p.cfg.Mode == ModeFan {
		log.Info().
			Str("pair", p.Name()).
			Str("speed", device.SpeedName(SpeedIndexFromLevel(rounded))).
			Msg("Setting fan speed")
	} else {
		log.Info().Str("pair", p.Name()).Int("requested", target).Int("level", rounded).Msg("Setting level")
	}

	p.scheduleApply(ctx, relay1, relay2)
}

// SetSpeedIndex handles a fan speed command (0-3).
func (p *Pair) SetSpeedIndex(ctx context.Context, index int) {
	p.SetLevel(ctx, LevelFromSpeedIndex(index))
}

// TurnOn sets the highest step.
func (p *Pair) TurnOn(ctx context.Context) {
	p.SetLevel(ctx, 100)
}

// TurnOff sets level zero.
func (p *Pair) TurnOff(ctx context.Context) {
	p.SetLevel(ctx, 0)
}

// Toggle switches between off and full.
func (p *Pair) Toggle(ctx context.Context) {
	if p.On() {
		p.TurnOff(ctx)
		return
	}
	p.TurnOn(ctx)
}

// scheduleApply defers the relay writes, replacing any pending apply so
// rapid commands only move the relays once.
func (p *Pair) scheduleApply(ctx context.Context, relay1On, relay2On bool) {
	applyCtx := context.WithoutCancel(ctx)

	p.mu.Lock()
	if p.pending != nil {
		p.pending.Stop()
	}
	p.pending = time.AfterFunc(p.cfg.SettleDelay, func() {
		p.applyRelays(applyCtx, relay1On, relay2On)
	})
	p.mu.Unlock()
}

// applyRelays writes both relay states best-effort.
func (p *Pair) applyRelays(ctx context.Context, relay1On, relay2On bool) {
	log.Debug().
		Str("pair", p.Name()).
		Bool("relay1", relay1On).
		Bool("relay2", relay2On).
		Msg("Applying relay states")

	if err := p.accessor.WriteValue(ctx, p.cfg.Relay1, device.Relay(relay1On)); err != nil {
		log.Error().Err(err).Str("relay", p.cfg.Relay1).Msg("Failed to set relay")
	}
	if err := p.accessor.WriteValue(ctx, p.cfg.Relay2, device.Relay(relay2On)); err != nil {
		log.Error().Err(err).Str("relay", p.cfg.Relay2).Msg("Failed to set relay")
	}
}

// Stop cancels any pending relay apply.
func (p *Pair) Stop() {
	p.mu.Lock()
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	p.mu.Unlock()
}

func (p *Pair) readRelays(ctx context.Context) (relay1On, relay2On, ok bool) {
	v1, err := p.accessor.ReadValue(ctx, p.cfg.Relay1)
	if err != nil {
		log.Warn().Err(err).Str("relay", p.cfg.Relay1).Msg("Relay unreachable")
		return false, false, false
	}
	v2, err := p.accessor.ReadValue(ctx, p.cfg.Relay2)
	if err != nil {
		log.Warn().Err(err).Str("relay", p.cfg.Relay2).Msg("Relay unreachable")
		return false, false, false
	}
	return v1.On, v2.On, true
}
