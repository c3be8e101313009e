// Package poller drives the periodic state sync. One goroutine walks
// every registered source on a fixed interval; actions can force an
// immediate cycle through Trigger.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Source is anything that wants a turn on each poll cycle: scene
// controllers, dimmer links, relay pairs.
type Source interface {
	Poll(ctx context.Context, now time.Time)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, now time.Time)

func (f SourceFunc) Poll(ctx context.Context, now time.Time) { f(ctx, now) }

// DefaultInterval matches the host's device refresh cadence.
const DefaultInterval = time.Second

// Poller runs all sources from a single goroutine, so sources never
// race each other.
type Poller struct {
	interval time.Duration
	sources  []Source
	trigger  chan struct{}
}

// New creates a poller. interval <= 0 uses DefaultInterval.
func New(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Register adds a source. Not safe to call after Run has started.
func (p *Poller) Register(source Source) {
	p.sources = append(p.sources, source)
}

// Trigger requests an immediate poll cycle. Coalesces if one is already
// requested.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
		// Already triggered
	}
}

// Run executes poll cycles until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Dur("interval", p.interval).Int("sources", len(p.sources)).Msg("Poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Poller stopping")
			return nil
		case <-p.trigger:
			p.cycle(ctx)
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	now := time.Now()
	for _, source := range p.sources {
		if ctx.Err() != nil {
			return
		}
		source.Poll(ctx, now)
	}
}
