// Package flash runs attention-flash sequences over relays and dimmers:
// repeatedly drive the devices to a high then low level, and always put
// them back the way they were. Sequences are cancellable mid-flight.
package flash

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/device"
)

// Request describes one flash sequence.
type Request struct {
	DeviceIDs   []string
	Count       int
	OnDuration  time.Duration
	GapDuration time.Duration

	// Brightness bounds for dimmers, 0-100. Nil means full/zero.
	MaxBrightness *int
	MinBrightness *int
}

var (
	ErrNoDevices       = errors.New("no devices selected")
	ErrInvalidCount    = errors.New("flash count must be greater than zero")
	ErrInvalidDuration = errors.New("flash and gap durations must be positive")
)

// validate checks and normalizes the request in place.
func (r *Request) validate() error {
	if len(r.DeviceIDs) == 0 {
		return ErrNoDevices
	}
	if r.Count <= 0 {
		return ErrInvalidCount
	}
	if r.OnDuration <= 0 || r.GapDuration < 0 {
		return ErrInvalidDuration
	}
	if r.MaxBrightness != nil {
		*r.MaxBrightness = clampLevel(*r.MaxBrightness)
	}
	if r.MinBrightness != nil {
		*r.MinBrightness = clampLevel(*r.MinBrightness)
	}
	return nil
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Sequence lifecycle states reported through the notify callback.
const (
	StateStarted   = "started"
	StateCancelled = "cancelled"
	StateFinished  = "finished"
)

// NotifyFunc receives sequence lifecycle updates: started when the
// sequence launches, then cancelled or finished once the devices have
// been restored.
type NotifyFunc func(seqID, state string, deviceIDs []string)

// Manager owns all running flash sequences.
type Manager struct {
	accessor device.Accessor
	notify   NotifyFunc

	mu        sync.Mutex
	sequences map[string]context.CancelFunc
	flashing  map[string]int // device id -> active sequence count
	wg        sync.WaitGroup
}

// NewManager creates a flash manager.
func NewManager(accessor device.Accessor) *Manager {
	return &Manager{
		accessor:  accessor,
		sequences: make(map[string]context.CancelFunc),
		flashing:  make(map[string]int),
	}
}

// SetNotify installs the lifecycle callback. Must be called before the
// first Start.
func (m *Manager) SetNotify(fn NotifyFunc) {
	m.notify = fn
}

// Start begins a flash sequence and returns its id. Original device
// states are captured before the first flash and restored when the
// sequence finishes or is cancelled. Devices whose state cannot be read
// are dropped from the sequence.
func (m *Manager) Start(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	originals := make(map[string]device.Value, len(req.DeviceIDs))
	for _, id := range req.DeviceIDs {
		value, err := m.accessor.ReadValue(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("device", id).Msg("Cannot capture original state, dropping from flash")
			continue
		}
		originals[id] = value
	}
	if len(originals) == 0 {
		return "", ErrNoDevices
	}

	seqID := uuid.NewString()
	seqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	deviceIDs := make([]string, 0, len(originals))
	for id := range originals {
		deviceIDs = append(deviceIDs, id)
	}

	m.mu.Lock()
	m.sequences[seqID] = cancel
	for id := range originals {
		m.flashing[id]++
	}
	m.mu.Unlock()

	// Emit before launching so started always precedes the final state.
	m.emit(seqID, StateStarted, deviceIDs)

	m.wg.Add(1)
	go m.run(seqCtx, seqID, req, originals, deviceIDs)

	log.Info().
		Str("sequence", seqID).
		Int("devices", len(originals)).
		Int("count", req.Count).
		Dur("on", req.OnDuration).
		Dur("gap", req.GapDuration).
		Msg("Flash sequence started")

	return seqID, nil
}

// Cancel stops one sequence. Returns false if it is not running.
func (m *Manager) Cancel(seqID string) bool {
	m.mu.Lock()
	cancel, ok := m.sequences[seqID]
	m.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// CancelAll stops every running sequence and returns how many were
// signalled. Sequences still restore their devices before exiting.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	count := len(m.sequences)
	cancels := make([]context.CancelFunc, 0, count)
	for _, cancel := range m.sequences {
		cancels = append(cancels, cancel)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if count == 0 {
		log.Info().Msg("No flash sequences currently running")
	} else {
		log.Info().Int("count", count).Msg("Cancelled flash sequences")
	}
	return count
}

// IsFlashing returns true while any sequence owns the device. Other
// components use this to leave flashing devices alone.
func (m *Manager) IsFlashing(deviceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flashing[deviceID] > 0
}

// Active returns the number of running sequences.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sequences)
}

// Stop cancels everything and waits for sequences to restore and exit.
func (m *Manager) Stop() {
	m.CancelAll()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, seqID string, req Request, originals map[string]device.Value, deviceIDs []string) {
	defer m.wg.Done()

	state := StateFinished
	defer func() {
		m.finish(seqID, originals)
		m.emit(seqID, state, deviceIDs)
	}()

	maxLevel := 100
	if req.MaxBrightness != nil {
		maxLevel = *req.MaxBrightness
	}
	minLevel := 0
	if req.MinBrightness != nil {
		minLevel = *req.MinBrightness
	}

	for flash := 0; flash < req.Count; flash++ {
		m.setAll(ctx, originals, maxLevel, true)

		if !sleepOrCancel(ctx, req.OnDuration) {
			log.Info().Str("sequence", seqID).Msg("Flash sequence cancelled")
			state = StateCancelled
			return
		}

		m.setAll(ctx, originals, minLevel, false)

		if flash < req.Count-1 {
			if !sleepOrCancel(ctx, req.GapDuration) {
				log.Info().Str("sequence", seqID).Msg("Flash sequence cancelled")
				state = StateCancelled
				return
			}
		}
	}
}

// emit reports a lifecycle transition if a callback is installed.
func (m *Manager) emit(seqID, state string, deviceIDs []string) {
	if m.notify != nil {
		m.notify(seqID, state, deviceIDs)
	}
}

// setAll drives every device to the flash level: dimmers get the
// brightness, relays switch power.
func (m *Manager) setAll(ctx context.Context, originals map[string]device.Value, level int, on bool) {
	for id, original := range originals {
		var value device.Value
		switch original.Kind {
		case device.KindDimmer:
			value = device.Dimmer(level)
		default:
			value = device.Relay(on)
		}
		if err := m.accessor.WriteValue(ctx, id, value); err != nil {
			log.Error().Err(err).Str("device", id).Msg("Failed to flash device")
		}
	}
}

// finish restores original states and releases the devices. Restore uses
// a fresh context so cancellation never skips it.
func (m *Manager) finish(seqID string, originals map[string]device.Value) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for id, original := range originals {
		if err := m.accessor.WriteValue(ctx, id, original); err != nil {
			log.Error().Err(err).Str("device", id).Msg("Failed to restore device after flash")
		}
	}

	m.mu.Lock()
	delete(m.sequences, seqID)
	for id := range originals {
		if m.flashing[id] <= 1 {
			delete(m.flashing, id)
		} else {
			m.flashing[id]--
		}
	}
	m.mu.Unlock()

	log.Debug().Str("sequence", seqID).Msg("Flash sequence finished")
}

// sleepOrCancel waits for d and returns false if the context was
// cancelled first.
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
