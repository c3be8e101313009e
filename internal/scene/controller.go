package scene

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/device"
)

// ErrNoSnapshot is returned when activation is requested before any
// snapshot has been saved.
var ErrNoSnapshot = errors.New("no snapshot saved")

// ChangeFunc is called whenever the derived scene state changes.
type ChangeFunc func(sceneID string, state State)

// Config describes one scene controller.
type Config struct {
	ID           string
	Name         string
	Entities     []TrackedEntity
	Tolerance    float64       // 0 means DefaultTolerance
	RecheckDelay time.Duration // suppress window after manual deactivate
}

// Controller derives an on/off state for one scene and pushes the saved
// snapshot back on activation.
//
// State machine: UNKNOWN until a snapshot exists and the comparator has
// run; afterwards ON and OFF follow comparator results only. Activate
// restores the snapshot then re-evaluates. Deactivate forces OFF and
// suppresses comparator flips for the recheck window, so slow devices
// settling out of the scene don't flap the state back to ON.
type Controller struct {
	cfg      Config
	store    *Store
	accessor device.Accessor
	onChange ChangeFunc

	mu        sync.Mutex
	state     State
	snapshot  Snapshot
	recheckAt time.Time // zero when no recheck is pending
}

// NewController creates a controller and loads any persisted snapshot.
func NewController(cfg Config, store *Store, accessor device.Accessor, onChange ChangeFunc) *Controller {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}

	c := &Controller{
		cfg:      cfg,
		store:    store,
		accessor: accessor,
		onChange: onChange,
		state:    StateUnknown,
	}

	if snapshot, ok, err := store.Load(cfg.ID); err != nil {
		log.Warn().Err(err).Str("scene", cfg.ID).Msg("Failed to load persisted snapshot")
	} else if ok {
		c.snapshot = snapshot
		log.Info().Str("scene", cfg.ID).Int("entities", len(snapshot)).Msg("Loaded persisted scene snapshot")
	}

	return c
}

// ID returns the scene id.
func (c *Controller) ID() string {
	return c.cfg.ID
}

// Name returns the display name, falling back to the id.
func (c *Controller) Name() string {
	if c.cfg.Name != "" {
		return c.cfg.Name
	}
	return c.cfg.ID
}

// State returns the current derived state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Save captures the current live values of all tracked entities as the
// new snapshot. All-or-nothing; on failure the prior snapshot remains.
func (c *Controller) Save(ctx context.Context) error {
	snapshot, err := c.store.Save(ctx, c.cfg.ID, c.cfg.Entities)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.recheckAt = time.Time{}
	c.mu.Unlock()
	return nil
}

// Activate pushes the snapshot values to all tracked entities, then
// re-evaluates. Write failures are best-effort per entity; the final
// state reflects whatever actually got applied.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	snapshot := c.snapshot
	c.recheckAt = time.Time{}
	c.mu.Unlock()

	if len(snapshot) == 0 {
		log.Warn().Str("scene", c.cfg.ID).Msg("Activate requested but no snapshot saved")
		return ErrNoSnapshot
	}

	log.Info().Str("scene", c.Name()).Msg("Activating scene")
	failures := c.store.Restore(ctx, snapshot)
	if len(failures) > 0 {
		log.Warn().Int("failed", len(failures)).Str("scene", c.cfg.ID).Msg("Scene activated with partial failures")
	}

	c.evaluateNow(ctx)
	return nil
}

// Deactivate forces the derived state OFF and starts the recheck window.
// Once the window elapses the next poll turns the scene back ON only if
// the live values still match the snapshot.
func (c *Controller) Deactivate(now time.Time) {
	c.mu.Lock()
	c.recheckAt = now.Add(c.recheckDelay())
	c.mu.Unlock()

	log.Info().Str("scene", c.Name()).Msg("Deactivating scene")
	c.setState(StateOff)
}

// Poll runs one comparator cycle. Called by the poller on every tick.
func (c *Controller) Poll(ctx context.Context, now time.Time) {
	c.mu.Lock()
	snapshot := c.snapshot
	recheckAt := c.recheckAt
	c.mu.Unlock()

	if len(snapshot) == 0 {
		c.setState(StateUnknown)
		return
	}

	if !recheckAt.IsZero() {
		if now.Before(recheckAt) {
			return
		}
		c.mu.Lock()
		c.recheckAt = time.Time{}
		c.mu.Unlock()

		// After a manual deactivate only a confirmed match may turn the
		// scene back on.
		if Evaluate(snapshot, c.readLive(ctx, snapshot), c.cfg.Tolerance) == StateOn {
			c.setState(StateOn)
		}
		return
	}

	c.setState(Evaluate(snapshot, c.readLive(ctx, snapshot), c.cfg.Tolerance))
}

// evaluateNow recomputes state immediately from live values.
func (c *Controller) evaluateNow(ctx context.Context) {
	c.mu.Lock()
	snapshot := c.snapshot
	c.mu.Unlock()

	c.setState(Evaluate(snapshot, c.readLive(ctx, snapshot), c.cfg.Tolerance))
}

// readLive fetches current values for all snapshot entities. Unreachable
// entities are logged and omitted, which the comparator treats as OFF.
func (c *Controller) readLive(ctx context.Context, snapshot Snapshot) map[string]device.Value {
	live := make(map[string]device.Value, len(snapshot))
	for id := range snapshot {
		value, err := c.accessor.ReadValue(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("scene", c.cfg.ID).Str("entity", id).Msg("Entity unreachable")
			continue
		}
		live[id] = value
	}
	return live
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev == next {
		return
	}

	log.Info().
		Str("scene", c.Name()).
		Stringer("from", prev).
		Stringer("to", next).
		Msg("Scene state changed")

	if c.onChange != nil {
		c.onChange(c.cfg.ID, next)
	}
}

func (c *Controller) recheckDelay() time.Duration {
	if c.cfg.RecheckDelay > 0 {
		return c.cfg.RecheckDelay
	}
	return 10 * time.Second
}
