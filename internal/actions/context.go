// Package actions provides the action registry and invocation system.
package actions

import (
	"context"
	"time"

	"github.com/durosity/lighttools/internal/flash"
)

// SceneController is the scene surface actions operate on
type SceneController interface {
	ID() string
	Save(ctx context.Context) error
	Activate(ctx context.Context) error
	Deactivate(now time.Time)
}

// Scenes provides access to scene controllers by id
type Scenes interface {
	Scene(id string) (SceneController, bool)
}

// Flasher runs and cancels flash sequences
type Flasher interface {
	Start(ctx context.Context, req flash.Request) (string, error)
	Cancel(seqID string) bool
	CancelAll() int
}

// Poller triggers an immediate poll cycle
type Poller interface {
	Trigger()
}

// DimmerLink is a variable-linked dimmer accepting brightness commands
type DimmerLink interface {
	HandleCommand(ctx context.Context, level int)
}

// RelayPair is a two-relay stepped dimmer or fan
type RelayPair interface {
	SetLevel(ctx context.Context, level int)
	SetSpeedIndex(ctx context.Context, index int)
	Toggle(ctx context.Context)
}

// Devices provides access to the configured dimmer links and relay pairs
type Devices interface {
	Dimmer(id string) (DimmerLink, bool)
	Pair(id string) (RelayPair, bool)
}

// Context is the capability interface provided to actions
// It exposes stable methods, not raw pointers
type Context struct {
	ctx       context.Context // Go context for cancellation/timeout
	scenes    Scenes
	devices   Devices
	flasher   Flasher
	poller    Poller
	runAction func(name string, args map[string]any) error
}

// NewContext creates a new action context
func NewContext(
	ctx context.Context,
	scenes Scenes,
	devices Devices,
	flasher Flasher,
	poller Poller,
	runAction func(name string, args map[string]any) error,
) *Context {
	return &Context{
		ctx:       ctx,
		scenes:    scenes,
		devices:   devices,
		flasher:   flasher,
		poller:    poller,
		runAction: runAction,
	}
}

// Ctx returns the Go context for cancellation
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// Scene looks up a scene controller by id
func (c *Context) Scene(id string) (SceneController, bool) {
	if c.scenes == nil {
		return nil, false
	}
	return c.scenes.Scene(id)
}

// Dimmer looks up a dimmer link by id
func (c *Context) Dimmer(id string) (DimmerLink, bool) {
	if c.devices == nil {
		return nil, false
	}
	return c.devices.Dimmer(id)
}

// Pair looks up a relay pair by id
func (c *Context) Pair(id string) (RelayPair, bool) {
	if c.devices == nil {
		return nil, false
	}
	return c.devices.Pair(id)
}

// Flash returns the flash sequence manager
func (c *Context) Flash() Flasher {
	return c.flasher
}

// Poll triggers an immediate poll cycle
func (c *Context) Poll() {
	if c.poller != nil {
		c.poller.Trigger()
	}
}

// Now returns the current wall-clock time for state transitions
func (c *Context) Now() time.Time {
	return time.Now()
}

// RunAction runs another action by name (for composition)
func (c *Context) RunAction(name string, args map[string]any) error {
	if c.runAction != nil {
		return c.runAction(name, args)
	}
	return nil
}
