// Package hooks embeds a Lua scripting layer for user automation: react
// to entity value changes and scene state transitions, read and write
// entities, and invoke built-in actions.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/durosity/lighttools/internal/actions"
	"github.com/durosity/lighttools/internal/device"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

// Work represents work to be executed on the Lua VM.
// All Lua execution MUST go through this to ensure thread safety.
type Work func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L        *lua.LState
	invoker  *actions.Invoker
	accessor device.Accessor

	// Handlers are only touched from the worker goroutine
	sceneHandlers map[string][]*lua.LFunction
	valueHandlers map[string][]*lua.LFunction
	flashHandlers []*lua.LFunction

	// Work queue for thread-safe Lua execution
	workQueue chan Work

	// Closing this channel signals senders to stop; a channel in a
	// select is race-free, unlike mutex + bool.
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a new Lua runtime
func NewRuntime(invoker *actions.Invoker, accessor device.Accessor) *Runtime {
	r := &Runtime{
		L:             lua.NewState(),
		invoker:       invoker,
		accessor:      accessor,
		sceneHandlers: make(map[string][]*lua.LFunction),
		valueHandlers: make(map[string][]*lua.LFunction),
		workQueue:     make(chan Work, 100),
		closing:       make(chan struct{}),
	}

	r.registerModules()
	return r
}

// registerModules preloads all modules available to scripts
func (r *Runtime) registerModules() {
	r.L.PreloadModule("log", logLoader)
	r.L.PreloadModule("action", r.actionLoader)
	r.L.PreloadModule("entity", r.entityLoader)
	r.L.PreloadModule("hooks", r.hooksLoader)
}

// LoadScript loads and executes a Lua script (must be called before Run)
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes Lua source directly. Used by tests.
func (r *Runtime) LoadString(source string) error {
	return r.L.DoString(source)
}

// Do queues work for the Lua VM (thread-safe, non-blocking).
// Returns false if the runtime is closing, the queue is full, or the
// context is cancelled.
func (r *Runtime) Do(ctx context.Context, work Work) bool {
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// Run starts the Lua worker goroutine - this is the ONLY goroutine that
// touches Lua. Includes panic recovery so a bad script cannot kill the
// worker. Exits when the context is cancelled or the runtime is closed.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}

// Close signals the runtime to stop accepting new work and closes the
// Lua state. Safe to call concurrently with Do; senders see the closing
// signal.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
	r.L.Close()
}

// OnSceneState queues the registered scene handlers for a state change.
func (r *Runtime) OnSceneState(ctx context.Context, sceneID, state string) {
	r.Do(ctx, func(context.Context) {
		for _, fn := range r.sceneHandlers[sceneID] {
			r.callHandler(fn, lua.LString(sceneID), lua.LString(state))
		}
	})
}

// OnValueChanged queues the registered entity handlers for a new value.
func (r *Runtime) OnValueChanged(ctx context.Context, entityID string, value device.Value) {
	r.Do(ctx, func(context.Context) {
		for _, fn := range r.valueHandlers[entityID] {
			r.callHandler(fn, lua.LString(entityID), valueToLua(r.L, value))
		}
	})
}

// OnFlash queues the flash handlers for a sequence lifecycle change.
func (r *Runtime) OnFlash(ctx context.Context, seqID, state string) {
	r.Do(ctx, func(context.Context) {
		for _, fn := range r.flashHandlers {
			r.callHandler(fn, lua.LString(seqID), lua.LString(state))
		}
	})
}

func (r *Runtime) callHandler(fn *lua.LFunction, args ...lua.LValue) {
	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		log.Error().Err(err).Msg("Lua handler failed")
	}
}
