package actions

import (
	"fmt"
	"sort"
	"sync"
)

// Action is a named operation that can be invoked by name, from Go or
// from Lua via action.run.
type Action interface {
	Name() string
	Execute(ctx *Context, args map[string]any) error
}

// funcAction adapts a bare function to the Action interface.
type funcAction struct {
	name string
	fn   func(ctx *Context, args map[string]any) error
}

func (a funcAction) Name() string { return a.name }

func (a funcAction) Execute(ctx *Context, args map[string]any) error {
	return a.fn(ctx, args)
}

// Registry maps action names to implementations. Registration happens
// at startup; lookups are safe from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action under its own name. Names must be unique.
func (r *Registry) Register(action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := action.Name()
	if _, dup := r.actions[name]; dup {
		return fmt.Errorf("action %q already registered", name)
	}
	r.actions[name] = action
	return nil
}

// RegisterSimple registers a bare function under the given name.
func (r *Registry) RegisterSimple(name string, fn func(ctx *Context, args map[string]any) error) error {
	return r.Register(funcAction{name: name, fn: fn})
}

// Get looks up an action by name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[name]
	return action, ok
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
