package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Invoker executes registered actions by name
type Invoker struct {
	registry   *Registry
	ctxFactory func(ctx context.Context) *Context
}

// NewInvoker creates a new action invoker
func NewInvoker(registry *Registry, ctxFactory func(ctx context.Context) *Context) *Invoker {
	return &Invoker{
		registry:   registry,
		ctxFactory: ctxFactory,
	}
}

// HasAction checks if an action is registered
func (i *Invoker) HasAction(actionName string) bool {
	_, exists := i.registry.Get(actionName)
	return exists
}

// Invoke executes an action with the given arguments
func (i *Invoker) Invoke(ctx context.Context, actionName string, args map[string]any) error {
	action, exists := i.registry.Get(actionName)
	if !exists {
		return fmt.Errorf("action %q not found", actionName)
	}

	actx := i.ctxFactory(ctx)

	log.Debug().Str("action", actionName).Interface("args", args).Msg("Executing action")

	if err := action.Execute(actx, args); err != nil {
		log.Error().Err(err).Str("action", actionName).Msg("Action failed")
		return err
	}
	return nil
}
