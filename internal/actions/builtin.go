package actions

import (
	"fmt"
	"time"

	"github.com/durosity/lighttools/internal/flash"
)

// RegisterBuiltins installs the built-in scene and flash actions.
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]func(ctx *Context, args map[string]any) error{
		"scene.activate":   sceneActivate,
		"scene.save":       sceneSave,
		"scene.deactivate": sceneDeactivate,
		"flash.start":      flashStart,
		"flash.cancel":     flashCancel,
		"flash.cancel_all": flashCancelAll,
		"dimmer.set":       dimmerSet,
		"pair.set_level":   pairSetLevel,
		"pair.set_speed":   pairSetSpeed,
		"pair.toggle":      pairToggle,
	}
	for name, fn := range builtins {
		if err := r.RegisterSimple(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// sceneActivate restores a scene's saved snapshot to the live devices.
// Args: scene (string).
func sceneActivate(ctx *Context, args map[string]any) error {
	ctrl, err := sceneArg(ctx, args)
	if err != nil {
		return err
	}
	if err := ctrl.Activate(ctx.Ctx()); err != nil {
		return fmt.Errorf("activate scene %q: %w", ctrl.ID(), err)
	}
	ctx.Poll()
	return nil
}

// sceneSave snapshots the current state of a scene's tracked entities.
// Args: scene (string).
func sceneSave(ctx *Context, args map[string]any) error {
	ctrl, err := sceneArg(ctx, args)
	if err != nil {
		return err
	}
	if err := ctrl.Save(ctx.Ctx()); err != nil {
		return fmt.Errorf("save scene %q: %w", ctrl.ID(), err)
	}
	ctx.Poll()
	return nil
}

// sceneDeactivate forces a scene off and opens its recheck window.
// Args: scene (string).
func sceneDeactivate(ctx *Context, args map[string]any) error {
	ctrl, err := sceneArg(ctx, args)
	if err != nil {
		return err
	}
	ctrl.Deactivate(ctx.Now())
	return nil
}

// flashStart begins a flash sequence.
// Args: devices ([]string), count (int), on_ms (int), gap_ms (int),
// max_brightness (int, optional), min_brightness (int, optional).
func flashStart(ctx *Context, args map[string]any) error {
	req := flash.Request{
		DeviceIDs:   stringSliceArg(args, "devices"),
		Count:       intArg(args, "count", 1),
		OnDuration:  time.Duration(intArg(args, "on_ms", 500)) * time.Millisecond,
		GapDuration: time.Duration(intArg(args, "gap_ms", 500)) * time.Millisecond,
	}
	if v, ok := optIntArg(args, "max_brightness"); ok {
		req.MaxBrightness = &v
	}
	if v, ok := optIntArg(args, "min_brightness"); ok {
		req.MinBrightness = &v
	}

	if _, err := ctx.Flash().Start(ctx.Ctx(), req); err != nil {
		return fmt.Errorf("start flash: %w", err)
	}
	return nil
}

// flashCancel stops one flash sequence by id.
// Args: sequence (string).
func flashCancel(ctx *Context, args map[string]any) error {
	seqID, _ := args["sequence"].(string)
	if seqID == "" {
		return fmt.Errorf("missing required arg %q", "sequence")
	}
	if !ctx.Flash().Cancel(seqID) {
		return fmt.Errorf("flash sequence %q not running", seqID)
	}
	return nil
}

// flashCancelAll stops every running flash sequence.
func flashCancelAll(ctx *Context, _ map[string]any) error {
	ctx.Flash().CancelAll()
	return nil
}

// dimmerSet sends a brightness command through a variable-linked dimmer,
// so the scaled variable follows. Args: dimmer (string), level (int).
func dimmerSet(ctx *Context, args map[string]any) error {
	id, _ := args["dimmer"].(string)
	if id == "" {
		return fmt.Errorf("missing required arg %q", "dimmer")
	}
	link, ok := ctx.Dimmer(id)
	if !ok {
		return fmt.Errorf("dimmer %q not found", id)
	}
	link.HandleCommand(ctx.Ctx(), intArg(args, "level", 0))
	return nil
}

// pairSetLevel sets a relay pair's level. Args: pair (string), level (int).
func pairSetLevel(ctx *Context, args map[string]any) error {
	pair, err := pairArg(ctx, args)
	if err != nil {
		return err
	}
	pair.SetLevel(ctx.Ctx(), intArg(args, "level", 0))
	return nil
}

// pairSetSpeed sets a fan pair's speed index. Args: pair (string), speed (0-3).
func pairSetSpeed(ctx *Context, args map[string]any) error {
	pair, err := pairArg(ctx, args)
	if err != nil {
		return err
	}
	pair.SetSpeedIndex(ctx.Ctx(), intArg(args, "speed", 0))
	return nil
}

// pairToggle toggles a relay pair between off and full. Args: pair (string).
func pairToggle(ctx *Context, args map[string]any) error {
	pair, err := pairArg(ctx, args)
	if err != nil {
		return err
	}
	pair.Toggle(ctx.Ctx())
	return nil
}

func pairArg(ctx *Context, args map[string]any) (RelayPair, error) {
	id, _ := args["pair"].(string)
	if id == "" {
		return nil, fmt.Errorf("missing required arg %q", "pair")
	}
	pair, ok := ctx.Pair(id)
	if !ok {
		return nil, fmt.Errorf("relay pair %q not found", id)
	}
	return pair, nil
}

func sceneArg(ctx *Context, args map[string]any) (SceneController, error) {
	id, _ := args["scene"].(string)
	if id == "" {
		return nil, fmt.Errorf("missing required arg %q", "scene")
	}
	ctrl, ok := ctx.Scene(id)
	if !ok {
		return nil, fmt.Errorf("scene %q not found", id)
	}
	return ctrl, nil
}

// intArg reads an integer argument, tolerating the numeric types JSON
// and Lua hand over.
func intArg(args map[string]any, key string, fallback int) int {
	v, ok := optIntArg(args, key)
	if !ok {
		return fallback
	}
	return v
}

func optIntArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		if s, ok := args[key].([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
