package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/durosity/lighttools/internal/actions"
	"github.com/durosity/lighttools/internal/device"
)

// newTestRuntime loads the script, then starts the worker goroutine,
// matching the production startup order.
func newTestRuntime(t *testing.T, accessor device.Accessor, registry *actions.Registry, script string) *Runtime {
	t.Helper()
	if registry == nil {
		registry = actions.NewRegistry()
	}
	invoker := actions.NewInvoker(registry, func(ctx context.Context) *actions.Context {
		return actions.NewContext(ctx, nil, nil, nil, nil, nil)
	})

	r := NewRuntime(invoker, accessor)
	if err := r.LoadString(script); err != nil {
		t.Fatalf("script failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	t.Cleanup(func() {
		cancel()
		r.Close()
	})
	return r
}

func waitForValue(t *testing.T, accessor *device.FakeAccessor, entityID string, check func(device.Value) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := accessor.Get(entityID); ok && check(v) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("entity %q never reached expected value", entityID)
}

func TestSceneHandlerFires(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"marker": device.Relay(false),
	})
	script := `
		local hooks = require("hooks")
		local entity = require("entity")
		hooks.on_scene("evening", function(scene_id, state)
			if state == "on" then
				entity.write("marker", { kind = "relay", on = true })
			end
		end)
	`
	r := newTestRuntime(t, accessor, nil, script)

	r.OnSceneState(context.Background(), "evening", "on")
	waitForValue(t, accessor, "marker", func(v device.Value) bool { return v.On })
}

func TestSceneHandlerOnlyFiresForItsScene(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"marker": device.Relay(false),
	})
	script := `
		local hooks = require("hooks")
		local entity = require("entity")
		hooks.on_scene("evening", function()
			entity.write("marker", { kind = "relay", on = true })
		end)
	`
	r := newTestRuntime(t, accessor, nil, script)

	r.OnSceneState(context.Background(), "morning", "on")

	// Give the worker time to process the (ignored) event
	time.Sleep(50 * time.Millisecond)
	if got := accessor.WriteCount(); got != 0 {
		t.Errorf("handler fired for wrong scene, %d writes", got)
	}
}

func TestValueHandlerReceivesValue(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"echo": device.Dimmer(0),
	})
	script := `
		local hooks = require("hooks")
		local entity = require("entity")
		hooks.on_value("kitchen-dimmer", function(entity_id, value)
			entity.write("echo", { kind = "dimmer", level = value.level })
		end)
	`
	r := newTestRuntime(t, accessor, nil, script)

	r.OnValueChanged(context.Background(), "kitchen-dimmer", device.Dimmer(42))
	waitForValue(t, accessor, "echo", func(v device.Value) bool { return v.Level == 42 })
}

func TestFlashHandlerReceivesState(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"marker": device.Variable(""),
	})
	script := `
		local hooks = require("hooks")
		local entity = require("entity")
		hooks.on_flash(function(seq_id, state)
			entity.write("marker", { kind = "variable", text = seq_id .. ":" .. state })
		end)
	`
	r := newTestRuntime(t, accessor, nil, script)

	r.OnFlash(context.Background(), "seq-1", "finished")
	waitForValue(t, accessor, "marker", func(v device.Value) bool { return v.Text == "seq-1:finished" })
}

func TestEntityReadFromLua(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"sensor": device.Variable("21.5"),
		"copy":   device.Variable(""),
	})
	script := `
		local entity = require("entity")
		local v = entity.read("sensor")
		entity.write("copy", { kind = "variable", text = v.text })

		if entity.read("missing") ~= nil then
			error("expected nil for unknown entity")
		end
	`
	_ = newTestRuntime(t, accessor, nil, script)

	if v, _ := accessor.Get("copy"); v.Text != "21.5" {
		t.Errorf("copy = %q, want %q", v.Text, "21.5")
	}
}

func TestActionRunFromLua(t *testing.T) {
	registry := actions.NewRegistry()
	invoked := make(chan map[string]any, 1)
	if err := registry.RegisterSimple("test.mark", func(_ *actions.Context, args map[string]any) error {
		invoked <- args
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	accessor := device.NewFakeAccessor(nil)
	script := `
		local action = require("action")
		action.run("test.mark", { reason = "sunset", level = 30 })
	`
	_ = newTestRuntime(t, accessor, registry, script)

	select {
	case args := <-invoked:
		if args["reason"] != "sunset" {
			t.Errorf("reason = %v", args["reason"])
		}
		if level, ok := args["level"].(float64); !ok || level != 30 {
			t.Errorf("level = %v", args["level"])
		}
	default:
		t.Fatal("action was not invoked")
	}
}

func TestBrokenHandlerDoesNotKillWorker(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"marker": device.Relay(false),
	})
	script := `
		local hooks = require("hooks")
		local entity = require("entity")
		hooks.on_scene("bad", function()
			error("boom")
		end)
		hooks.on_scene("good", function()
			entity.write("marker", { kind = "relay", on = true })
		end)
	`
	r := newTestRuntime(t, accessor, nil, script)

	ctx := context.Background()
	r.OnSceneState(ctx, "bad", "on")
	r.OnSceneState(ctx, "good", "on")
	waitForValue(t, accessor, "marker", func(v device.Value) bool { return v.On })
}
