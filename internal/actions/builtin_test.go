package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/durosity/lighttools/internal/flash"
)

type fakeScene struct {
	id          string
	saved       int
	activated   int
	deactivated int
	err         error
}

func (s *fakeScene) ID() string                     { return s.id }
func (s *fakeScene) Save(context.Context) error     { s.saved++; return s.err }
func (s *fakeScene) Activate(context.Context) error { s.activated++; return s.err }
func (s *fakeScene) Deactivate(time.Time)           { s.deactivated++ }

type fakeScenes map[string]*fakeScene

func (f fakeScenes) Scene(id string) (SceneController, bool) {
	s, ok := f[id]
	return s, ok
}

type fakeFlasher struct {
	started   []flash.Request
	cancelled int
	startErr  error
}

func (f *fakeFlasher) Start(_ context.Context, req flash.Request) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, req)
	return "seq-1", nil
}

func (f *fakeFlasher) Cancel(seqID string) bool { return seqID == "seq-1" }
func (f *fakeFlasher) CancelAll() int           { f.cancelled++; return f.cancelled }

type fakePoller struct{ triggers int }

func (p *fakePoller) Trigger() { p.triggers++ }

type fakePair struct {
	level   int
	speed   int
	toggles int
}

func (p *fakePair) SetLevel(_ context.Context, level int)      { p.level = level }
func (p *fakePair) SetSpeedIndex(_ context.Context, index int) { p.speed = index }
func (p *fakePair) Toggle(context.Context)                     { p.toggles++ }

type fakeDimmer struct{ level int }

func (d *fakeDimmer) HandleCommand(_ context.Context, level int) { d.level = level }

type fakeDevices struct {
	dimmers map[string]*fakeDimmer
	pairs   map[string]*fakePair
}

func (f *fakeDevices) Dimmer(id string) (DimmerLink, bool) {
	d, ok := f.dimmers[id]
	return d, ok
}

func (f *fakeDevices) Pair(id string) (RelayPair, bool) {
	p, ok := f.pairs[id]
	return p, ok
}

func newTestInvoker(scenes fakeScenes, devices Devices, flasher *fakeFlasher, poller *fakePoller) *Invoker {
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		panic(err)
	}
	return NewInvoker(registry, func(ctx context.Context) *Context {
		return NewContext(ctx, scenes, devices, flasher, poller, nil)
	})
}

func TestSceneActions(t *testing.T) {
	living := &fakeScene{id: "living"}
	scenes := fakeScenes{"living": living}
	poller := &fakePoller{}
	invoker := newTestInvoker(scenes, nil, &fakeFlasher{}, poller)
	ctx := context.Background()

	if err := invoker.Invoke(ctx, "scene.save", map[string]any{"scene": "living"}); err != nil {
		t.Fatalf("scene.save failed: %v", err)
	}
	if living.saved != 1 {
		t.Errorf("expected 1 save, got %d", living.saved)
	}

	if err := invoker.Invoke(ctx, "scene.activate", map[string]any{"scene": "living"}); err != nil {
		t.Fatalf("scene.activate failed: %v", err)
	}
	if living.activated != 1 {
		t.Errorf("expected 1 activate, got %d", living.activated)
	}
	if poller.triggers != 2 {
		t.Errorf("expected poll trigger after save and activate, got %d", poller.triggers)
	}

	if err := invoker.Invoke(ctx, "scene.deactivate", map[string]any{"scene": "living"}); err != nil {
		t.Fatalf("scene.deactivate failed: %v", err)
	}
	if living.deactivated != 1 {
		t.Errorf("expected 1 deactivate, got %d", living.deactivated)
	}
}

func TestSceneActionErrors(t *testing.T) {
	invoker := newTestInvoker(fakeScenes{}, nil, &fakeFlasher{}, &fakePoller{})
	ctx := context.Background()

	tests := []struct {
		name   string
		action string
		args   map[string]any
	}{
		{name: "unknown_scene", action: "scene.activate", args: map[string]any{"scene": "nope"}},
		{name: "missing_scene_arg", action: "scene.save", args: map[string]any{}},
		{name: "unknown_action", action: "scene.explode", args: map[string]any{"scene": "living"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := invoker.Invoke(ctx, tt.action, tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFlashStartAction(t *testing.T) {
	flasher := &fakeFlasher{}
	invoker := newTestInvoker(fakeScenes{}, nil, flasher, &fakePoller{})

	err := invoker.Invoke(context.Background(), "flash.start", map[string]any{
		"devices":        []any{"dimmer1", "relay1"},
		"count":          float64(3), // numbers arrive as float64 from JSON and Lua
		"on_ms":          float64(250),
		"gap_ms":         float64(100),
		"max_brightness": float64(80),
	})
	if err != nil {
		t.Fatalf("flash.start failed: %v", err)
	}

	if len(flasher.started) != 1 {
		t.Fatalf("expected 1 sequence, got %d", len(flasher.started))
	}
	req := flasher.started[0]
	if len(req.DeviceIDs) != 2 || req.Count != 3 {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.OnDuration != 250*time.Millisecond || req.GapDuration != 100*time.Millisecond {
		t.Errorf("unexpected durations: on=%v gap=%v", req.OnDuration, req.GapDuration)
	}
	if req.MaxBrightness == nil || *req.MaxBrightness != 80 {
		t.Error("max_brightness not passed through")
	}
	if req.MinBrightness != nil {
		t.Error("min_brightness should stay nil when omitted")
	}
}

func TestFlashStartPropagatesError(t *testing.T) {
	flasher := &fakeFlasher{startErr: flash.ErrNoDevices}
	invoker := newTestInvoker(fakeScenes{}, nil, flasher, &fakePoller{})

	err := invoker.Invoke(context.Background(), "flash.start", map[string]any{
		"devices": []any{},
		"count":   float64(1),
	})
	if !errors.Is(err, flash.ErrNoDevices) {
		t.Errorf("expected ErrNoDevices, got %v", err)
	}
}

func TestFlashCancelActions(t *testing.T) {
	flasher := &fakeFlasher{}
	invoker := newTestInvoker(fakeScenes{}, nil, flasher, &fakePoller{})
	ctx := context.Background()

	if err := invoker.Invoke(ctx, "flash.cancel", map[string]any{"sequence": "seq-1"}); err != nil {
		t.Errorf("flash.cancel failed: %v", err)
	}
	if err := invoker.Invoke(ctx, "flash.cancel", map[string]any{"sequence": "seq-2"}); err == nil {
		t.Error("expected error for unknown sequence")
	}

	if err := invoker.Invoke(ctx, "flash.cancel_all", nil); err != nil {
		t.Errorf("flash.cancel_all failed: %v", err)
	}
	if flasher.cancelled != 1 {
		t.Errorf("expected 1 cancel_all, got %d", flasher.cancelled)
	}
}

func TestDeviceActions(t *testing.T) {
	devices := &fakeDevices{
		dimmers: map[string]*fakeDimmer{"kitchen": {}},
		pairs:   map[string]*fakePair{"bedroom-fan": {}},
	}
	invoker := newTestInvoker(fakeScenes{}, devices, &fakeFlasher{}, &fakePoller{})
	ctx := context.Background()

	if err := invoker.Invoke(ctx, "dimmer.set", map[string]any{"dimmer": "kitchen", "level": float64(70)}); err != nil {
		t.Fatalf("dimmer.set failed: %v", err)
	}
	if devices.dimmers["kitchen"].level != 70 {
		t.Errorf("dimmer level = %d", devices.dimmers["kitchen"].level)
	}

	if err := invoker.Invoke(ctx, "pair.set_level", map[string]any{"pair": "bedroom-fan", "level": float64(66)}); err != nil {
		t.Fatalf("pair.set_level failed: %v", err)
	}
	if err := invoker.Invoke(ctx, "pair.set_speed", map[string]any{"pair": "bedroom-fan", "speed": float64(2)}); err != nil {
		t.Fatalf("pair.set_speed failed: %v", err)
	}
	if err := invoker.Invoke(ctx, "pair.toggle", map[string]any{"pair": "bedroom-fan"}); err != nil {
		t.Fatalf("pair.toggle failed: %v", err)
	}
	pair := devices.pairs["bedroom-fan"]
	if pair.level != 66 || pair.speed != 2 || pair.toggles != 1 {
		t.Errorf("unexpected pair state: %+v", pair)
	}

	if err := invoker.Invoke(ctx, "dimmer.set", map[string]any{"dimmer": "nope"}); err == nil {
		t.Error("expected error for unknown dimmer")
	}
	if err := invoker.Invoke(ctx, "pair.toggle", map[string]any{}); err == nil {
		t.Error("expected error for missing pair arg")
	}
}

func TestRegistryLookupAndNames(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zz.last", "aa.first", "mm.middle"} {
		if err := registry.RegisterSimple(name, func(*Context, map[string]any) error { return nil }); err != nil {
			t.Fatalf("RegisterSimple(%q) failed: %v", name, err)
		}
	}

	action, ok := registry.Get("mm.middle")
	if !ok || action.Name() != "mm.middle" {
		t.Errorf("Get(mm.middle) = %v ok=%v", action, ok)
	}
	if _, ok := registry.Get("nope"); ok {
		t.Error("Get(nope) should miss")
	}

	names := registry.Names()
	want := []string{"aa.first", "mm.middle", "zz.last"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("RegisterBuiltins failed: %v", err)
	}
	if err := RegisterBuiltins(registry); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
