package dimmer

import (
	"context"
	"testing"

	"github.com/durosity/lighttools/internal/device"
)

func newTestLink(accessor *device.FakeAccessor, skip SkipFunc) *Link {
	return NewLink(LinkConfig{
		DeviceID:   "dimmer1",
		VariableID: "var1",
		Scale:      Scale{Min: 0, Max: 100},
	}, accessor, skip)
}

func TestLinkInitSyncsVariableToDevice(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"var1":    device.Variable("60"),
		"dimmer1": device.Dimmer(0),
	})
	link := newTestLink(accessor, nil)

	link.Init(context.Background())

	if v, _ := accessor.Get("dimmer1"); v.Level != 60 {
		t.Errorf("expected device at 60, got %d", v.Level)
	}
}

func TestLinkInitCorrectsOutOfRange(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"var1":    device.Variable("150"),
		"dimmer1": device.Dimmer(0),
	})
	link := newTestLink(accessor, nil)

	link.Init(context.Background())

	if v, _ := accessor.Get("var1"); v.Text != "100" {
		t.Errorf("expected variable corrected to 100, got %q", v.Text)
	}
	if v, _ := accessor.Get("dimmer1"); v.Level != 100 {
		t.Errorf("expected device at 100, got %d", v.Level)
	}
}

func TestLinkPollDetectsVariableChange(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"var1":    device.Variable("30"),
		"dimmer1": device.Dimmer(0),
	})
	link := newTestLink(accessor, nil)
	ctx := context.Background()

	link.Init(ctx)
	writesAfterInit := accessor.WriteCount()

	// No change: poll must not write anything
	link.Poll(ctx)
	if accessor.WriteCount() != writesAfterInit {
		t.Errorf("poll wrote despite unchanged variable")
	}

	// External variable edit flows to the device
	accessor.Set("var1", device.Variable("80"))
	link.Poll(ctx)
	if v, _ := accessor.Get("dimmer1"); v.Level != 80 {
		t.Errorf("expected device at 80, got %d", v.Level)
	}
}

func TestLinkPollResetsInvalidValue(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"var1":    device.Variable("40"),
		"dimmer1": device.Dimmer(0),
	})
	link := newTestLink(accessor, nil)
	ctx := context.Background()

	link.Init(ctx)

	accessor.Set("var1", device.Variable("banana"))
	link.Poll(ctx)

	// Variable reset to the device's last known brightness
	if v, _ := accessor.Get("var1"); v.Text != "40" {
		t.Errorf("expected variable reset to 40, got %q", v.Text)
	}
	if v, _ := accessor.Get("dimmer1"); v.Level != 40 {
		t.Errorf("device level changed on invalid value, got %d", v.Level)
	}
}

func TestLinkHandleCommandUpdatesVariable(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"var1":    device.Variable("0"),
		"dimmer1": device.Dimmer(0),
	})
	link := NewLink(LinkConfig{
		DeviceID:   "dimmer1",
		VariableID: "var1",
		Scale:      Scale{Min: 0, Max: 1, Float: true},
	}, accessor, nil)
	ctx := context.Background()

	link.HandleCommand(ctx, 70)

	if v, _ := accessor.Get("var1"); v.Text != "0.7" {
		t.Errorf("expected variable 0.7, got %q", v.Text)
	}
	if v, _ := accessor.Get("dimmer1"); v.Level != 70 {
		t.Errorf("expected device at 70, got %d", v.Level)
	}

	// The command must not bounce back on the next poll
	writes := accessor.WriteCount()
	link.Poll(ctx)
	if accessor.WriteCount() != writes {
		t.Errorf("poll re-triggered after command")
	}
}

func TestLinkSkipsFlashingDevice(t *testing.T) {
	accessor := device.NewFakeAccessor(map[string]device.Value{
		"var1":    device.Variable("30"),
		"dimmer1": device.Dimmer(30),
	})
	flashing := true
	link := newTestLink(accessor, func(string) bool { return flashing })
	ctx := context.Background()

	accessor.Set("var1", device.Variable("90"))
	link.Poll(ctx)
	if v, _ := accessor.Get("dimmer1"); v.Level != 30 {
		t.Errorf("link touched a flashing device")
	}

	flashing = false
	link.Poll(ctx)
	if v, _ := accessor.Get("dimmer1"); v.Level != 90 {
		t.Errorf("expected device at 90 after flash ended, got %d", v.Level)
	}
}
