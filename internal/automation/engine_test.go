//go:build !no_automation

package automation

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"movehub/internal/fleet"
)

type fakeFleet struct {
	mu      sync.Mutex
	events  *fleet.EventBus
	rumbles []float32
	resets  []int
}

func (f *fakeFleet) SetRumble(id int, amount float32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rumbles = append(f.rumbles, amount)
	return true
}

func (f *fakeFleet) ResetPose(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, id)
	return true
}

func (f *fakeFleet) Events() *fleet.EventBus { return f.events }

func (f *fakeFleet) rumbleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rumbles)
}

func setupEngine(t *testing.T, scripts map[string]string) (*Engine, *fakeFleet) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	dir := t.TempDir()
	for name, code := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(code), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fl := &fakeFleet{events: fleet.NewEventBus(logger)}
	e := NewEngine(fl, dir, logger)
	e.Start()
	t.Cleanup(e.Stop)
	return e, fl
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEngineDispatchesEvents(t *testing.T) {
	_, fl := setupEngine(t, map[string]string{
		"buzz.lua": `
hub.on_event("controller_connected", function(event)
	hub.rumble(event.data.id, 0.5)
end)
`,
	})

	fl.events.Emit(fleet.Event{
		Type: fleet.EventControllerConnected,
		Data: map[string]interface{}{"id": 2},
	})

	waitFor(t, func() bool { return fl.rumbleCount() == 1 })

	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.rumbles[0] != 0.5 {
		t.Errorf("rumble amount = %v, want 0.5", fl.rumbles[0])
	}
}

func TestEngineEventTypeFilter(t *testing.T) {
	_, fl := setupEngine(t, map[string]string{
		"filter.lua": `
hub.on_event("controller_vanished", function(event)
	hub.rumble(0, 1)
end)
`,
	})

	fl.events.Emit(fleet.Event{Type: fleet.EventControllerConnected})
	time.Sleep(50 * time.Millisecond)

	if got := fl.rumbleCount(); got != 0 {
		t.Errorf("handler fired %d times for non-matching event", got)
	}
}

func TestEngineWildcardHandler(t *testing.T) {
	_, fl := setupEngine(t, map[string]string{
		"all.lua": `
hub.on_event("*", function(event)
	hub.rumble(0, 0.1)
end)
`,
	})

	fl.events.Emit(fleet.Event{Type: fleet.EventControllerConnected})
	fl.events.Emit(fleet.Event{Type: fleet.EventCapacityExceeded})

	waitFor(t, func() bool { return fl.rumbleCount() == 2 })
}

func TestEngineBrokenScriptDoesNotStopOthers(t *testing.T) {
	e, fl := setupEngine(t, map[string]string{
		"broken.lua": `this is not lua`,
		"good.lua": `
hub.on_event("fleet_state", function(event)
	hub.reset_pose(0)
end)
`,
	})

	e.mu.Lock()
	vms := len(e.vms)
	e.mu.Unlock()
	if vms != 1 {
		t.Errorf("running vms = %d, want 1", vms)
	}

	fl.events.Emit(fleet.Event{Type: fleet.EventFleetState, Data: "running"})
	waitFor(t, func() bool {
		fl.mu.Lock()
		defer fl.mu.Unlock()
		return len(fl.resets) == 1
	})
}

func TestEngineSandbox(t *testing.T) {
	e, _ := setupEngine(t, map[string]string{
		"escape.lua": `local f = io.open("/etc/passwd")`,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.vms) != 0 {
		t.Error("script touching io should have failed to load")
	}
}

func TestEngineMissingScriptsDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	fl := &fakeFleet{events: fleet.NewEventBus(logger)}

	e := NewEngine(fl, filepath.Join(t.TempDir(), "nope"), logger)
	e.Start() // must not panic or error out
	e.Stop()
}
