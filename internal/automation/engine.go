//go:build !no_automation

package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"movehub/internal/fleet"
)

// Fleet is the subset of the fleet manager exposed to scripts.
type Fleet interface {
	SetRumble(id int, amount float32) bool
	ResetPose(id int) bool
	Events() *fleet.EventBus
}

// luaEventHandler is a registered Lua callback for an event type.
type luaEventHandler struct {
	eventType string // empty matches every event
	fn        *lua.LFunction
}

// scriptVM is a running Lua VM for a single script. All Lua access after
// load goes through the commands channel, so handlers never race.
type scriptVM struct {
	state    *lua.LState
	commands chan func(*lua.LState)
	handlers []luaEventHandler
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // protects handlers
}

// Engine loads Lua hook scripts from a directory and dispatches fleet
// events to them. Scripts react to connect/disconnect and can drive
// rumble, which covers the "buzz on pairing" class of automations without
// recompiling.
type Engine struct {
	fleet      Fleet
	logger     *slog.Logger
	scriptsDir string

	mu    sync.Mutex
	vms   map[string]*scriptVM // script name -> running VM
	unsub func()
}

// NewEngine creates a new automation engine.
func NewEngine(fl Fleet, scriptsDir string, logger *slog.Logger) *Engine {
	return &Engine{
		fleet:      fl,
		logger:     logger.With("component", "automation"),
		scriptsDir: scriptsDir,
		vms:        make(map[string]*scriptVM),
	}
}

// Start loads every .lua file in the scripts directory and subscribes to
// fleet events. A missing directory is not an error, just no scripts.
func (e *Engine) Start() {
	entries, err := os.ReadDir(e.scriptsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Error("read scripts dir", "dir", e.scriptsDir, "err", err)
		}
		entries = nil
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".lua")
		if err := e.startScript(name, filepath.Join(e.scriptsDir, entry.Name())); err != nil {
			e.logger.Error("start script", "name", name, "err", err)
		}
	}

	e.unsub = e.fleet.Events().OnAll(e.dispatchEvent)
	e.logger.Info("automation engine started", "scripts", len(e.vms))
}

// Stop cancels all VMs and unsubscribes from the event bus.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for name, vm := range e.vms {
		vm.cancel()
		delete(e.vms, name)
	}

	e.logger.Info("automation engine stopped")
}

func (e *Engine) startScript(name, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	L := lua.NewState()

	// Sandbox: scripts get the hub module and the pure stdlib, nothing
	// that touches the host.
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)

	vm := &scriptVM{
		state:    L,
		commands: make(chan func(*lua.LState), 64),
		ctx:      ctx,
		cancel:   cancel,
	}

	registerHubModule(L, vm, e, name)

	// Top-level execution registers the handlers.
	if err := L.DoString(string(code)); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("execute script %s: %w", name, err)
	}

	e.mu.Lock()
	e.vms[name] = vm
	e.mu.Unlock()

	go func() {
		defer L.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-vm.commands:
				fn(L)
			}
		}
	}()

	e.logger.Info("script started", "name", name)
	return nil
}

// dispatchEvent routes a fleet event to every matching Lua handler.
func (e *Engine) dispatchEvent(event fleet.Event) {
	e.mu.Lock()
	vms := make([]*scriptVM, 0, len(e.vms))
	for _, vm := range e.vms {
		vms = append(vms, vm)
	}
	e.mu.Unlock()

	for _, vm := range vms {
		vm.mu.Lock()
		handlers := make([]luaEventHandler, len(vm.handlers))
		copy(handlers, vm.handlers)
		vm.mu.Unlock()

		for _, h := range handlers {
			if h.eventType != "" && h.eventType != event.Type {
				continue
			}

			fn := h.fn
			select {
			case <-vm.ctx.Done():
			case vm.commands <- func(L *lua.LState) {
				e.callHandler(L, fn, event)
			}:
			default:
				e.logger.Warn("script command channel full, dropping event")
			}
		}
	}
}

func (e *Engine) callHandler(L *lua.LState, fn *lua.LFunction, event fleet.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("lua handler panic", "err", r)
		}
	}()

	eventTable := L.NewTable()
	eventTable.RawSetString("type", lua.LString(event.Type))
	eventTable.RawSetString("data", goToLua(L, event.Data))

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, eventTable); err != nil {
		e.logger.Error("lua handler error", "err", err)
	}
}

// goToLua converts a Go value to a Lua value.
func goToLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(float64(val))
	case uint64:
		return lua.LNumber(float64(val))
	case float64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(float64(val))
	case map[string]interface{}:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case []interface{}:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
