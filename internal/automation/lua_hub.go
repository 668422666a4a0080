//go:build !no_automation

package automation

import (
	lua "github.com/yuin/gopher-lua"
)

// registerHubModule exposes the hub table to a script VM:
//
//	hub.on_event(type, fn)   register a handler; type "*" matches all
//	hub.log(msg)             structured log line tagged with the script
//	hub.rumble(id, amount)   queue a rumble command, returns accepted bool
//	hub.reset_pose(id)       queue a pose reset, returns accepted bool
func registerHubModule(L *lua.LState, vm *scriptVM, e *Engine, scriptName string) {
	mod := L.NewTable()

	mod.RawSetString("on_event", L.NewFunction(func(L *lua.LState) int {
		eventType := L.CheckString(1)
		fn := L.CheckFunction(2)
		if eventType == "*" {
			eventType = ""
		}
		vm.mu.Lock()
		vm.handlers = append(vm.handlers, luaEventHandler{eventType: eventType, fn: fn})
		vm.mu.Unlock()
		return 0
	}))

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		e.logger.Info("script log", "script", scriptName, "msg", msg)
		return 0
	}))

	mod.RawSetString("rumble", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		amount := float32(L.CheckNumber(2))
		L.Push(lua.LBool(e.fleet.SetRumble(id, amount)))
		return 1
	}))

	mod.RawSetString("reset_pose", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckInt(1)
		L.Push(lua.LBool(e.fleet.ResetPose(id)))
		return 1
	}))

	L.SetGlobal("hub", mod)
}
