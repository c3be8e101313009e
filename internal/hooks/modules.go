package hooks

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// logLoader provides log.debug/info/warn/error to Lua
func logLoader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(logFn(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(logFn(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(logFn(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(logFn(zerolog.ErrorLevel)))

	L.Push(mod)
	return 1
}

func logFn(level zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)

		event := log.WithLevel(level).Str("source", "lua")
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			tbl.ForEach(func(key, value lua.LValue) {
				event = event.Interface(lua.LVAsString(key), luaToGo(value))
			})
		}
		event.Msg(msg)
		return 0
	}
}

// actionLoader provides action.run(name, args) to Lua
func (r *Runtime) actionLoader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "run", L.NewFunction(r.actionRun))
	L.Push(mod)
	return 1
}

// action.run(name, args) - invoke a built-in action
func (r *Runtime) actionRun(L *lua.LState) int {
	name := L.CheckString(1)
	argsTable := L.OptTable(2, L.NewTable())

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := r.invoker.Invoke(ctx, name, tableToMap(argsTable)); err != nil {
		L.RaiseError("action %q failed: %s", name, err.Error())
		return 0
	}
	return 0
}

// entityLoader provides entity.read(id) and entity.write(id, value)
func (r *Runtime) entityLoader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "read", L.NewFunction(r.entityRead))
	L.SetField(mod, "write", L.NewFunction(r.entityWrite))
	L.Push(mod)
	return 1
}

// entity.read(id) -> table or nil if unreachable
func (r *Runtime) entityRead(L *lua.LState) int {
	entityID := L.CheckString(1)

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	value, err := r.accessor.ReadValue(ctx, entityID)
	if err != nil {
		log.Debug().Err(err).Str("entity", entityID).Msg("Lua entity read failed")
		L.Push(lua.LNil)
		return 1
	}

	L.Push(valueToLua(L, value))
	return 1
}

// entity.write(id, value)
func (r *Runtime) entityWrite(L *lua.LState) int {
	entityID := L.CheckString(1)
	tbl := L.CheckTable(2)

	value, err := luaToValue(tbl)
	if err != nil {
		L.RaiseError("entity.write: %s", err.Error())
		return 0
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := r.accessor.WriteValue(ctx, entityID, value); err != nil {
		L.RaiseError("entity.write %q: %s", entityID, err.Error())
		return 0
	}
	return 0
}

// hooksLoader provides handler registration:
//
//	hooks.on_scene(scene_id, fn(scene_id, state))
//	hooks.on_value(entity_id, fn(entity_id, value))
//	hooks.on_flash(fn(sequence_id, state))
func (r *Runtime) hooksLoader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "on_scene", L.NewFunction(r.onScene))
	L.SetField(mod, "on_value", L.NewFunction(r.onValue))
	L.SetField(mod, "on_flash", L.NewFunction(r.onFlash))
	L.Push(mod)
	return 1
}

func (r *Runtime) onScene(L *lua.LState) int {
	sceneID := L.CheckString(1)
	fn := L.CheckFunction(2)

	r.sceneHandlers[sceneID] = append(r.sceneHandlers[sceneID], fn)
	log.Debug().Str("scene", sceneID).Msg("Registered Lua scene handler")
	return 0
}

func (r *Runtime) onValue(L *lua.LState) int {
	entityID := L.CheckString(1)
	fn := L.CheckFunction(2)

	r.valueHandlers[entityID] = append(r.valueHandlers[entityID], fn)
	log.Debug().Str("entity", entityID).Msg("Registered Lua value handler")
	return 0
}

func (r *Runtime) onFlash(L *lua.LState) int {
	fn := L.CheckFunction(1)

	r.flashHandlers = append(r.flashHandlers, fn)
	log.Debug().Msg("Registered Lua flash handler")
	return 0
}
