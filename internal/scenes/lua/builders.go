package lua

import (
	"math"

	"github.com/Shopify/go-lua"
)

func registerSceneBuilder(state *lua.State) {
	lua.NewMetaTable(state, sceneTypeName)
	state.NewTable()
	lua.SetFunctions(state, sceneMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, sceneConstructor, 0)
	state.SetGlobal("Scene")
}

var sceneConstructor = []lua.RegistryFunction{
	{Name: "new", Function: sceneNew},
}

var sceneMethods = []lua.RegistryFunction{
	{Name: "say", Function: sceneSay},
	{Name: "choice", Function: sceneChoice},
	{Name: "ask", Function: sceneAsk},
	{Name: "set", Function: sceneSet},
	{Name: "jump", Function: sceneJump},
	{Name: "anchor", Function: sceneAnchor},
}

func sceneNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scene := &Scene{name: name}
	state.PushUserData(scene)
	lua.SetMetaTableNamed(state, sceneTypeName)
	return 1
}

func sceneSay(state *lua.State) int {
	scene := checkScene(state)
	lua.CheckType(state, 2, lua.TypeTable)
	scene.append("say", tableToMap(state, 2))
	return 0
}

func sceneChoice(state *lua.State) int {
	scene := checkScene(state)
	lua.CheckType(state, 2, lua.TypeTable)
	scene.append("choice", tableToMap(state, 2))
	return 0
}

func sceneAsk(state *lua.State) int {
	scene := checkScene(state)
	lua.CheckType(state, 2, lua.TypeTable)
	scene.append("ask", tableToMap(state, 2))
	return 0
}

func sceneSet(state *lua.State) int {
	scene := checkScene(state)
	key := lua.CheckString(state, 2)
	value := luaToGo(state, 3)
	scene.append("set", map[string]any{"key": key, "value": value})
	return 0
}

func sceneJump(state *lua.State) int {
	scene := checkScene(state)
	lua.CheckType(state, 2, lua.TypeTable)
	scene.append("jump", tableToMap(state, 2))
	return 0
}

func sceneAnchor(state *lua.State) int {
	scene := checkScene(state)
	name := lua.CheckString(state, 2)
	scene.append("anchor", map[string]any{"name": name})
	return 0
}

func checkScene(state *lua.State) *Scene {
	ud := lua.CheckUserData(state, 1, sceneTypeName)
	if scene, ok := ud.(*Scene); ok && scene != nil {
		return scene
	}
	lua.ArgumentError(state, 1, "scene expected")
	return nil
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

// Lua numbers are floats; whole values come back as ints so world state
// and JSON statuses stay stable.
func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
