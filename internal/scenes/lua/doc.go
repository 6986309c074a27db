// Package lua loads story scenes authored as Lua scripts.
//
// A bundle is a directory of .lua files. Each script builds one scene
// through the Scene builder and returns it:
//
//	local scene = Scene.new("harbor.dawn")
//	scene:say{ id = "dawn_1", text = "Grey light crawls over the harbor." }
//	scene:choice{
//		options = {
//			{ id = "skiff", text = "Take the skiff", scene = "harbor.skiff", mode = "run_through" },
//			{ text = "Wait", say = "You wait." },
//		},
//	}
//	return scene
//
// Scene names double as the scene type ids persisted in statuses, so a
// restored game only needs the bundle loaded again to rebuild every
// step list. Lua scenes therefore stay data-driven: world mutations are
// expressed as set/ask steps over a map world, never as closures.
package lua
