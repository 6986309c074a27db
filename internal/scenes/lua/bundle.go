package lua

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/storyweft/internal/engine"
)

const sceneTypeName = "scene"

var (
	// ErrSceneUnknown indicates a scene name with no loaded script.
	ErrSceneUnknown = errors.New("scene is not loaded")
	// ErrSceneNameTaken indicates two scripts declaring the same scene name.
	ErrSceneNameTaken = errors.New("scene name is already declared")
	// ErrStepKindUnknown indicates a recorded step kind the lowerer does
	// not recognize.
	ErrStepKindUnknown = errors.New("step kind is not recognized")
)

// stepKinds lists every kind the builders record and lower understands.
var stepKinds = map[string]bool{
	"say":    true,
	"set":    true,
	"jump":   true,
	"ask":    true,
	"choice": true,
	"anchor": true,
}

// Bundle holds every scene loaded from one script directory.
type Bundle struct {
	scenes map[string]*Scene
	order  []string
}

// Load runs every .lua file under root in fsys and collects the scenes
// they return. Scripts run in lexical filename order. Load fails when a
// script errors, two scenes share a name, or a step references a scene
// that no script declares.
func Load(fsys fs.FS, root string) (*Bundle, error) {
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read bundle dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".lua") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no .lua scripts under %s", root)
	}

	bundle := &Bundle{scenes: map[string]*Scene{}}
	for _, file := range files {
		scene, err := bundle.runScript(fsys, path.Join(root, file))
		if err != nil {
			return nil, err
		}
		if scene.name == "" {
			scene.name = strings.TrimSuffix(file, ".lua")
		}
		if _, ok := bundle.scenes[scene.name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrSceneNameTaken, scene.name)
		}
		scene.bundle = bundle
		bundle.scenes[scene.name] = scene
		bundle.order = append(bundle.order, scene.name)
	}

	if err := bundle.validateSteps(); err != nil {
		return nil, err
	}
	if err := bundle.validateReferences(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// validateSteps rejects step kinds the lowerer does not understand, so a
// builder that drifts from the lowerer fails at load instead of silently
// dropping steps mid-game.
func (b *Bundle) validateSteps() error {
	for _, name := range b.order {
		for _, raw := range b.scenes[name].raw {
			if !stepKinds[raw.kind] {
				return fmt.Errorf("%w: %q (in scene %s)", ErrStepKindUnknown, raw.kind, name)
			}
		}
	}
	return nil
}

// runScript executes one scene script and returns the scene it built.
func (b *Bundle) runScript(fsys fs.FS, filePath string) (*Scene, error) {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", filePath, err)
	}

	state := lua.NewState()
	lua.OpenLibraries(state)
	registerSceneBuilder(state)

	if err := state.Load(bytes.NewReader(data), "@"+filePath, ""); err != nil {
		return nil, fmt.Errorf("load script %s: %w", filePath, err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run script %s: %w", filePath, err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("script %s must return a Scene", filePath)
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scene, ok := ud.(*Scene)
	if !ok || scene == nil {
		return nil, fmt.Errorf("script %s returned an invalid Scene", filePath)
	}
	return scene, nil
}

// validateReferences checks every scene-change target against the loaded
// scene set, so dangling references fail at load instead of mid-game.
func (b *Bundle) validateReferences() error {
	for _, name := range b.order {
		for _, target := range b.scenes[name].targets() {
			if _, ok := b.scenes[target]; !ok {
				return fmt.Errorf("%w: %s (referenced by %s)", ErrSceneUnknown, target, name)
			}
		}
	}
	return nil
}

// Scene returns a loaded scene by name.
func (b *Bundle) Scene(name string) (*Scene, error) {
	scene, ok := b.scenes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneUnknown, name)
	}
	return scene, nil
}

// Names lists the loaded scene names in script order.
func (b *Bundle) Names() []string {
	return append([]string(nil), b.order...)
}

// Register adds one codec per loaded scene to the registry. Lua scenes
// carry no fields beyond their name, which already is the type id, so
// decoding is a bundle lookup.
func (b *Bundle) Register(registry *engine.Registry) error {
	for _, name := range b.order {
		scene := b.scenes[name]
		err := registry.RegisterScene(engine.SceneCodec{
			TypeID: name,
			Decode: func(json.RawMessage) (engine.Scene, error) {
				return scene, nil
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ref builds a lazy reference used as a scene-change target. Load has
// already validated the name, so resolution cannot miss.
func (b *Bundle) ref(name string) engine.Scene {
	return sceneRef{bundle: b, name: name}
}

// sceneRef defers scene resolution to run time so scripts can reference
// scenes declared in later files.
type sceneRef struct {
	bundle *Bundle
	name   string
}

func (r sceneRef) TypeID() string { return r.name }

func (r sceneRef) Steps() []engine.Step {
	scene, err := r.bundle.Scene(r.name)
	if err != nil {
		return nil
	}
	return scene.Steps()
}
