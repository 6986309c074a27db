package engine

import (
	"fmt"
	"sync"

	"github.com/louisbranch/storyweft/internal/id"
)

// Config assembles a game. Handler and Registry are always required;
// Scene seeds a fresh run and is ignored by Restore.
type Config struct {
	Handler  Handler
	Registry *Registry

	// Scene is the initial scene of a fresh game.
	Scene Scene
	// Anchor optionally names the entry point within the initial scene.
	Anchor string
	// World is the game-supplied opaque state. The engine never inspects it.
	World any

	// ForceChoice presents single-option choices to the handler instead of
	// short-circuiting into the lone option.
	ForceChoice bool
	// ErrorOnNoOptions emits an error event when a choice has no options;
	// either way the step resolves as a no-op advance.
	ErrorOnNoOptions bool

	// NewID overrides the option-id generator. Defaults to id.NewID.
	NewID func() (string, error)
}

// Game is the running interpreter: the script ledger, the world, and the
// scene stack, driven by Run. All status reads and writes are serialized
// through the game's mutex, so no caller observes a torn status.
type Game struct {
	mu sync.Mutex

	handler          Handler
	registry         *Registry
	forceChoice      bool
	errorOnNoOptions bool
	newID            func() (string, error)

	script  Script
	world   any
	stack   []Frame
	cache   map[sceneKey]compiledScene
	started bool
}

// sceneKey caches compiled scenes by value identity: the scene type id
// plus its encoded fields. Anchors do not participate because the step
// list is anchor-independent.
type sceneKey struct {
	typeID string
	fields string
}

func newGame(cfg Config) (*Game, error) {
	if cfg.Handler == nil {
		return nil, ErrHandlerRequired
	}
	if cfg.Registry == nil {
		return nil, ErrRegistryRequired
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}
	return &Game{
		handler:          cfg.Handler,
		registry:         cfg.Registry,
		forceChoice:      cfg.ForceChoice,
		errorOnNoOptions: cfg.ErrorOnNoOptions,
		newID:            newID,
		cache:            map[sceneKey]compiledScene{},
	}, nil
}

// New creates a fresh game positioned at the initial scene's entry point.
func New(cfg Config) (*Game, error) {
	if cfg.Scene == nil {
		return nil, ErrSceneRequired
	}
	g, err := newGame(cfg)
	if err != nil {
		return nil, err
	}
	g.script = NewScript()
	g.world = cfg.World
	section := g.sectionFor(cfg.Scene, cfg.Anchor)
	g.stack = []Frame{{Section: section, Index: section.Start()}}
	return g, nil
}

// Restore rebuilds a game from an encoded status. The section cache is
// reseeded from the decoded scene values; it is never part of the
// persisted state. cfg.Scene and cfg.World are ignored.
func Restore(cfg Config, encoded []byte) (*Game, error) {
	g, err := newGame(cfg)
	if err != nil {
		return nil, err
	}
	decoded, err := g.registry.decodeStatus(encoded)
	if err != nil {
		return nil, err
	}
	g.script = decoded.script
	g.world = decoded.world
	for _, frame := range decoded.frames {
		scene, err := g.registry.decodeSection(frame.Section)
		if err != nil {
			return nil, err
		}
		section := g.sectionFor(scene, frame.Section.Anchor)
		// An index equal to Len is legal: a run-through frame parked past
		// its jump pops on resume. Anything outside that is corrupt state.
		if frame.StepIndex < 0 || frame.StepIndex > section.Len() {
			return nil, fmt.Errorf("%w: %d in scene %q", ErrStepIndexRange, frame.StepIndex, frame.Section.Scene)
		}
		g.stack = append(g.stack, Frame{Section: section, Index: frame.StepIndex})
	}
	return g, nil
}

// sectionFor compiles a scene at an anchor, reusing the cached step list
// when the scene value has been compiled before. A cache hit returns the
// identical step ordering: Steps is never re-invoked for a known scene.
func (g *Game) sectionFor(scene Scene, anchor string) Section {
	wire, err := g.registry.encodeScene(scene)
	if err != nil {
		// Unregistered or unencodable scenes compile uncached.
		return newSection(scene, anchor, compileScene(scene))
	}
	key := sceneKey{typeID: wire.Scene, fields: string(wire.Fields)}
	compiled, ok := g.cache[key]
	if !ok {
		compiled = compileScene(scene)
		g.cache[key] = compiled
	}
	return newSection(scene, anchor, compiled)
}

// Snapshot encodes the current status through the registry.
func (g *Game) Snapshot() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry.encodeStatus(g.script, g.world, g.stack)
}

// Script returns an independent copy of the ledger.
func (g *Game) Script() Script {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.script.clone()
}

// World returns the current world value. Callers must treat it as
// read-only; only the run loop mutates it.
func (g *Game) World() any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world
}

// Depth reports the current scene-stack depth. A running game always has
// at least one frame; zero means the game has concluded.
func (g *Game) Depth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.stack)
}

func (g *Game) applyMutation(m Mutation) {
	if m == nil {
		return
	}
	g.mu.Lock()
	g.world = m(g.world)
	g.mu.Unlock()
}

// applyOutcome advances the scene stack after a step resolved. A nil
// change advances the current frame, popping it when it runs past its
// last step; a scene change applies one of the three transition policies.
func (g *Game) applyOutcome(change *SceneChange) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.stack) == 0 {
		return
	}
	if change == nil {
		top := &g.stack[len(g.stack)-1]
		top.Index++
		if top.Index >= top.Section.Len() {
			g.stack = g.stack[:len(g.stack)-1]
		}
		return
	}
	section := g.sectionFor(change.Scene, change.Anchor)
	next := Frame{Section: section, Index: section.Start()}
	switch change.Kind {
	case ChangeRunThrough:
		// Resume the originating scene at the step after the jump.
		g.stack[len(g.stack)-1].Index++
		g.stack = append(g.stack, next)
	case ChangeTransition:
		g.stack = append(g.stack[:0], next)
	default:
		g.stack[len(g.stack)-1] = next
	}
}

func (g *Game) emitError(err error) {
	g.handler.HandleEvent(Event{Kind: EventErrorProduced, Err: err})
}

// emitStatus encodes the status and dispatches it synchronously, letting
// the handler persist on every step without polling.
func (g *Game) emitStatus(kind EventKind) {
	encoded, err := g.Snapshot()
	if err != nil {
		g.emitError(err)
		return
	}
	g.handler.HandleEvent(Event{Kind: kind, Status: encoded})
}
