package engine

// Scene is an author-defined unit of narrative producing an ordered step
// list. Steps must be pure: calling it twice yields the same steps in the
// same order, which is what makes section caching sound.
//
// TypeID identifies the concrete scene type in encoded statuses. Authors
// must keep type ids globally unique within a registry; the engine cannot
// detect collisions at encode time.
type Scene interface {
	TypeID() string
	Steps() []Step
}

// ChangeKind selects one of the three scene-transition semantics.
type ChangeKind string

const (
	// ChangeReplace swaps the current frame for the target scene.
	ChangeReplace ChangeKind = "replace"
	// ChangeRunThrough pushes the target scene; when it completes, the
	// originating scene resumes at the step after the jump.
	ChangeRunThrough ChangeKind = "run_through"
	// ChangeTransition discards the whole stack and starts over at the
	// target scene.
	ChangeTransition ChangeKind = "transition"
)

// SceneChange transfers control between scenes. It is the only mechanism
// that does so. Anchor optionally names the entry point within the target
// scene; unknown anchors fall back to the first step.
type SceneChange struct {
	Kind   ChangeKind
	Scene  Scene
	Anchor string
}

// ReplaceWith builds a scene change that swaps the current frame for scene.
func ReplaceWith(scene Scene) SceneChange {
	return SceneChange{Kind: ChangeReplace, Scene: scene}
}

// RunThrough builds a scene change that detours through scene and returns.
func RunThrough(scene Scene) SceneChange {
	return SceneChange{Kind: ChangeRunThrough, Scene: scene}
}

// TransitionTo builds a scene change that discards the stack for scene.
func TransitionTo(scene Scene) SceneChange {
	return SceneChange{Kind: ChangeTransition, Scene: scene}
}

// AtAnchor returns a copy of the change entering at the named anchor.
func (c SceneChange) AtAnchor(anchor string) SceneChange {
	c.Anchor = anchor
	return c
}

// compiledScene is the memoized result of one Steps() invocation: the
// ordered steps with anchor wrappers stripped, and the anchor index map.
type compiledScene struct {
	steps   []Step
	anchors map[string]int
}

func compileScene(scene Scene) compiledScene {
	raw := scene.Steps()
	compiled := compiledScene{
		steps:   make([]Step, 0, len(raw)),
		anchors: map[string]int{},
	}
	for i, step := range raw {
		if a, ok := step.(anchored); ok {
			compiled.anchors[a.name] = i
			step = a.Step
		}
		compiled.steps = append(compiled.steps, step)
	}
	return compiled
}

// Section is the compiled form of one (scene, anchor) pair.
type Section struct {
	Scene  Scene
	Anchor string

	compiled compiledScene
}

func newSection(scene Scene, anchor string, compiled compiledScene) Section {
	return Section{Scene: scene, Anchor: anchor, compiled: compiled}
}

// Start is the step index the section begins at: the anchor's index when
// known, otherwise 0.
func (s Section) Start() int {
	if idx, ok := s.compiled.anchors[s.Anchor]; ok {
		return idx
	}
	return 0
}

// Len is the number of steps in the section.
func (s Section) Len() int {
	return len(s.compiled.steps)
}

func (s Section) step(i int) Step {
	return s.compiled.steps[i]
}

// Frame is one entry of the runtime scene stack.
type Frame struct {
	Section Section
	Index   int
}
