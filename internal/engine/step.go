package engine

// Step is the atomic executable unit of a scene. The variant set is
// closed: narration, choice, text request, jump, and silent world update.
type Step interface {
	isStep()
}

// Narrate presents a narration and waits for acknowledgement.
type Narrate struct {
	Narration
}

// Choose presents a choice and executes the selected option's step.
type Choose struct {
	Choice
}

// Request asks for free-form text and executes the continuation step.
type Request struct {
	TextRequest
}

// Jump presents its narration like Narrate, then transfers control to
// another scene on acknowledgement.
type Jump struct {
	Narration
	Change SceneChange
}

// Update mutates the world silently. It never touches the handler.
type Update struct {
	Apply Mutation
}

func (Narrate) isStep() {}
func (Choose) isStep()  {}
func (Request) isStep() {}
func (Jump) isStep()    {}
func (Update) isStep()  {}

// anchored labels a step as a named entry point within its scene.
type anchored struct {
	name string
	Step
}

// WithAnchor marks step as the entry point named name. Scene changes that
// target the anchor start execution at this step.
func WithAnchor(name string, step Step) Step {
	return anchored{name: name, Step: step}
}

// Action is the handler's verdict on a suspension point.
type Action int

const (
	// ActionAdvance resolves the step and moves on.
	ActionAdvance Action = iota
	// ActionReplay re-evaluates the same step on the next loop pass.
	ActionReplay
	// ActionStop halts the run loop immediately.
	ActionStop
)

// Outcome is the result of evaluating one step.
type Outcome struct {
	Action Action
	Change *SceneChange
}
