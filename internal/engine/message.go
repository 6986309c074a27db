package engine

// Message is a single unit of narrated text. The optional ID keys the
// ledger's repetition count; messages sharing an ID are only assumed to
// share an ID, never content.
type Message struct {
	ID   string
	Text string
}

// Tag is an arbitrary metadata label attached to narrations, choices, and
// options. Tags with Observe set accumulate a visit count in the ledger.
type Tag struct {
	Name    string
	Observe bool
}

// Mutation transforms the game-supplied world value. The engine applies
// mutations without inspecting the world.
type Mutation func(world any) any

// Narration is an ordered batch of messages presented to the player as a
// single acknowledgement. A narration with no messages and no tags is a
// no-op and never reaches the handler.
type Narration struct {
	Messages []Message
	Tags     []Tag
	Update   Mutation
}

func (n Narration) empty() bool {
	return len(n.Messages) == 0 && len(n.Tags) == 0
}

// Option is one selectable branch of a choice. The option is a
// continuation: selecting it executes its step.
type Option struct {
	Message Message
	Tags    []Tag
	Step    Step
}

// Choice is an ordered list of options presented to the player.
type Choice struct {
	Options []Option
	Tags    []Tag
}

// TextRequest asks the player for free-form text. Validate normalizes and
// rejects candidate input; Continue builds the step evaluated once a
// validated answer arrives. Both may be nil: a nil Validate accepts any
// input unchanged, a nil Continue advances without a follow-up step.
type TextRequest struct {
	Message  *Message
	Tags     []Tag
	Validate func(text string) (string, error)
	Continue func(validated string) Step
}

// PromptOption is the player-facing form of an option. The ID is minted
// per ask and is only valid for the reply to that ask.
type PromptOption struct {
	ID      string
	Message Message
	Tags    []Tag
}

// ChoicePrompt is the player-facing form of a choice.
type ChoicePrompt struct {
	Options []PromptOption
	Tags    []Tag
}

// TextPrompt is the player-facing form of a text request. The handler may
// call Validate any number of times before replying.
type TextPrompt struct {
	Message  *Message
	Tags     []Tag
	Validate func(text string) (string, error)
}
