package engine

import "context"

// Ack is the handler's reply to a narration. Update is applied to the
// world whatever the action is, so partial progress is never lost.
type Ack struct {
	Action Action
	Update Mutation
}

// ChoiceReply is the handler's reply to a choice prompt. OptionID must be
// one of the ids minted for the prompt being answered.
type ChoiceReply struct {
	Action   Action
	OptionID string
	Update   Mutation
}

// AnswerReply is the handler's reply to a text prompt. Text carries the
// validated answer when the action is advance.
type AnswerReply struct {
	Action Action
	Text   string
	Update Mutation
}

// Handler is the callback surface through which the interpreter suspends
// for player input and reports lifecycle events. The three prompt calls
// are the only suspension points of the run loop; each may take arbitrary
// wall-clock time. Returning an error aborts the run.
type Handler interface {
	AcknowledgeNarration(ctx context.Context, n Narration) (Ack, error)
	MakeChoice(ctx context.Context, c ChoicePrompt) (ChoiceReply, error)
	AnswerRequest(ctx context.Context, r TextPrompt) (AnswerReply, error)

	// HandleEvent receives lifecycle events. It is fire-and-forget: the
	// loop does not interpret its behavior, but it is called synchronously
	// so a status_updated event can be persisted before the next step runs.
	HandleEvent(e Event)
}

// EventKind identifies a lifecycle event.
type EventKind string

const (
	// EventGameStarted fires once when a run first starts.
	EventGameStarted EventKind = "game_started"
	// EventGameEnded fires when the scene stack empties naturally.
	EventGameEnded EventKind = "game_ended"
	// EventStatusUpdated fires after every status mutation.
	EventStatusUpdated EventKind = "status_updated"
	// EventErrorProduced fires when the run recovers from or surfaces an error.
	EventErrorProduced EventKind = "error_produced"
)

// Event is a lifecycle notification. Status carries the encoded status
// blob for game_started and status_updated; Err carries the failure for
// error_produced.
type Event struct {
	Kind   EventKind
	Status []byte
	Err    error
}
