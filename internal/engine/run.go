package engine

import (
	"context"
	"fmt"
)

// Run drives the interpreter until the scene stack empties, the handler
// issues a stop, or the context is canceled. A natural conclusion fires
// game_ended and returns nil; a forced stop returns ErrStopped. Run may
// be called again after a stop to resume where the loop halted.
func (g *Game) Run(ctx context.Context) error {
	g.mu.Lock()
	firstRun := !g.started
	g.started = true
	g.mu.Unlock()
	if firstRun {
		g.emitStatus(EventGameStarted)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		g.mu.Lock()
		if len(g.stack) == 0 {
			g.mu.Unlock()
			g.handler.HandleEvent(Event{Kind: EventGameEnded})
			return nil
		}
		top := g.stack[len(g.stack)-1]
		if top.Index >= top.Section.Len() {
			// Implicit return from a sub-scene that ran past its last step.
			g.stack = g.stack[:len(g.stack)-1]
			g.mu.Unlock()
			g.emitStatus(EventStatusUpdated)
			continue
		}
		step := top.Section.step(top.Index)
		g.mu.Unlock()

		outcome, err := g.eval(ctx, step)
		if err != nil {
			return err
		}

		switch outcome.Action {
		case ActionStop:
			return ErrStopped
		case ActionReplay:
			g.emitStatus(EventStatusUpdated)
		default:
			g.applyOutcome(outcome.Change)
			g.emitStatus(EventStatusUpdated)
		}
	}
}

// eval resolves one step against the handler. Only the run loop and the
// nested continuations of choices and text requests call it; it never
// mutates the scene stack.
func (g *Game) eval(ctx context.Context, step Step) (Outcome, error) {
	switch s := step.(type) {
	case anchored:
		return g.eval(ctx, s.Step)
	case Narrate:
		return g.evalNarration(ctx, s.Narration, nil)
	case Jump:
		change := s.Change
		return g.evalNarration(ctx, s.Narration, &change)
	case Choose:
		return g.evalChoice(ctx, s.Choice)
	case Request:
		return g.evalRequest(ctx, s.TextRequest)
	case Update:
		g.applyMutation(s.Apply)
		return Outcome{Action: ActionAdvance}, nil
	default:
		return Outcome{}, fmt.Errorf("unknown step type %T", step)
	}
}

// evalNested evaluates a step that belongs to an already-resolved outer
// step: a selected option's step or a text request's continuation. The
// outer step's ledger effects have landed by the time this runs, so a
// replay verdict repeats only the nested step, never the outer one.
func (g *Game) evalNested(ctx context.Context, step Step) (Outcome, error) {
	for {
		outcome, err := g.eval(ctx, step)
		if err != nil || outcome.Action != ActionReplay {
			return outcome, err
		}
		g.emitStatus(EventStatusUpdated)
	}
}

// evalNarration handles Narrate steps and the narration half of Jump
// steps; change carries the jump's scene change when present.
func (g *Game) evalNarration(ctx context.Context, n Narration, change *SceneChange) (Outcome, error) {
	if n.empty() {
		// Nothing to present: resolve silently without touching the handler.
		g.applyMutation(n.Update)
		return Outcome{Action: ActionAdvance, Change: change}, nil
	}

	ack, err := g.handler.AcknowledgeNarration(ctx, n)
	if err != nil {
		g.applyMutation(ack.Update)
		return Outcome{}, err
	}
	switch ack.Action {
	case ActionReplay, ActionStop:
		// The ledger stays untouched; handler progress toward the world is
		// still kept.
		g.applyMutation(ack.Update)
		return Outcome{Action: ack.Action}, nil
	}

	g.mu.Lock()
	g.script.recordNarration(n)
	g.mu.Unlock()
	g.applyMutation(n.Update)
	g.applyMutation(ack.Update)
	return Outcome{Action: ActionAdvance, Change: change}, nil
}

func (g *Game) evalChoice(ctx context.Context, c Choice) (Outcome, error) {
	if len(c.Options) == 0 {
		// Never block on an unanswerable choice.
		if g.errorOnNoOptions {
			g.emitError(&NoOptionsError{Choice: c})
		}
		return Outcome{Action: ActionAdvance}, nil
	}
	if len(c.Options) == 1 && !g.forceChoice {
		// A lone option is not a decision: short-circuit into its step
		// without prompting. Choice-level tags are not observed on this path.
		return g.evalNested(ctx, c.Options[0].Step)
	}

	ids := make([]string, 0, len(c.Options))
	prompt := ChoicePrompt{
		Options: make([]PromptOption, 0, len(c.Options)),
		Tags:    c.Tags,
	}
	for _, opt := range c.Options {
		optionID, err := g.newID()
		if err != nil {
			return Outcome{}, fmt.Errorf("mint option id: %w", err)
		}
		ids = append(ids, optionID)
		prompt.Options = append(prompt.Options, PromptOption{
			ID:      optionID,
			Message: opt.Message,
			Tags:    opt.Tags,
		})
	}

	reply, err := g.handler.MakeChoice(ctx, prompt)
	if err != nil {
		g.applyMutation(reply.Update)
		return Outcome{}, err
	}
	switch reply.Action {
	case ActionReplay, ActionStop:
		g.applyMutation(reply.Update)
		return Outcome{Action: reply.Action}, nil
	}

	selected := -1
	for i, optionID := range ids {
		if optionID == reply.OptionID {
			selected = i
			break
		}
	}
	if selected < 0 {
		// Protocol violation: ask again with nothing mutated.
		g.emitError(&InvalidOptionError{Expected: ids, Received: reply.OptionID})
		return Outcome{Action: ActionReplay}, nil
	}

	// The choice is the unit of atomicity: effects land only once the
	// selection matched, as part of executing the chosen branch.
	g.applyMutation(reply.Update)
	option := c.Options[selected]
	g.mu.Lock()
	g.script.observe(c.Tags)
	g.script.observe(option.Tags)
	g.script.recordMessage(option.Message)
	g.mu.Unlock()
	return g.evalNested(ctx, option.Step)
}

func (g *Game) evalRequest(ctx context.Context, r TextRequest) (Outcome, error) {
	validate := r.Validate
	if validate == nil {
		validate = func(text string) (string, error) { return text, nil }
	}
	prompt := TextPrompt{Message: r.Message, Tags: r.Tags, Validate: validate}

	reply, err := g.handler.AnswerRequest(ctx, prompt)
	if err != nil {
		g.applyMutation(reply.Update)
		return Outcome{}, err
	}
	switch reply.Action {
	case ActionReplay, ActionStop:
		g.applyMutation(reply.Update)
		return Outcome{Action: reply.Action}, nil
	}

	g.mu.Lock()
	if r.Message != nil {
		g.script.recordMessage(*r.Message)
	}
	g.script.observe(r.Tags)
	g.script.recordAnswer(reply.Text)
	g.mu.Unlock()
	g.applyMutation(reply.Update)

	if r.Continue == nil {
		return Outcome{Action: ActionAdvance}, nil
	}
	next := r.Continue(reply.Text)
	if next == nil {
		return Outcome{Action: ActionAdvance}, nil
	}
	return g.evalNested(ctx, next)
}
