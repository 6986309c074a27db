package engine

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TestTranscriptGolden plays a small three-scene story with a
// deterministic handler and compares the full transcript against a
// golden file. Regenerate with: go test ./internal/engine -run Golden -update
func TestTranscriptGolden(t *testing.T) {
	end := stubScene{id: "story.end", steps: func() []Step {
		return []Step{say("end_1", "Open water. No wake behind you.")}
	}}
	skiff := stubScene{id: "story.skiff", steps: func() []Step {
		return []Step{say("skiff_1", "The skiff rocks under your weight.")}
	}}
	dawn := stubScene{id: "story.dawn", steps: func() []Step {
		return []Step{
			say("dawn_1", "Grey light crawls over the harbor."),
			Choose{Choice: Choice{
				Options: []Option{
					{
						Message: Message{ID: "take_skiff", Text: "Take the skiff"},
						Step:    Jump{Change: RunThrough(skiff)},
					},
					{
						Message: Message{ID: "walk_pier", Text: "Walk the pier"},
						Step:    say("pier_1", "The pier creaks and goes nowhere."),
					},
				},
			}},
			Request{TextRequest: TextRequest{
				Message: &Message{ID: "ask_name", Text: "What do they call you?"},
				Continue: func(validated string) Step {
					return say("greeting", "The harbor remembers you, "+validated+".")
				},
			}},
			Jump{
				Narration: Narration{Messages: []Message{{ID: "leave", Text: "You cast off at last."}}},
				Change:    TransitionTo(end),
			},
		}
	}}

	handler := &fakeHandler{}
	handler.answer = func(TextPrompt) AnswerReply {
		return AnswerReply{Action: ActionAdvance, Text: "Mouse"}
	}
	game, err := New(Config{
		Handler:  handler,
		Registry: registryFor(t, dawn, skiff, end),
		Scene:    dawn,
		NewID:    newIDSequence("opt"),
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	mustRun(t, game)

	transcript := strings.Join(game.Script().Words, "\n") + "\n"
	g := goldie.New(t, goldie.WithNameSuffix(".golden"))
	g.Assert(t, "transcript", []byte(transcript))
}
