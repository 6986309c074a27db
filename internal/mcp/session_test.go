package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/storyweft/internal/engine"
	"github.com/louisbranch/storyweft/internal/storage"
)

type stubScene struct {
	id    string
	steps []engine.Step
}

func (s stubScene) TypeID() string       { return s.id }
func (s stubScene) Steps() []engine.Step { return s.steps }

func setFlag(key string) engine.Mutation {
	return func(world any) any {
		state, ok := world.(map[string]any)
		if !ok {
			state = map[string]any{}
		}
		state[key] = true
		return state
	}
}

func testScene() engine.Scene {
	return stubScene{
		id: "trail",
		steps: []engine.Step{
			engine.Narrate{Narration: engine.Narration{
				Messages: []engine.Message{{ID: "t1", Text: "The trail forks."}},
			}},
			engine.Choose{Choice: engine.Choice{
				Options: []engine.Option{
					{Message: engine.Message{ID: "left", Text: "Go left"}, Step: engine.Update{Apply: setFlag("left")}},
					{Message: engine.Message{ID: "right", Text: "Go right"}, Step: engine.Update{Apply: setFlag("right")}},
				},
			}},
			engine.Request{TextRequest: engine.TextRequest{
				Message: &engine.Message{ID: "q1", Text: "Who walks with you?"},
			}},
			engine.Narrate{Narration: engine.Narration{
				Messages: []engine.Message{{ID: "t2", Text: "The woods thin out."}},
			}},
		},
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func startSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	ctx := testContext(t)
	if cfg.Registry == nil {
		cfg.Registry = engine.NewRegistry()
	}
	if cfg.Scene == nil && len(cfg.Status) == 0 {
		cfg.Scene = testScene()
	}
	session, err := NewSession(ctx, cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func awaitKind(t *testing.T, session *Session, want PromptKind) *prompt {
	t.Helper()
	p, err := session.Pending(testContext(t))
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if p.kind != want {
		t.Fatalf("prompt kind = %s, want %s", p.kind, want)
	}
	return p
}

func TestSessionWalksEveryPromptKind(t *testing.T) {
	session := startSession(t, SessionConfig{World: map[string]any{}})
	ctx := testContext(t)

	p := awaitKind(t, session, PromptNarration)
	if len(p.narration.Messages) != 1 || p.narration.Messages[0].Text != "The trail forks." {
		t.Fatalf("narration = %+v", p.narration)
	}
	if err := session.Acknowledge(ctx); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	p = awaitKind(t, session, PromptChoice)
	if len(p.choice.Options) != 2 {
		t.Fatalf("options = %+v", p.choice.Options)
	}
	if err := session.Choose(ctx, p.choice.Options[1].ID); err != nil {
		t.Fatalf("Choose: %v", err)
	}

	p = awaitKind(t, session, PromptQuestion)
	if p.question.Message == nil || p.question.Message.Text != "Who walks with you?" {
		t.Fatalf("question = %+v", p.question)
	}
	if err := session.Answer(ctx, "An old dog"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	awaitKind(t, session, PromptNarration)
	if err := session.Acknowledge(ctx); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	p = awaitKind(t, session, PromptEnded)
	if p.err != nil {
		t.Fatalf("run ended with %v", p.err)
	}

	script := session.Script()
	if script.Narrated["right"] != 1 {
		t.Fatalf("narrated counts = %v", script.Narrated)
	}
	found := false
	for _, word := range script.Words {
		if word == "An old dog" {
			found = true
		}
	}
	if !found {
		t.Fatalf("words = %v, want the answer recorded", script.Words)
	}
}

func TestSessionRejectsMismatchedReplies(t *testing.T) {
	session := startSession(t, SessionConfig{})
	ctx := testContext(t)

	awaitKind(t, session, PromptNarration)
	if err := session.Choose(ctx, "whatever"); !errors.Is(err, ErrWrongReply) {
		t.Fatalf("Choose during narration = %v, want ErrWrongReply", err)
	}
	if err := session.Answer(ctx, "nope"); !errors.Is(err, ErrWrongReply) {
		t.Fatalf("Answer during narration = %v, want ErrWrongReply", err)
	}
	if err := session.Acknowledge(ctx); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
}

func TestSessionRepresentsChoiceAfterUnknownOption(t *testing.T) {
	session := startSession(t, SessionConfig{})
	ctx := testContext(t)

	awaitKind(t, session, PromptNarration)
	if err := session.Acknowledge(ctx); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	first := awaitKind(t, session, PromptChoice)
	if err := session.Choose(ctx, "forged-id"); err != nil {
		t.Fatalf("Choose: %v", err)
	}

	// The run loop rejects the unknown id and parks the choice again
	// with freshly minted option ids.
	second := awaitKind(t, session, PromptChoice)
	if second.choice.Options[0].ID == first.choice.Options[0].ID {
		t.Fatal("replayed prompt reused option ids")
	}
	if err := session.Choose(ctx, second.choice.Options[0].ID); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	awaitKind(t, session, PromptQuestion)
}

// recordingStore keeps puts in memory for autosave assertions.
type recordingStore struct {
	records []storage.SaveRecord
}

func (s *recordingStore) PutSave(_ context.Context, record storage.SaveRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *recordingStore) GetSave(context.Context, string, string) (storage.SaveRecord, error) {
	return storage.SaveRecord{}, storage.ErrNotFound
}

func (s *recordingStore) ListSaves(context.Context, string) ([]storage.SaveRecord, error) {
	return nil, nil
}

func (s *recordingStore) DeleteSave(context.Context, string, string) error { return nil }

func TestSessionAutosavesStatusUpdates(t *testing.T) {
	store := &recordingStore{}
	session := startSession(t, SessionConfig{
		Saves: store,
		Story: "trail",
		Slot:  "auto",
	})
	ctx := testContext(t)

	awaitKind(t, session, PromptNarration)
	if err := session.Acknowledge(ctx); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	awaitKind(t, session, PromptChoice)

	if len(store.records) == 0 {
		t.Fatal("no autosave recorded")
	}
	last := store.records[len(store.records)-1]
	if last.Story != "trail" || last.Slot != "auto" || len(last.Status) == 0 {
		t.Fatalf("autosave record = %+v", last)
	}
}

func TestToolHandlersDriveTheSession(t *testing.T) {
	session := startSession(t, SessionConfig{})
	ctx := testContext(t)

	_, result, err := PromptHandler(session)(ctx, nil, PromptInput{})
	if err != nil {
		t.Fatalf("story_prompt: %v", err)
	}
	if result.Kind != string(PromptNarration) || len(result.Messages) != 1 {
		t.Fatalf("story_prompt = %+v", result)
	}

	_, result, err = AckHandler(session)(ctx, nil, AckInput{})
	if err != nil {
		t.Fatalf("story_ack: %v", err)
	}
	if result.Kind != string(PromptChoice) || len(result.Options) != 2 {
		t.Fatalf("story_ack = %+v", result)
	}

	_, result, err = ChooseHandler(session)(ctx, nil, ChooseInput{OptionID: result.Options[0].ID})
	if err != nil {
		t.Fatalf("story_choose: %v", err)
	}
	if result.Kind != string(PromptQuestion) || result.Question == "" {
		t.Fatalf("story_choose = %+v", result)
	}

	_, result, err = AnswerHandler(session)(ctx, nil, AnswerInput{Text: "Nobody"})
	if err != nil {
		t.Fatalf("story_answer: %v", err)
	}
	if result.Kind != string(PromptNarration) {
		t.Fatalf("story_answer = %+v", result)
	}

	_, transcript, err := TranscriptHandler(session)(ctx, nil, TranscriptInput{})
	if err != nil {
		t.Fatalf("story_transcript: %v", err)
	}
	if transcript.Narrated["t1"] != 1 {
		t.Fatalf("transcript = %+v", transcript)
	}
}
