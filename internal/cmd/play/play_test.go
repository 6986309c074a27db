package play

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/louisbranch/storyweft/internal/engine"
	"github.com/louisbranch/storyweft/internal/storage"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.BundleDir != "stories" {
		t.Fatalf("expected default bundle dir, got %q", cfg.BundleDir)
	}
	if cfg.Slot != "auto" {
		t.Fatalf("expected default slot, got %q", cfg.Slot)
	}
	if cfg.Story != "stories" {
		t.Fatalf("expected story to default to bundle dir, got %q", cfg.Story)
	}
}

func TestParseConfigFlagOverrides(t *testing.T) {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	args := []string{"-bundle", "tales", "-slot", "two", "-resume"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.BundleDir != "tales" || cfg.Slot != "two" || !cfg.Resume {
		t.Fatalf("flag overrides not applied: %+v", cfg)
	}
	if cfg.Story != "tales" {
		t.Fatalf("expected story to follow bundle dir, got %q", cfg.Story)
	}
}

type stubScene struct {
	id    string
	steps []engine.Step
}

func (s stubScene) TypeID() string       { return s.id }
func (s stubScene) Steps() []engine.Step { return s.steps }

type memoryStore struct {
	records []storage.SaveRecord
}

func (s *memoryStore) PutSave(_ context.Context, record storage.SaveRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *memoryStore) GetSave(context.Context, string, string) (storage.SaveRecord, error) {
	return storage.SaveRecord{}, storage.ErrNotFound
}

func (s *memoryStore) ListSaves(context.Context, string) ([]storage.SaveRecord, error) {
	return nil, nil
}

func (s *memoryStore) DeleteSave(context.Context, string, string) error { return nil }

func crossingScene() engine.Scene {
	return stubScene{
		id: "crossing",
		steps: []engine.Step{
			engine.Narrate{Narration: engine.Narration{
				Messages: []engine.Message{{ID: "c1", Text: "A river blocks the road."}},
			}},
			engine.Choose{Choice: engine.Choice{
				Options: []engine.Option{
					{Message: engine.Message{ID: "wade", Text: "Wade across"}},
					{Message: engine.Message{ID: "bridge", Text: "Find the bridge"}},
				},
			}},
			engine.Request{TextRequest: engine.TextRequest{
				Message: &engine.Message{ID: "c2", Text: "Shout your name to the far bank."},
			}},
		},
	}
}

func newTerminalGame(t *testing.T, input string, out *bytes.Buffer, store storage.SaveStore) *engine.Game {
	t.Helper()
	handler := newTerminalHandler(strings.NewReader(input), out, store, "crossing", "auto")
	game, err := engine.New(engine.Config{
		Handler:  handler,
		Registry: engine.NewRegistry(),
		Scene:    crossingScene(),
		World:    map[string]any{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return game
}

func TestTerminalHandlerPlaysScene(t *testing.T) {
	var out bytes.Buffer
	store := &memoryStore{}
	// Acknowledge, fumble the pick, pick the bridge, answer, done.
	game := newTerminalGame(t, "\nnine\n2\nTam\n", &out, store)

	if err := game.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"A river blocks the road.",
		"1. Wade across",
		"2. Find the bridge",
		"pick 1-2",
		"Shout your name to the far bank.",
		"The end.",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}

	script := game.Script()
	if script.Narrated["bridge"] != 1 {
		t.Fatalf("narrated counts = %v", script.Narrated)
	}
	if len(store.records) == 0 {
		t.Fatal("no autosave recorded")
	}
	last := store.records[len(store.records)-1]
	if last.Story != "crossing" || last.Slot != "auto" || len(last.Status) == 0 {
		t.Fatalf("autosave record = %+v", last)
	}
}

func TestTerminalHandlerQuitStopsTheRun(t *testing.T) {
	var out bytes.Buffer
	game := newTerminalGame(t, "q\n", &out, nil)

	if err := game.Run(context.Background()); !errors.Is(err, engine.ErrStopped) {
		t.Fatalf("Run error = %v, want ErrStopped", err)
	}
}

func TestTerminalHandlerStopsOnEndOfInput(t *testing.T) {
	var out bytes.Buffer
	game := newTerminalGame(t, "", &out, nil)

	if err := game.Run(context.Background()); !errors.Is(err, engine.ErrStopped) {
		t.Fatalf("Run error = %v, want ErrStopped", err)
	}
}
