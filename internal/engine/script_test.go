package engine

import "testing"

func TestScriptRecordNarration(t *testing.T) {
	script := NewScript()
	script.recordNarration(Narration{
		Messages: []Message{
			{ID: "m1", Text: "first"},
			{ID: "m1", Text: "second"},
			{Text: "unidentified"},
			{ID: "silent"},
		},
		Tags: []Tag{{Name: "watched", Observe: true}, {Name: "ignored"}},
	})

	if script.Narrated["m1"] != 2 {
		t.Fatalf("expected m1 counted twice, got %d", script.Narrated["m1"])
	}
	if script.Narrated["silent"] != 1 {
		t.Fatalf("expected textless message still counted, got %d", script.Narrated["silent"])
	}
	wordsEqual(t, script, []string{"first", "second", "unidentified"})
	if script.Observed["watched"] != 1 {
		t.Fatalf("expected watched observed once, got %d", script.Observed["watched"])
	}
	if _, ok := script.Observed["ignored"]; ok {
		t.Fatal("non-observing tag must not be recorded")
	}
}

func TestScriptCloneIsIndependent(t *testing.T) {
	script := NewScript()
	script.recordAnswer("original")
	script.Narrated["m"] = 1

	copied := script.clone()
	copied.Narrated["m"] = 9
	copied.Words = append(copied.Words, "extra")

	if script.Narrated["m"] != 1 {
		t.Fatalf("clone mutation leaked into source: %d", script.Narrated["m"])
	}
	if len(script.Words) != 1 {
		t.Fatalf("clone words leaked into source: %v", script.Words)
	}
}

func TestScriptEnsureRepairsNilMaps(t *testing.T) {
	var script Script
	script.ensure()
	script.recordMessage(Message{ID: "ok", Text: "ok"})
	if script.Narrated["ok"] != 1 {
		t.Fatalf("expected record after ensure, got %v", script.Narrated)
	}
}
