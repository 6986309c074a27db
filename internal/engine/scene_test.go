package engine

import "testing"

func TestCompileSceneBuildsAnchorIndex(t *testing.T) {
	scene := stubScene{id: "scene.compile", steps: func() []Step {
		return []Step{
			say("a", "a"),
			WithAnchor("middle", say("b", "b")),
			WithAnchor("end", say("c", "c")),
		}
	}}

	compiled := compileScene(scene)
	if len(compiled.steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(compiled.steps))
	}
	if compiled.anchors["middle"] != 1 || compiled.anchors["end"] != 2 {
		t.Fatalf("unexpected anchor map: %v", compiled.anchors)
	}
	// Anchor wrappers are stripped so evaluation sees plain steps.
	for i, step := range compiled.steps {
		if _, ok := step.(anchored); ok {
			t.Fatalf("step %d still wrapped", i)
		}
	}

	section := newSection(scene, "middle", compiled)
	if section.Start() != 1 {
		t.Fatalf("expected start 1 for middle, got %d", section.Start())
	}
	section = newSection(scene, "absent", compiled)
	if section.Start() != 0 {
		t.Fatalf("expected unknown anchor to start at 0, got %d", section.Start())
	}
}
