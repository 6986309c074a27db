package lua

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/storyweft/internal/engine"
)

// rawStep is a step as recorded by the script builders, before being
// lowered into engine steps.
type rawStep struct {
	kind string
	args map[string]any
}

// Scene is a Lua-scripted scene. Its name is both the scene type id in
// encoded statuses and the key other scripts use to reference it.
type Scene struct {
	name   string
	raw    []rawStep
	bundle *Bundle
}

// TypeID returns the scene name declared by the script.
func (s *Scene) TypeID() string { return s.name }

// Name returns the scene name declared by the script.
func (s *Scene) Name() string { return s.name }

// Steps lowers the recorded script steps into engine steps. The result
// is deterministic for a given script, which is what the engine's
// section cache relies on.
func (s *Scene) Steps() []engine.Step {
	steps := make([]engine.Step, 0, len(s.raw))
	pendingAnchor := ""
	for _, raw := range s.raw {
		if raw.kind == "anchor" {
			pendingAnchor = stringArg(raw.args, "name")
			continue
		}
		step := s.lower(raw)
		if pendingAnchor != "" {
			step = engine.WithAnchor(pendingAnchor, step)
			pendingAnchor = ""
		}
		steps = append(steps, step)
	}
	return steps
}

func (s *Scene) lower(raw rawStep) engine.Step {
	switch raw.kind {
	case "say":
		return engine.Narrate{Narration: narrationFromArgs(raw.args)}
	case "set":
		return engine.Update{Apply: setValue(stringArg(raw.args, "key"), raw.args["value"])}
	case "jump":
		return engine.Jump{
			Narration: narrationFromArgs(raw.args),
			Change:    s.changeFromArgs(raw.args),
		}
	case "ask":
		return engine.Request{TextRequest: s.requestFromArgs(raw.args)}
	case "choice":
		return engine.Choose{Choice: s.choiceFromArgs(raw.args)}
	default:
		// Load rejects unknown kinds; a kind reaching here resolves as a
		// silent no-op rather than wedging the run.
		return engine.Narrate{}
	}
}

// targets lists every scene name this scene's steps reference.
func (s *Scene) targets() []string {
	var out []string
	for _, raw := range s.raw {
		if target := stringArg(raw.args, "scene"); target != "" && raw.kind != "anchor" {
			out = append(out, target)
		}
		for _, opt := range optionTables(raw.args) {
			if target := stringArg(opt, "scene"); target != "" {
				out = append(out, target)
			}
		}
	}
	return out
}

func (s *Scene) changeFromArgs(args map[string]any) engine.SceneChange {
	change := engine.SceneChange{
		Kind:   engine.ChangeReplace,
		Scene:  s.bundle.ref(stringArg(args, "scene")),
		Anchor: stringArg(args, "anchor"),
	}
	switch stringArg(args, "mode") {
	case "run_through":
		change.Kind = engine.ChangeRunThrough
	case "transition":
		change.Kind = engine.ChangeTransition
	}
	return change
}

func (s *Scene) requestFromArgs(args map[string]any) engine.TextRequest {
	request := engine.TextRequest{Tags: tagsFromArgs(args)}
	if message, ok := messageFromArgs(args); ok {
		request.Message = &message
	}
	required := boolArg(args, "required")
	request.Validate = func(text string) (string, error) {
		text = strings.TrimSpace(text)
		if required && text == "" {
			return "", errors.New("an answer is required")
		}
		return text, nil
	}
	if key := stringArg(args, "var"); key != "" {
		request.Continue = func(validated string) engine.Step {
			return engine.Update{Apply: setValue(key, validated)}
		}
	}
	return request
}

func (s *Scene) choiceFromArgs(args map[string]any) engine.Choice {
	choice := engine.Choice{Tags: tagsFromArgs(args)}
	for _, opt := range optionTables(args) {
		message, _ := messageFromArgs(opt)
		choice.Options = append(choice.Options, engine.Option{
			Message: message,
			Tags:    tagsFromArgs(opt),
			Step:    s.optionStep(opt),
		})
	}
	return choice
}

// optionStep picks the continuation a selected option executes: a jump
// when it names a scene, a narration when it says something, a world
// update when it sets a value, otherwise a silent advance.
func (s *Scene) optionStep(opt map[string]any) engine.Step {
	if stringArg(opt, "scene") != "" {
		return engine.Jump{Change: s.changeFromArgs(opt)}
	}
	if text := stringArg(opt, "say"); text != "" {
		return engine.Narrate{Narration: engine.Narration{
			Messages: []engine.Message{{ID: stringArg(opt, "say_id"), Text: text}},
		}}
	}
	if set, ok := opt["set"].(map[string]any); ok {
		return engine.Update{Apply: setValue(stringArg(set, "key"), set["value"])}
	}
	return engine.Narrate{}
}

// setValue mutates the map world Lua scenes use.
func setValue(key string, value any) engine.Mutation {
	return func(world any) any {
		state, ok := world.(map[string]any)
		if !ok || state == nil {
			state = map[string]any{}
		}
		state[key] = value
		return state
	}
}

func narrationFromArgs(args map[string]any) engine.Narration {
	narration := engine.Narration{Tags: tagsFromArgs(args)}
	if message, ok := messageFromArgs(args); ok {
		narration.Messages = append(narration.Messages, message)
	}
	return narration
}

func messageFromArgs(args map[string]any) (engine.Message, bool) {
	message := engine.Message{
		ID:   stringArg(args, "id"),
		Text: stringArg(args, "text"),
	}
	return message, message.ID != "" || message.Text != ""
}

// tagsFromArgs reads the plain "tags" list and the counted "observe"
// list of an argument table.
func tagsFromArgs(args map[string]any) []engine.Tag {
	var tags []engine.Tag
	for _, name := range stringList(args["tags"]) {
		tags = append(tags, engine.Tag{Name: name})
	}
	for _, name := range stringList(args["observe"]) {
		tags = append(tags, engine.Tag{Name: name, Observe: true})
	}
	return tags
}

func optionTables(args map[string]any) []map[string]any {
	list, ok := args["options"].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if table, ok := item.(map[string]any); ok {
			out = append(out, table)
		}
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func boolArg(args map[string]any, key string) bool {
	value, _ := args[key].(bool)
	return value
}

func stringList(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (s *Scene) append(kind string, args map[string]any) {
	if args == nil {
		args = map[string]any{}
	}
	s.raw = append(s.raw, rawStep{kind: kind, args: args})
}

func (s *Scene) String() string {
	return fmt.Sprintf("lua scene %s (%d steps)", s.name, len(s.raw))
}
