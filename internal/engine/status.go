package engine

import (
	"encoding/json"
	"fmt"
)

// SceneCodec encodes and decodes one concrete scene type. Encode may be
// nil for scene types that carry no fields; Decode must reject payloads
// whose type id is not its own by returning an *IdentifierError.
type SceneCodec struct {
	TypeID string
	Encode func(scene Scene) (json.RawMessage, error)
	Decode func(fields json.RawMessage) (Scene, error)
}

// WorldCodec encodes and decodes the opaque world value. The default
// codec round-trips the world through plain JSON.
type WorldCodec struct {
	Encode func(world any) (json.RawMessage, error)
	Decode func(raw json.RawMessage) (any, error)
}

func jsonWorldCodec() WorldCodec {
	return WorldCodec{
		Encode: func(world any) (json.RawMessage, error) {
			if world == nil {
				return json.RawMessage("null"), nil
			}
			return json.Marshal(world)
		},
		Decode: func(raw json.RawMessage) (any, error) {
			if len(raw) == 0 {
				return nil, nil
			}
			var world any
			if err := json.Unmarshal(raw, &world); err != nil {
				return nil, fmt.Errorf("decode world: %w", err)
			}
			return world, nil
		},
	}
}

// Registry holds the ordered list of scene codecs for one game plus the
// world codec. Decoding an encoded section tries codecs in registration
// order; the first success wins.
type Registry struct {
	codecs []SceneCodec
	byID   map[string]int
	world  WorldCodec
}

// NewRegistry returns a registry with a JSON world codec.
func NewRegistry() *Registry {
	return &Registry{
		byID:  map[string]int{},
		world: jsonWorldCodec(),
	}
}

// RegisterScene appends a scene codec. Registering the same type id twice
// is an authoring error and is rejected here, before any status could
// silently decode to the wrong type.
func (r *Registry) RegisterScene(codec SceneCodec) error {
	if codec.TypeID == "" {
		return ErrTypeIDRequired
	}
	if codec.Decode == nil {
		return fmt.Errorf("%w: %s", ErrDecoderRequired, codec.TypeID)
	}
	if _, ok := r.byID[codec.TypeID]; ok {
		return fmt.Errorf("%w: %s", ErrTypeIDTaken, codec.TypeID)
	}
	r.byID[codec.TypeID] = len(r.codecs)
	r.codecs = append(r.codecs, codec)
	return nil
}

// SetWorldCodec replaces the world codec for games whose world is not
// plain-JSON representable.
func (r *Registry) SetWorldCodec(codec WorldCodec) {
	if codec.Encode != nil && codec.Decode != nil {
		r.world = codec
	}
}

// Wire shapes. The encoded status does not self-describe beyond the
// embedded scene type id, which is why decode goes through the registry.

type statusInfoWire struct {
	Script Script          `json:"script"`
	World  json.RawMessage `json:"world"`
}

type sectionWire struct {
	Scene  string          `json:"scene"`
	Fields json.RawMessage `json:"fields,omitempty"`
	Anchor string          `json:"anchor,omitempty"`
}

type frameWire struct {
	StepIndex int         `json:"stepIndex"`
	Section   sectionWire `json:"section"`
}

type statusWire struct {
	Info       statusInfoWire `json:"info"`
	SceneStack []frameWire    `json:"sceneStack"`
}

func (r *Registry) encodeScene(scene Scene) (sectionWire, error) {
	wire := sectionWire{Scene: scene.TypeID()}
	idx, ok := r.byID[wire.Scene]
	if !ok {
		return sectionWire{}, fmt.Errorf("scene type %q is not registered", wire.Scene)
	}
	if encode := r.codecs[idx].Encode; encode != nil {
		fields, err := encode(scene)
		if err != nil {
			return sectionWire{}, fmt.Errorf("encode scene %q: %w", wire.Scene, err)
		}
		wire.Fields = fields
	}
	return wire, nil
}

// decodeSection reconstructs a concrete scene from its encoded form by
// trying every codec in order and accumulating all rejections.
func (r *Registry) decodeSection(wire sectionWire) (Scene, error) {
	var errs []error
	for _, codec := range r.codecs {
		if codec.TypeID != wire.Scene {
			errs = append(errs, &IdentifierError{Expected: codec.TypeID, Received: wire.Scene})
			continue
		}
		scene, err := codec.Decode(wire.Fields)
		if err != nil {
			errs = append(errs, fmt.Errorf("codec %s: %w", codec.TypeID, err))
			continue
		}
		return scene, nil
	}
	return nil, &DecodeError{Errs: errs}
}

// encodeStatus serializes the full resumable state.
func (r *Registry) encodeStatus(script Script, world any, stack []Frame) ([]byte, error) {
	rawWorld, err := r.world.Encode(world)
	if err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	wire := statusWire{
		Info:       statusInfoWire{Script: script, World: rawWorld},
		SceneStack: make([]frameWire, 0, len(stack)),
	}
	for _, frame := range stack {
		section, err := r.encodeScene(frame.Section.Scene)
		if err != nil {
			return nil, err
		}
		section.Anchor = frame.Section.Anchor
		wire.SceneStack = append(wire.SceneStack, frameWire{
			StepIndex: frame.Index,
			Section:   section,
		})
	}
	return json.Marshal(wire)
}

type decodedStatus struct {
	script Script
	world  any
	frames []frameWire
}

func (r *Registry) decodeStatus(encoded []byte) (decodedStatus, error) {
	var wire statusWire
	if err := json.Unmarshal(encoded, &wire); err != nil {
		return decodedStatus{}, fmt.Errorf("decode status: %w", err)
	}
	world, err := r.world.Decode(wire.Info.World)
	if err != nil {
		return decodedStatus{}, err
	}
	script := wire.Info.Script
	script.ensure()
	return decodedStatus{script: script, world: world, frames: wire.SceneStack}, nil
}
