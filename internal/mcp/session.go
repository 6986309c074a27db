// Package mcp exposes a running story as MCP tools: one tool fetches
// the pending prompt, three deliver the player's reply. The engine run
// loop is synchronous, so the session parks each handler callback on a
// channel until the matching tool call arrives.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/storyweft/internal/engine"
	"github.com/louisbranch/storyweft/internal/storage"
)

// PromptKind names the kind of interaction the story is waiting on.
type PromptKind string

const (
	PromptNarration PromptKind = "narration"
	PromptChoice    PromptKind = "choice"
	PromptQuestion  PromptKind = "question"
	// PromptEnded is terminal: the story concluded or the run failed.
	PromptEnded PromptKind = "ended"
)

var (
	// ErrSessionClosed indicates the story has already concluded.
	ErrSessionClosed = errors.New("story session is closed")
	// ErrWrongReply indicates a reply tool that does not match the
	// pending prompt kind.
	ErrWrongReply = errors.New("reply does not match the pending prompt")
)

// prompt is one parked handler callback plus its reply channel.
type prompt struct {
	kind      PromptKind
	narration engine.Narration
	choice    engine.ChoicePrompt
	question  engine.TextPrompt

	// err is the run failure carried by a terminal prompt.
	err error

	reply chan reply
}

type reply struct {
	optionID string
	text     string
}

// SessionConfig assembles a play session.
type SessionConfig struct {
	Registry *engine.Registry
	Scene    engine.Scene
	World    any
	// Status resumes from an encoded status instead of Scene.
	Status []byte

	// Saves, when set, persists every status update under Story and Slot.
	Saves storage.SaveStore
	Story string
	Slot  string
}

// Session owns one running game. The run loop lives in its own
// goroutine; tools synchronize with it exclusively through Pending and
// the three reply methods.
type Session struct {
	game    *engine.Game
	prompts chan *prompt

	saves storage.SaveStore
	story string
	slot  string

	mu      sync.Mutex
	current *prompt
}

// NewSession builds the session and starts the run loop.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	s := &Session{
		prompts: make(chan *prompt),
		saves:   cfg.Saves,
		story:   cfg.Story,
		slot:    cfg.Slot,
	}
	engineCfg := engine.Config{
		Handler:  sessionHandler{session: s, ctx: ctx},
		Registry: cfg.Registry,
		Scene:    cfg.Scene,
		World:    cfg.World,
	}
	var (
		game *engine.Game
		err  error
	)
	if len(cfg.Status) > 0 {
		game, err = engine.Restore(engineCfg, cfg.Status)
	} else {
		game, err = engine.New(engineCfg)
	}
	if err != nil {
		return nil, err
	}
	s.game = game

	go func() {
		runErr := game.Run(ctx)
		terminal := &prompt{kind: PromptEnded, err: runErr}
		select {
		case s.prompts <- terminal:
		case <-ctx.Done():
		}
	}()
	return s, nil
}

// Pending blocks until the story is waiting on input and returns the
// parked prompt. Calling it again before replying returns the same
// prompt.
func (s *Session) Pending(ctx context.Context) (*prompt, error) {
	s.mu.Lock()
	if s.current != nil {
		p := s.current
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	select {
	case p := <-s.prompts:
		s.mu.Lock()
		s.current = p
		s.mu.Unlock()
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliver resolves the pending prompt of the given kind. The prompt's
// reply channel unblocks the parked handler callback.
func (s *Session) deliver(ctx context.Context, kind PromptKind, r reply) error {
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()
	if p == nil {
		return fmt.Errorf("%w: no prompt is pending", ErrWrongReply)
	}
	if p.kind == PromptEnded {
		return ErrSessionClosed
	}
	if p.kind != kind {
		return fmt.Errorf("%w: pending %s, got %s reply", ErrWrongReply, p.kind, kind)
	}

	select {
	case p.reply <- r:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}

// Acknowledge resolves a pending narration.
func (s *Session) Acknowledge(ctx context.Context) error {
	return s.deliver(ctx, PromptNarration, reply{})
}

// Choose resolves a pending choice with one of its minted option ids.
func (s *Session) Choose(ctx context.Context, optionID string) error {
	return s.deliver(ctx, PromptChoice, reply{optionID: optionID})
}

// Answer resolves a pending question. The text is validated against the
// prompt's validator before it is delivered.
func (s *Session) Answer(ctx context.Context, text string) error {
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()
	if p != nil && p.kind == PromptQuestion && p.question.Validate != nil {
		validated, err := p.question.Validate(text)
		if err != nil {
			return fmt.Errorf("invalid answer: %w", err)
		}
		text = validated
	}
	return s.deliver(ctx, PromptQuestion, reply{text: text})
}

// Script returns a copy of the game's ledger.
func (s *Session) Script() engine.Script {
	return s.game.Script()
}

// Snapshot returns the game's encoded status.
func (s *Session) Snapshot() ([]byte, error) {
	return s.game.Snapshot()
}

// park sends a prompt to the tool side and waits for its reply.
func (s *Session) park(ctx context.Context, p *prompt) (reply, error) {
	p.reply = make(chan reply)
	select {
	case s.prompts <- p:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-p.reply:
		return r, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// sessionHandler adapts the session to the engine handler protocol. The
// engine calls it from the run goroutine; ctx is the session context, so
// closing the session releases any parked callback.
type sessionHandler struct {
	session *Session
	ctx     context.Context
}

func (h sessionHandler) AcknowledgeNarration(ctx context.Context, n engine.Narration) (engine.Ack, error) {
	_, err := h.session.park(ctx, &prompt{kind: PromptNarration, narration: n})
	if err != nil {
		return engine.Ack{}, err
	}
	return engine.Ack{Action: engine.ActionAdvance}, nil
}

func (h sessionHandler) MakeChoice(ctx context.Context, c engine.ChoicePrompt) (engine.ChoiceReply, error) {
	r, err := h.session.park(ctx, &prompt{kind: PromptChoice, choice: c})
	if err != nil {
		return engine.ChoiceReply{}, err
	}
	return engine.ChoiceReply{Action: engine.ActionAdvance, OptionID: r.optionID}, nil
}

func (h sessionHandler) AnswerRequest(ctx context.Context, q engine.TextPrompt) (engine.AnswerReply, error) {
	r, err := h.session.park(ctx, &prompt{kind: PromptQuestion, question: q})
	if err != nil {
		return engine.AnswerReply{}, err
	}
	return engine.AnswerReply{Action: engine.ActionAdvance, Text: r.text}, nil
}

func (h sessionHandler) HandleEvent(e engine.Event) {
	if e.Kind == engine.EventErrorProduced {
		log.Printf("story error: %v", e.Err)
		return
	}
	if len(e.Status) == 0 || h.session.saves == nil {
		return
	}
	err := h.session.saves.PutSave(h.ctx, storage.SaveRecord{
		Story:     h.session.story,
		Slot:      h.session.slot,
		Status:    e.Status,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("autosave failed: story=%s slot=%s err=%v", h.session.story, h.session.slot, err)
	}
}
