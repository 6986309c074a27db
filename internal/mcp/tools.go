package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MessageResult is one narrated message as shown to the player.
type MessageResult struct {
	ID   string `json:"id,omitempty" jsonschema:"message identifier, when the author gave it one"`
	Text string `json:"text" jsonschema:"narrated text"`
}

// OptionResult is one selectable option of a pending choice.
type OptionResult struct {
	ID   string `json:"id" jsonschema:"option identifier, valid only for this prompt"`
	Text string `json:"text" jsonschema:"player-facing option text"`
}

// PromptResult describes what the story is waiting on. Every reply tool
// returns the next prompt, so a client can drive a whole story without
// polling story_prompt between replies.
type PromptResult struct {
	Kind     string          `json:"kind" jsonschema:"narration, choice, question, or ended"`
	Messages []MessageResult `json:"messages,omitempty" jsonschema:"narrated messages awaiting acknowledgement"`
	Options  []OptionResult  `json:"options,omitempty" jsonschema:"options of a pending choice"`
	Question string          `json:"question,omitempty" jsonschema:"text of a pending question"`
	Error    string          `json:"error,omitempty" jsonschema:"failure that ended the story, if any"`
}

// PromptInput has no fields; the pending prompt is session state.
type PromptInput struct{}

// AckInput acknowledges the pending narration.
type AckInput struct{}

// ChooseInput selects an option of the pending choice.
type ChooseInput struct {
	OptionID string `json:"option_id" jsonschema:"option identifier from the pending choice prompt"`
}

// AnswerInput answers the pending question.
type AnswerInput struct {
	Text string `json:"text" jsonschema:"free-form answer text"`
}

// TranscriptInput requests the story transcript so far.
type TranscriptInput struct{}

// TranscriptResult is the ledger's player-visible half.
type TranscriptResult struct {
	Words    []string       `json:"words" jsonschema:"every narrated text and answer, in order"`
	Narrated map[string]int `json:"narrated" jsonschema:"narration count per message identifier"`
	Observed map[string]int `json:"observed" jsonschema:"visit count per observed tag"`
}

// SaveInput requests the current encoded status.
type SaveInput struct{}

// SaveResult carries the encoded status blob.
type SaveResult struct {
	Status string `json:"status" jsonschema:"encoded status, sufficient to resume the story"`
}

// PromptTool defines the MCP tool schema for reading the pending prompt.
func PromptTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_prompt",
		Description: "Returns what the story is waiting on: a narration to acknowledge, a choice to make, or a question to answer.",
	}
}

// AckTool defines the MCP tool schema for acknowledging a narration.
func AckTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_ack",
		Description: "Acknowledges the pending narration and returns the next prompt.",
	}
}

// ChooseTool defines the MCP tool schema for making a choice.
func ChooseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_choose",
		Description: "Selects an option of the pending choice by its id and returns the next prompt.",
	}
}

// AnswerTool defines the MCP tool schema for answering a question.
func AnswerTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_answer",
		Description: "Answers the pending question and returns the next prompt.",
	}
}

// TranscriptTool defines the MCP tool schema for reading the transcript.
func TranscriptTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_transcript",
		Description: "Returns the transcript so far: narrated words, narration counts, and observed tag counts.",
	}
}

// SaveTool defines the MCP tool schema for exporting the status.
func SaveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "story_save",
		Description: "Returns the encoded status of the running story, sufficient to resume it later.",
	}
}

func promptResult(p *prompt) PromptResult {
	result := PromptResult{Kind: string(p.kind)}
	switch p.kind {
	case PromptNarration:
		for _, m := range p.narration.Messages {
			result.Messages = append(result.Messages, MessageResult{ID: m.ID, Text: m.Text})
		}
	case PromptChoice:
		for _, opt := range p.choice.Options {
			result.Options = append(result.Options, OptionResult{ID: opt.ID, Text: opt.Message.Text})
		}
	case PromptQuestion:
		if p.question.Message != nil {
			result.Question = p.question.Message.Text
		}
	case PromptEnded:
		if p.err != nil {
			result.Error = p.err.Error()
		}
	}
	return result
}

func nextPrompt(ctx context.Context, session *Session) (PromptResult, error) {
	p, err := session.Pending(ctx)
	if err != nil {
		return PromptResult{}, fmt.Errorf("await prompt: %w", err)
	}
	return promptResult(p), nil
}

// PromptHandler returns the pending prompt, waiting for the run loop to
// park one when none is pending yet.
func PromptHandler(session *Session) mcp.ToolHandlerFor[PromptInput, PromptResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ PromptInput) (*mcp.CallToolResult, PromptResult, error) {
		result, err := nextPrompt(ctx, session)
		return nil, result, err
	}
}

// AckHandler acknowledges a pending narration.
func AckHandler(session *Session) mcp.ToolHandlerFor[AckInput, PromptResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ AckInput) (*mcp.CallToolResult, PromptResult, error) {
		if err := session.Acknowledge(ctx); err != nil {
			return nil, PromptResult{}, err
		}
		result, err := nextPrompt(ctx, session)
		return nil, result, err
	}
}

// ChooseHandler selects an option of a pending choice.
func ChooseHandler(session *Session) mcp.ToolHandlerFor[ChooseInput, PromptResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ChooseInput) (*mcp.CallToolResult, PromptResult, error) {
		if err := session.Choose(ctx, input.OptionID); err != nil {
			return nil, PromptResult{}, err
		}
		result, err := nextPrompt(ctx, session)
		return nil, result, err
	}
}

// AnswerHandler answers a pending question.
func AnswerHandler(session *Session) mcp.ToolHandlerFor[AnswerInput, PromptResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AnswerInput) (*mcp.CallToolResult, PromptResult, error) {
		if err := session.Answer(ctx, input.Text); err != nil {
			return nil, PromptResult{}, err
		}
		result, err := nextPrompt(ctx, session)
		return nil, result, err
	}
}

// TranscriptHandler returns the ledger contents.
func TranscriptHandler(session *Session) mcp.ToolHandlerFor[TranscriptInput, TranscriptResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ TranscriptInput) (*mcp.CallToolResult, TranscriptResult, error) {
		script := session.Script()
		return nil, TranscriptResult{
			Words:    script.Words,
			Narrated: script.Narrated,
			Observed: script.Observed,
		}, nil
	}
}

// SaveHandler exports the current encoded status.
func SaveHandler(session *Session) mcp.ToolHandlerFor[SaveInput, SaveResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ SaveInput) (*mcp.CallToolResult, SaveResult, error) {
		encoded, err := session.Snapshot()
		if err != nil {
			return nil, SaveResult{}, fmt.Errorf("encode status: %w", err)
		}
		return nil, SaveResult{Status: string(encoded)}, nil
	}
}
