package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "storyweft"
	serverVersion = "0.1.0"
)

// Server exposes one play session over the MCP protocol.
type Server struct {
	mcpServer *mcp.Server
	session   *Session
}

// NewServer binds the story tools to a session.
func NewServer(session *Session) (*Server, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(mcpServer, PromptTool(), PromptHandler(session))
	mcp.AddTool(mcpServer, AckTool(), AckHandler(session))
	mcp.AddTool(mcpServer, ChooseTool(), ChooseHandler(session))
	mcp.AddTool(mcpServer, AnswerTool(), AnswerHandler(session))
	mcp.AddTool(mcpServer, TranscriptTool(), TranscriptHandler(session))
	mcp.AddTool(mcpServer, SaveTool(), SaveHandler(session))

	return &Server{mcpServer: mcpServer, session: session}, nil
}

// Serve runs the server on stdio and blocks until it stops or the
// context ends. Context cancellation is a clean shutdown, not an error.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
