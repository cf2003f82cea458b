package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/22yuto/devbot/internal/chat"
)

// Responder answers one user query. Satisfied by *chat.Service.
type Responder interface {
	Respond(ctx context.Context, userQuery string) *chat.Response
}

// Server wraps the MCP server with its dependencies.
type Server struct {
	server    *mcp.Server
	responder Responder
}

// NewServer creates a configured MCP server with the ask_notion tool
// registered.
func NewServer(responder Responder) *Server {
	impl := &mcp.Implementation{
		Name:    "devbot-notion-qa",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_notion",
		Description: "Answer a question from the Notion workspace. Uses cached content " +
			"when a similar question was answered before, otherwise searches the workspace live.",
	}, makeAskHandler(responder))

	return &Server{
		server:    server,
		responder: responder,
	}
}

// makeAskHandler creates the ask_notion tool handler. The pipeline never
// fails the tool call: unanswerable questions come back as a structured
// "no information" answer.
func makeAskHandler(responder Responder) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		response := responder.Respond(ctx, input.Question)

		return nil, AskOutput{
			Answer:     response.Message,
			Source:     response.Source,
			URL:        response.URL,
			Similarity: response.Similarity,
		}, nil
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
