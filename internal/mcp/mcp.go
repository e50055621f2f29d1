// Package mcp exposes the HR tool registry over the Model Context
// Protocol, so MCP-compatible agents can call the same tools the chat
// adapter advertises to the language model.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/peopleos/jinji/internal/rag"
	"github.com/peopleos/jinji/internal/tools"
)

// Answerer produces a grounded answer from a tenant's documents.
type Answerer interface {
	Answer(ctx context.Context, tenantID uuid.UUID, question string, limit int) (rag.Answer, error)
}

// Server wraps the MCP server around the tool registry and the retrieval
// orchestrator.
type Server struct {
	mcpServer *mcpserver.MCPServer
	registry  *tools.Registry
	answerer  Answerer
	logger    *slog.Logger
}

// New creates an MCP server exposing every registry tool plus the
// document question-answering tool. answerer may be nil when retrieval is
// not configured.
func New(registry *tools.Registry, answerer Answerer, version string, logger *slog.Logger) *Server {
	s := &Server{
		registry: registry,
		answerer: answerer,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"jinji",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerRegistryTools()
	if answerer != nil {
		s.registerAskTool()
	}

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// registerRegistryTools mirrors the registry's tool definitions onto the
// MCP server. The registry already owns the JSON schemas, so they are
// attached raw rather than rebuilt through the option helpers.
func (s *Server) registerRegistryTools() {
	for _, def := range s.registry.Tools() {
		schema, err := json.Marshal(def.Parameters)
		if err != nil {
			s.logger.Error("mcp: marshal tool schema", "tool", def.Name, "error", err)
			continue
		}

		name := def.Name
		s.mcpServer.AddTool(
			mcplib.NewToolWithRawSchema(name, def.Description, schema),
			func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
				result, ok := s.registry.Dispatch(ctx, name, request.GetArguments())
				if !ok {
					return errorResult(fmt.Sprintf("unknown tool: %s", name)), nil
				}

				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return errorResult(fmt.Sprintf("marshal result: %v", err)), nil
				}
				if _, failed := result["error"]; failed {
					return errorResult(string(data)), nil
				}
				return textResult(string(data)), nil
			},
		)
	}
}

func (s *Server) registerAskTool() {
	s.mcpServer.AddTool(
		mcplib.NewTool("ask_documents",
			mcplib.WithDescription("Answer a question from the tenant's ingested HR documents"),
			mcplib.WithString("tenant_id", mcplib.Description("Tenant ID"), mcplib.Required()),
			mcplib.WithString("question", mcplib.Description("Natural language question"), mcplib.Required()),
			mcplib.WithNumber("limit", mcplib.Description("Maximum document sections to retrieve")),
		),
		s.handleAsk,
	)
}

func (s *Server) handleAsk(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tenantID, err := uuid.Parse(request.GetString("tenant_id", ""))
	if err != nil {
		return errorResult("invalid tenant_id"), nil
	}
	question := request.GetString("question", "")
	if question == "" {
		return errorResult("question is required"), nil
	}
	limit := request.GetInt("limit", 0)

	answer, err := s.answerer.Answer(ctx, tenantID, question, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("answer failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(answer, "", "  ")
	return textResult(string(data)), nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
