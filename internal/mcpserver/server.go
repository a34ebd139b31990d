// Package mcpserver exposes the classifier as an MCP tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/intent"
)

// ToolName is the name of the classification tool.
const ToolName = "classify_intent"

// ClassifyParams are the arguments of the classification tool.
type ClassifyParams struct {
	Input string `json:"input"`
}

// Server wraps an MCP server with the classification tool registered.
type Server struct {
	mcp    *mcp.Server
	agent  agent.Agent
	logger *slog.Logger
}

// New returns a Server that classifies with a.
func New(a agent.Agent, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		mcp:    mcp.NewServer(&mcp.Implementation{Name: "relay", Version: version}, nil),
		agent:  a,
		logger: logger,
	}

	s.mcp.AddTool(&mcp.Tool{
		Name:        ToolName,
		Description: "Classifies a natural-language request as send_email, schedule_meeting or no_action and extracts its recipient and message.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{
					"type":        "string",
					"description": "The user's request, verbatim",
				},
			},
			"required": []string{"input"},
		},
	}, s.handleClassify)

	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves over t.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("mcp server starting", "tool", ToolName)
	if err := s.mcp.Run(ctx, t); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

func (s *Server) handleClassify(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ClassifyParams
	if req.Params != nil && len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult(intent.Failure{Error: "invalid request", Kind: "invalid_request", Detail: err.Error()}), nil
		}
	}

	res, err := s.agent.Process(ctx, params.Input)
	if err != nil {
		s.logger.Debug("mcp classification failed", "kind", intent.KindOf(err), "error", err)
		return errorResult(intent.Describe(err)), nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(f intent.Failure) *mcp.CallToolResult {
	data, _ := json.Marshal(f)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
