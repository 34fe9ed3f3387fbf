package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/ratelimit"
	"github.com/taskrelay-io/taskrelay/internal/tools"
)

// NewMCPServer creates an MCP server exposing the registry's tools. Every
// call runs as the given actor; the limiter throttles per actor across all
// tools.
func NewMCPServer(registry *tools.Registry, actor auth.Actor, limiter *ratelimit.Limiter) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "taskrelay",
		Version: "0.1.0",
	}, nil)

	for _, name := range registry.Names() {
		spec := registry.Spec(name)
		if spec == nil {
			continue
		}

		mcpTool := toolSpecToMCPTool(spec)

		// Capture tool in closure
		invokable := registry.Tool(name)
		toolName := name

		server.AddTool(mcpTool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			if limiter != nil && !limiter.Allow(actor.ID) {
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "rate limit exceeded, slow down"}},
				}, nil
			}

			ctx = auth.WithActor(ctx, actor)
			args := string(req.Params.Arguments)
			result, err := invokable.InvokableRun(ctx, args)
			if err != nil {
				slog.Debug("mcp tool error", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", name)
	}

	return server
}
