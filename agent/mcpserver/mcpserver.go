// Package mcpserver exposes the business tool catalog over the Model Context Protocol.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

const ServerName = "local-concierge"

// New registers every catalog entry as an MCP tool backed by the gateway.
func New(tools contractx.ToolGateway, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	for _, def := range tools.Catalog() {
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Desc,
			InputSchema: def.JSONSchema(),
		}, handler(tools, def.Name))
	}
	return server
}

func handler(tools contractx.ToolGateway, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inv := contractx.ToolInvocation{ID: "mcp_" + uuid.NewString(), Name: name}
		if req != nil && req.Params != nil {
			inv.Input = req.Params.Arguments
		}

		res := tools.ExecuteAll(ctx, []contractx.ToolInvocation{inv})[0]
		if res.IsError {
			log.Debug().Err(res.Err).Str("tool", name).Msg("mcp tool call failed")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Content}},
			IsError: res.IsError,
		}, nil
	}
}

// ServeStdio blocks until the client disconnects or ctx ends.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}
