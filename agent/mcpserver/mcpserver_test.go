package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/tool"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()

	st := store.NewMemory(
		store.Business{ID: "1", Slug: "moments", Name: "Moment's Events", Status: store.StatusActive, Tags: []string{"eventos"}, Views: 10},
	)
	registry, err := tool.NewRegistry(st)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	t.Cleanup(registry.Close)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := New(registry, "test").Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestListTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(res.Tools) != 10 {
		t.Fatalf("expected 10 tools, got %d", len(res.Tools))
	}
}

func TestCallToolReturnsPayload(t *testing.T) {
	session := connect(t)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tool.ToolDetail,
		Arguments: map[string]any{"id": "1"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	var detail map[string]any
	if err := json.Unmarshal([]byte(text.Text), &detail); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if detail["nombre"] != "Moment's Events" || detail["encontrado"] != true {
		t.Fatalf("unexpected detail: %v", detail)
	}
}

func TestCallToolValidationError(t *testing.T) {
	session := connect(t)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tool.ToolDetail,
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error, got %+v", res)
	}
}
