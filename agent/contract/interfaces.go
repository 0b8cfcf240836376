package contract

import "context"

// Converser is the remote model service: one call per orchestrator iteration.
type Converser interface {
	Converse(ctx context.Context, req ConverseRequest) (ConverseResponse, error)
}

type ToolGateway interface {
	Catalog() []ToolDefinition
	ExecuteAll(ctx context.Context, invs []ToolInvocation) []ToolResult
	Kind(name string) ToolKind
}

type ShareNotifier interface {
	NotifyShared(ctx context.Context, conversationID string, rec SharedRecord) error
}

// ToolKind classifies catalog entries for the orchestrator's fallback policy.
type ToolKind int

const (
	ToolKindOther ToolKind = iota
	ToolKindSearch
	ToolKindExplore
	ToolKindShare
)
