package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of a turn. Which fields are set depends on Type.
type ContentBlock struct {
	Type BlockType `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

func ToolUseBlock(inv ToolInvocation) ContentBlock {
	input := inv.Input
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage(`{}`)
	}
	return ContentBlock{Type: BlockToolUse, ID: inv.ID, Name: inv.Name, Input: input}
}

func ToolResultBlock(res ToolResult) ContentBlock {
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: res.ToolUseID,
		Content:   res.Content,
		IsError:   res.IsError,
	}
}

// Turn is one role-tagged message. On the wire Content may be a plain string.
type Turn struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

func UserText(text string) Turn {
	return Turn{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Role = raw.Role
	t.Content = nil

	content := bytes.TrimSpace(raw.Content)
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		return nil
	}
	if content[0] == '"' {
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			return err
		}
		t.Content = []ContentBlock{TextBlock(text)}
		return nil
	}
	return json.Unmarshal(content, &t.Content)
}

// Text joins the text blocks of the turn.
func (t Turn) Text() string {
	parts := make([]string, 0, len(t.Content))
	for _, b := range t.Content {
		if b.Type == BlockText && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (t Turn) Validate() error {
	switch t.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("%w: unknown turn role %q", ErrValidation, t.Role)
	}
	for _, b := range t.Content {
		switch b.Type {
		case BlockText:
		case BlockToolUse:
			if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.Name) == "" {
				return fmt.Errorf("%w: tool_use block requires id and name", ErrValidation)
			}
		case BlockToolResult:
			if strings.TrimSpace(b.ToolUseID) == "" {
				return fmt.Errorf("%w: tool_result block requires tool_use_id", ErrValidation)
			}
		default:
			return fmt.Errorf("%w: unknown content block type %q", ErrValidation, b.Type)
		}
	}
	return nil
}

type ToolInvocation struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolInvocations extracts tool_use blocks in order.
func ToolInvocations(blocks []ContentBlock) []ToolInvocation {
	var out []ToolInvocation
	for _, b := range blocks {
		if b.Type != BlockToolUse {
			continue
		}
		out = append(out, ToolInvocation{ID: b.ID, Name: b.Name, Input: b.Input})
	}
	return out
}

type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Tool      string `json:"tool"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`

	// Value is the handler output before serialization; nil on error.
	Value any   `json:"-"`
	Err   error `json:"-"`
}

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
)

type ParamSpec struct {
	Name     string
	Type     ParamType
	ItemType ParamType
	Desc     string
	Required bool
	Default  any
}

type ToolDefinition struct {
	Name   string
	Desc   string
	Params []ParamSpec
}

// JSONSchema renders the parameter list as a JSON-schema object.
func (d ToolDefinition) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Desc != "" {
			prop["description"] = p.Desc
		}
		if p.Type == ParamArray {
			itemType := p.ItemType
			if itemType == "" {
				itemType = ParamString
			}
			prop["items"] = map[string]any{"type": string(itemType)}
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToolParams is the tagged union of per-tool parameter structs.
type ToolParams interface {
	ToolName() string
}

type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopSequence     StopReason = "stop_sequence"
	StopUnclassified StopReason = "unknown"
)

type ConverseRequest struct {
	System string
	Tools  []ToolDefinition
	Turns  []Turn
}

type ConverseResponse struct {
	StopReason StopReason
	Blocks     []ContentBlock
}

type SharedRecord struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type ShareConfirmation struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    SharePayload `json:"data"`
}

// SharePayload mirrors the share fields under the names the model uses.
type SharePayload struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Nombre string `json:"nombre"`
}

func (s ShareConfirmation) Record() SharedRecord {
	return SharedRecord{ID: s.Data.ID, Slug: s.Data.Slug, Name: s.Data.Nombre}
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	History        []Turn `json:"history,omitempty"`
}

type Completion string

const (
	CompletionEndTurn           Completion = "end_turn"
	CompletionNoToolCalls       Completion = "no_tool_calls"
	CompletionIterationLimit    Completion = "iteration_limit"
	CompletionFallbackExhausted Completion = "fallback_exhausted"
)

type ChatResponse struct {
	ConversationID string        `json:"conversation_id"`
	Message        string        `json:"message"`
	SharedRecord   *SharedRecord `json:"shared_record"`
	Iterations     int           `json:"iterations"`
	Degraded       bool          `json:"degraded"`
	Completion     Completion    `json:"completion"`
}
