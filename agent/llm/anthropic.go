package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	anthropicx "github.com/tanpawarit/Chative-Local-Concierge/pkg/anthropic"
)

type AnthropicConverser struct {
	client *anthropicx.Client
}

func NewAnthropicConverser(client *anthropicx.Client) *AnthropicConverser {
	return &AnthropicConverser{client: client}
}

func (a *AnthropicConverser) Converse(ctx context.Context, req contractx.ConverseRequest) (contractx.ConverseResponse, error) {
	params := anthropicsdk.MessageNewParams{
		Messages: toAnthropicMessages(req.Turns),
		Tools:    toAnthropicTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := a.client.CreateMessage(ctx, params)
	observe(ProviderAnthropic, start, err)
	if err != nil {
		return contractx.ConverseResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	out := contractx.ConverseResponse{StopReason: mapStopReason(string(resp.StopReason))}
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			out.Blocks = append(out.Blocks, contractx.TextBlock(b.Text))
		case "tool_use":
			out.Blocks = append(out.Blocks, contractx.ToolUseBlock(contractx.ToolInvocation{ID: b.ID, Name: b.Name, Input: b.Input}))
		}
	}
	return out, nil
}

func toAnthropicMessages(turns []contractx.Turn) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(turns))
	for _, t := range turns {
		blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, len(t.Content))
		for _, b := range t.Content {
			switch b.Type {
			case contractx.BlockText:
				blocks = append(blocks, anthropicsdk.NewTextBlock(b.Text))
			case contractx.BlockToolUse:
				input := b.Input
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropicsdk.NewToolUseBlock(b.ID, input, b.Name))
			case contractx.BlockToolResult:
				blocks = append(blocks, anthropicsdk.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			}
		}
		out = append(out, anthropicsdk.MessageParam{
			Role:    anthropicsdk.MessageParamRole(t.Role),
			Content: blocks,
		})
	}
	return out
}

func toAnthropicTools(defs []contractx.ToolDefinition) []anthropicsdk.ToolUnionParam {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		schema := d.JSONSchema()
		input := anthropicsdk.ToolInputSchemaParam{Properties: schema["properties"]}
		if required, ok := schema["required"].([]string); ok {
			input.Required = required
		}
		out = append(out, anthropicsdk.ToolUnionParam{OfTool: &anthropicsdk.ToolParam{
			Name:        d.Name,
			Description: anthropicsdk.String(d.Desc),
			InputSchema: input,
		}})
	}
	return out
}

func mapStopReason(reason string) contractx.StopReason {
	switch reason {
	case "end_turn", "stop":
		return contractx.StopEndTurn
	case "tool_use", "tool_calls", "function_call":
		return contractx.StopToolUse
	case "max_tokens", "length":
		return contractx.StopMaxTokens
	case "stop_sequence":
		return contractx.StopSequence
	default:
		return contractx.StopUnclassified
	}
}
