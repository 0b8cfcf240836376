package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

// OpenAIConverser talks to any Chat Completions compatible endpoint through the official SDK.
type OpenAIConverser struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature *float64
}

type OpenAIOption func(*OpenAIConverser)

func WithMaxTokens(n int) OpenAIOption {
	return func(o *OpenAIConverser) {
		o.maxTokens = n
	}
}

func WithTemperature(t float32) OpenAIOption {
	return func(o *OpenAIConverser) {
		v := float64(t)
		o.temperature = &v
	}
}

func NewOpenAIConverser(client *openai.Client, model string, opts ...OpenAIOption) *OpenAIConverser {
	o := &OpenAIConverser{client: client, model: strings.TrimSpace(model)}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *OpenAIConverser) Converse(ctx context.Context, req contractx.ConverseRequest) (contractx.ConverseResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(req.System, req.Turns),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}
	if o.temperature != nil {
		params.Temperature = openai.Float(*o.temperature)
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	observe(ProviderOpenAI, start, err)
	if err != nil {
		return contractx.ConverseResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.ConverseResponse{}, fmt.Errorf("%w: response has no choices", contractx.ErrSchemaViolation)
	}

	choice := resp.Choices[0]
	var out contractx.ConverseResponse
	if strings.TrimSpace(choice.Message.Content) != "" {
		out.Blocks = append(out.Blocks, contractx.TextBlock(choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		out.Blocks = append(out.Blocks, contractx.ToolUseBlock(contractx.ToolInvocation{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: rawArguments(call.Function.Arguments),
		}))
	}
	out.StopReason = mapStopReason(choice.FinishReason)
	if out.StopReason == contractx.StopUnclassified && len(choice.Message.ToolCalls) > 0 {
		out.StopReason = contractx.StopToolUse
	}
	return out, nil
}

func toOpenAIMessages(system string, turns []contractx.Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	for _, t := range turns {
		switch t.Role {
		case contractx.RoleAssistant:
			var asst openai.ChatCompletionAssistantMessageParam
			if text := t.Text(); text != "" {
				asst.Content.OfString = openai.String(text)
			}
			for _, b := range t.Content {
				if b.Type != contractx.BlockToolUse {
					continue
				}
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: b.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      b.Name,
						Arguments: string(b.Input),
					},
				})
			}
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		default:
			for _, b := range t.Content {
				if b.Type == contractx.BlockToolResult {
					msgs = append(msgs, openai.ToolMessage(b.Content, b.ToolUseID))
				}
			}
			if text := t.Text(); text != "" {
				msgs = append(msgs, openai.UserMessage(text))
			}
		}
	}
	return msgs
}

func toOpenAITools(defs []contractx.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Desc),
				Parameters:  openai.FunctionParameters(d.JSONSchema()),
			},
		})
	}
	return out
}
