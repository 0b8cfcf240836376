package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

type converseRunner = compose.Runnable[[]*schema.Message, *schema.Message]

// EinoConverser drives any eino tool-calling chat model. One compiled graph
// is kept per distinct tool catalog.
type EinoConverser struct {
	model    einomodel.ToolCallingChatModel
	provider string

	mu      sync.Mutex
	runners map[string]converseRunner
}

func NewEinoConverser(m einomodel.ToolCallingChatModel, provider string) *EinoConverser {
	return &EinoConverser{
		model:    m,
		provider: provider,
		runners:  make(map[string]converseRunner),
	}
}

func (e *EinoConverser) Converse(ctx context.Context, req contractx.ConverseRequest) (contractx.ConverseResponse, error) {
	runner, err := e.runner(ctx, req.Tools)
	if err != nil {
		return contractx.ConverseResponse{}, err
	}

	start := time.Now()
	msg, err := runner.Invoke(ctx, toEinoMessages(req.System, req.Turns))
	observe(e.provider, start, err)
	if err != nil {
		return contractx.ConverseResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.ConverseResponse{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	return fromEinoMessage(msg), nil
}

func (e *EinoConverser) runner(ctx context.Context, tools []contractx.ToolDefinition) (converseRunner, error) {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	key := strings.Join(names, ",")

	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.runners[key]; ok {
		return r, nil
	}

	chatModel := e.model
	if len(tools) > 0 {
		bound, err := e.model.WithTools(toEinoTools(tools))
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		chatModel = bound
	}

	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add converse model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add converse edge start->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add converse edge model->end: %w", err)
	}
	r, err := graph.Compile(ctx, compose.WithGraphName("llm.converse"))
	if err != nil {
		return nil, fmt.Errorf("compile converse graph: %w", err)
	}
	e.runners[key] = r
	return r, nil
}

func toEinoTools(defs []contractx.ToolDefinition) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(defs))
	for _, d := range defs {
		params := make(map[string]*schema.ParameterInfo, len(d.Params))
		for _, p := range d.Params {
			info := &schema.ParameterInfo{Type: einoType(p.Type), Desc: p.Desc, Required: p.Required}
			if p.Type == contractx.ParamArray {
				item := p.ItemType
				if item == "" {
					item = contractx.ParamString
				}
				info.ElemInfo = &schema.ParameterInfo{Type: einoType(item)}
			}
			params[p.Name] = info
		}
		out = append(out, &schema.ToolInfo{
			Name:        d.Name,
			Desc:        d.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return out
}

func einoType(t contractx.ParamType) schema.DataType {
	switch t {
	case contractx.ParamInteger:
		return schema.Integer
	case contractx.ParamNumber:
		return schema.Number
	case contractx.ParamBoolean:
		return schema.Boolean
	case contractx.ParamArray:
		return schema.Array
	default:
		return schema.String
	}
}

func toEinoMessages(system string, turns []contractx.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns)+1)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	for _, t := range turns {
		switch t.Role {
		case contractx.RoleAssistant:
			var calls []schema.ToolCall
			for _, b := range t.Content {
				if b.Type != contractx.BlockToolUse {
					continue
				}
				calls = append(calls, schema.ToolCall{
					ID:       b.ID,
					Type:     "function",
					Function: schema.FunctionCall{Name: b.Name, Arguments: string(b.Input)},
				})
			}
			msgs = append(msgs, schema.AssistantMessage(t.Text(), calls))
		default:
			// Tool results answer the preceding assistant message, so they go first.
			for _, b := range t.Content {
				if b.Type == contractx.BlockToolResult {
					msgs = append(msgs, schema.ToolMessage(b.Content, b.ToolUseID))
				}
			}
			if text := t.Text(); text != "" {
				msgs = append(msgs, schema.UserMessage(text))
			}
		}
	}
	return msgs
}

func fromEinoMessage(msg *schema.Message) contractx.ConverseResponse {
	var out contractx.ConverseResponse
	if strings.TrimSpace(msg.Content) != "" {
		out.Blocks = append(out.Blocks, contractx.TextBlock(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		out.Blocks = append(out.Blocks, contractx.ToolUseBlock(contractx.ToolInvocation{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: rawArguments(call.Function.Arguments),
		}))
	}

	switch {
	case msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason != "":
		out.StopReason = mapStopReason(msg.ResponseMeta.FinishReason)
	case len(msg.ToolCalls) > 0:
		out.StopReason = contractx.StopToolUse
	default:
		out.StopReason = contractx.StopEndTurn
	}
	return out
}

// rawArguments keeps malformed argument text as a JSON string so the
// registry rejects it as invalid input instead of breaking the turn.
func rawArguments(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" {
		return nil
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}
