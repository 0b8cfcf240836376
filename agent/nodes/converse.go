package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

var tracer = otel.Tracer("github.com/tanpawarit/Chative-Local-Concierge/agent/nodes")

// Converse performs one model call and folds its text into the reply.
// Any model failure or timeout is a backend fault for the whole request.
func Converse(
	ctx context.Context,
	conv statex.Conversation,
	model contractx.Converser,
	system string,
	tools []contractx.ToolDefinition,
	timeout time.Duration,
) (statex.Conversation, contractx.ConverseResponse, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.converse")
	span.SetAttributes(attribute.Int("conversation.iteration", conv.Iteration), attribute.Int("conversation.turns", len(conv.Turns)))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := model.Converse(callCtx, contractx.ConverseRequest{
		System: system,
		Tools:  tools,
		Turns:  conv.Turns,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return conv, contractx.ConverseResponse{}, fmt.Errorf("conversation canceled: %w", ctxErr)
		}
		return conv, contractx.ConverseResponse{}, fmt.Errorf("%w: %w", contractx.ErrBackendUnavailable, err)
	}

	span.SetAttributes(attribute.String("model.stop_reason", string(resp.StopReason)))
	conv = conv.AppendReply(resp.Blocks)
	conv = conv.WithTurn(contractx.Turn{Role: contractx.RoleAssistant, Content: resp.Blocks})
	return conv, resp, nil
}
