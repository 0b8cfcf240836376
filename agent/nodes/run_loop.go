package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

// Loop carries the collaborators and limits of the tool-calling loop.
type Loop struct {
	Model             contractx.Converser
	Tools             contractx.ToolGateway
	System            string
	MaxIterations     int
	FallbackThreshold int
	ModelTimeout      time.Duration
	Logger            zerolog.Logger
}

// RunLoop alternates model calls and tool dispatch until the model stops,
// the fallback policy gives up, or the iteration budget is spent.
func RunLoop(ctx context.Context, in *GraphState, loop Loop) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	catalog := loop.Tools.Catalog()
	conv := in.Conversation
	for !conv.Done {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("conversation canceled: %w", err)
		}

		conv = conv.NextIteration()
		var (
			resp contractx.ConverseResponse
			err  error
		)
		conv, resp, err = Converse(ctx, conv, loop.Model, loop.System, catalog, loop.ModelTimeout)
		if err != nil {
			return nil, err
		}

		invs := contractx.ToolInvocations(resp.Blocks)
		switch {
		case resp.StopReason == contractx.StopEndTurn:
			conv = conv.Finish(contractx.CompletionEndTurn)
			continue
		case len(invs) == 0:
			conv = conv.Finish(contractx.CompletionNoToolCalls)
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("conversation canceled: %w", err)
		}

		conv = DispatchTools(ctx, conv, loop.Tools, invs)

		kinds := make([]contractx.ToolKind, 0, len(invs))
		for _, inv := range invs {
			kinds = append(kinds, loop.Tools.Kind(inv.Name))
		}
		conv = ApplyFallback(conv, kinds, loop.FallbackThreshold)

		loop.Logger.Debug().
			Str("conversation_id", in.ConversationID).
			Int("iteration", conv.Iteration).
			Int("tool_calls", len(invs)).
			Int("fallback_count", conv.FallbackCount).
			Msg("iteration dispatched")

		if !conv.Done && conv.Iteration >= loop.MaxIterations {
			conv = conv.Finish(contractx.CompletionIterationLimit)
		}
	}

	in.Conversation = conv
	return in, nil
}
