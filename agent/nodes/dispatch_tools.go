package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

// DispatchTools runs one iteration's invocations, records a successful
// share and appends the results as a single user turn.
func DispatchTools(
	ctx context.Context,
	conv statex.Conversation,
	tools contractx.ToolGateway,
	invs []contractx.ToolInvocation,
) statex.Conversation {
	results := tools.ExecuteAll(ctx, invs)

	blocks := make([]contractx.ContentBlock, 0, len(results))
	for _, res := range results {
		blocks = append(blocks, contractx.ToolResultBlock(res))
		if res.IsError {
			continue
		}
		if confirmation, ok := res.Value.(contractx.ShareConfirmation); ok && confirmation.Success {
			conv = conv.WithShared(confirmation.Record())
		}
	}
	return conv.WithTurn(contractx.Turn{Role: contractx.RoleUser, Content: blocks})
}
