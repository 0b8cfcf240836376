package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

func FinalizeReply(in *GraphState, apology string) (contractx.ChatResponse, error) {
	if in == nil {
		return contractx.ChatResponse{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv := in.Conversation
	reply := strings.TrimSpace(conv.Reply())
	if reply == "" {
		reply = apology
	}

	var shared *contractx.SharedRecord
	if conv.Shared != nil {
		rec := *conv.Shared
		shared = &rec
	}

	return contractx.ChatResponse{
		ConversationID: in.ConversationID,
		Message:        reply,
		SharedRecord:   shared,
		Iterations:     conv.Iteration,
		Degraded:       conv.Degraded(),
		Completion:     conv.Completion,
	}, nil
}
