package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

func SeedConversation(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Conversation = statex.New(in.History, in.Message)
	return in, nil
}
