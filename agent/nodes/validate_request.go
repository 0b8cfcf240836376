package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

const maxHistoryTurns = 50

type GraphState struct {
	ConversationID string
	Message        string
	History        []contractx.Turn
	Now            time.Time

	Conversation statex.Conversation
}

func ValidateRequest(in contractx.ChatRequest, nowFn func() time.Time, newID func() string) (*GraphState, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}
	if len(in.History) > maxHistoryTurns {
		return nil, fmt.Errorf("%w: history exceeds %d turns", contractx.ErrValidation, maxHistoryTurns)
	}
	for i, turn := range in.History {
		if err := turn.Validate(); err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
	}

	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		conversationID = newID()
	}

	return &GraphState{
		ConversationID: conversationID,
		Message:        message,
		History:        in.History,
		Now:            nowFn().UTC(),
	}, nil
}
