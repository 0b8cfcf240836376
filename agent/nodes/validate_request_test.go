package orchestratornode

import (
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func fixedID() string { return "conv-1" }

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	t.Run("trims message and assigns id", func(t *testing.T) {
		t.Parallel()

		st, err := ValidateRequest(contractx.ChatRequest{Message: "  pizza  "}, fixedNow, fixedID)
		if err != nil {
			t.Fatalf("ValidateRequest() error = %v", err)
		}
		if st.Message != "pizza" || st.ConversationID != "conv-1" || !st.Now.Equal(fixedNow()) {
			t.Fatalf("unexpected state: %+v", st)
		}
	})

	t.Run("keeps caller conversation id", func(t *testing.T) {
		t.Parallel()

		st, err := ValidateRequest(contractx.ChatRequest{ConversationID: "abc", Message: "hola"}, fixedNow, fixedID)
		if err != nil {
			t.Fatalf("ValidateRequest() error = %v", err)
		}
		if st.ConversationID != "abc" {
			t.Fatalf("conversation id = %s", st.ConversationID)
		}
	})

	rejects := map[string]contractx.ChatRequest{
		"blank message": {Message: " \n\t "},
		"bad role":      {Message: "hola", History: []contractx.Turn{{Role: "system"}}},
		"orphan tool result": {Message: "hola", History: []contractx.Turn{{
			Role:    contractx.RoleUser,
			Content: []contractx.ContentBlock{{Type: contractx.BlockToolResult}},
		}}},
		"history too long": {Message: "hola", History: make([]contractx.Turn, maxHistoryTurns+1)},
	}
	for name, req := range rejects {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := ValidateRequest(req, fixedNow, fixedID); !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSeedConversationAppendsUserTurn(t *testing.T) {
	t.Parallel()

	history := []contractx.Turn{contractx.UserText("hola"), {Role: contractx.RoleAssistant, Content: []contractx.ContentBlock{contractx.TextBlock("¿En qué te ayudo?")}}}
	st, err := SeedConversation(&GraphState{Message: "flores", History: history})
	if err != nil {
		t.Fatalf("SeedConversation() error = %v", err)
	}
	turns := st.Conversation.Turns
	if len(turns) != 3 || turns[2].Text() != "flores" || turns[2].Role != contractx.RoleUser {
		t.Fatalf("turns = %+v", turns)
	}
}

func TestFinalizeReply(t *testing.T) {
	t.Parallel()

	conv := statex.New(nil, "hola").
		NextIteration().
		AppendReply([]contractx.ContentBlock{contractx.TextBlock("Encontré esto."), contractx.TextBlock("  ")}).
		WithShared(contractx.SharedRecord{ID: "1", Slug: "moments", Name: "Moment's Events"}).
		Finish(contractx.CompletionIterationLimit)

	out, err := FinalizeReply(&GraphState{ConversationID: "c", Conversation: conv}, "Lo siento")
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if out.Message != "Encontré esto." || !out.Degraded || out.Iterations != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.SharedRecord == nil || out.SharedRecord.Slug != "moments" {
		t.Fatalf("shared record = %+v", out.SharedRecord)
	}

	empty, err := FinalizeReply(&GraphState{Conversation: statex.New(nil, "hola").Finish(contractx.CompletionEndTurn)}, "Lo siento")
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if !strings.HasPrefix(empty.Message, "Lo siento") || empty.Degraded || empty.SharedRecord != nil {
		t.Fatalf("empty reply not replaced: %+v", empty)
	}
}
