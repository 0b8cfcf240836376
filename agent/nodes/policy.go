package orchestratornode

import (
	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

// ApplyFallback updates the search-iteration counter for one iteration.
// An iteration with any search-type call counts once, however many searches
// it issued. Exploring categories resets it. Reaching the threshold grants
// one more iteration; still being at or past it afterwards ends the conversation.
func ApplyFallback(conv statex.Conversation, kinds []contractx.ToolKind, threshold int) statex.Conversation {
	if threshold <= 0 {
		return conv
	}

	searched := false
	for _, k := range kinds {
		switch k {
		case contractx.ToolKindExplore:
			conv.FallbackCount = 0
			conv.GraceUsed = false
			return conv
		case contractx.ToolKindSearch:
			searched = true
		}
	}

	if searched {
		conv.FallbackCount++
	}
	if conv.FallbackCount < threshold {
		return conv
	}
	if conv.GraceUsed {
		return conv.Finish(contractx.CompletionFallbackExhausted)
	}
	conv.GraceUsed = true
	return conv
}
