package state

import (
	"slices"
	"strings"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

// Conversation is the per-request loop state. It is a value: every step
// returns an updated copy and never mutates the receiver's slices.
type Conversation struct {
	Turns     []contractx.Turn
	Iteration int

	replies []string
	Shared  *contractx.SharedRecord

	// FallbackCount counts searching iterations since the last category exploration.
	FallbackCount int
	// GraceUsed is set once the fallback threshold has granted its extra iteration.
	GraceUsed bool

	Done       bool
	Completion contractx.Completion
}

// New seeds a conversation with prior history and the new user message.
func New(history []contractx.Turn, message string) Conversation {
	turns := make([]contractx.Turn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, contractx.UserText(message))
	return Conversation{Turns: turns}
}

func (c Conversation) NextIteration() Conversation {
	c.Iteration++
	return c
}

func (c Conversation) WithTurn(t contractx.Turn) Conversation {
	c.Turns = append(slices.Clip(c.Turns), t)
	return c
}

// AppendReply adds the text blocks of a model response to the reply.
func (c Conversation) AppendReply(blocks []contractx.ContentBlock) Conversation {
	added := false
	for _, b := range blocks {
		if b.Type != contractx.BlockText {
			continue
		}
		if text := strings.TrimSpace(b.Text); text != "" {
			if !added {
				c.replies = slices.Clip(c.replies)
				added = true
			}
			c.replies = append(c.replies, text)
		}
	}
	return c
}

// WithShared records a share. The last one wins.
func (c Conversation) WithShared(rec contractx.SharedRecord) Conversation {
	c.Shared = &rec
	return c
}

func (c Conversation) Finish(completion contractx.Completion) Conversation {
	c.Done = true
	c.Completion = completion
	return c
}

// Reply joins the collected text segments with a blank line.
func (c Conversation) Reply() string {
	return strings.Join(c.replies, "\n\n")
}

func (c Conversation) Degraded() bool {
	return c.Completion == contractx.CompletionIterationLimit || c.Completion == contractx.CompletionFallbackExhausted
}
