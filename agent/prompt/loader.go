package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

var (
	//go:embed template/concierge.txt
	conciergeRaw string

	//go:embed template/apology.txt
	apologyRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	// System is sent with every model call.
	System string
	// Apology replaces an empty reply when a conversation ends degraded.
	Apology string
}

// LoadPromptSet returns the embedded prompts, trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:  strings.TrimSpace(conciergeRaw),
		Apology: strings.TrimSpace(apologyRaw),
	}
}

func (p PromptSet) Validate() error {
	if strings.TrimSpace(p.System) == "" {
		return fmt.Errorf("%w: system prompt", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(p.Apology) == "" {
		return fmt.Errorf("%w: apology line", contractx.ErrPromptMissing)
	}
	return nil
}
