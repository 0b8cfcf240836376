package orchestratornode

import (
	"testing"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	statex "github.com/tanpawarit/Chative-Local-Concierge/agent/state"
)

func TestApplyFallback(t *testing.T) {
	t.Parallel()

	search := contractx.ToolKindSearch
	explore := contractx.ToolKindExplore
	share := contractx.ToolKindShare

	tests := []struct {
		name       string
		iterations [][]contractx.ToolKind
		wantCount  int
		wantGrace  bool
		wantDone   bool
	}{
		{
			name:       "one count per searching iteration",
			iterations: [][]contractx.ToolKind{{search, search}, {search, search}, {search, search}},
			wantCount:  3,
		},
		{
			name:       "threshold grants grace",
			iterations: [][]contractx.ToolKind{{search}, {search, search}, {search}, {search, search, search}},
			wantCount:  4,
			wantGrace:  true,
		},
		{
			name:       "still over threshold after grace",
			iterations: [][]contractx.ToolKind{{search}, {search}, {search}, {search}, {share}},
			wantCount:  4,
			wantGrace:  true,
			wantDone:   true,
		},
		{
			name:       "searching again after grace ends the conversation",
			iterations: [][]contractx.ToolKind{{search}, {search}, {search}, {search}, {search, search}},
			wantCount:  5,
			wantGrace:  true,
			wantDone:   true,
		},
		{
			name:       "explore resets counter and grace",
			iterations: [][]contractx.ToolKind{{search}, {search}, {search}, {search}, {explore, search}},
			wantCount:  0,
		},
		{
			name:       "non-search iterations do not count",
			iterations: [][]contractx.ToolKind{{search}, {share}, {contractx.ToolKindOther}},
			wantCount:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := statex.New(nil, "hola")
			for _, kinds := range tt.iterations {
				conv = ApplyFallback(conv, kinds, 4)
			}
			if conv.FallbackCount != tt.wantCount || conv.GraceUsed != tt.wantGrace || conv.Done != tt.wantDone {
				t.Fatalf("count=%d grace=%v done=%v, want count=%d grace=%v done=%v",
					conv.FallbackCount, conv.GraceUsed, conv.Done, tt.wantCount, tt.wantGrace, tt.wantDone)
			}
			if tt.wantDone && conv.Completion != contractx.CompletionFallbackExhausted {
				t.Fatalf("completion = %s", conv.Completion)
			}
		})
	}
}

func TestApplyFallbackDisabled(t *testing.T) {
	t.Parallel()

	conv := ApplyFallback(statex.New(nil, "hola"), []contractx.ToolKind{contractx.ToolKindSearch}, 0)
	if conv.FallbackCount != 0 || conv.Done {
		t.Fatalf("fallback should be disabled: %+v", conv)
	}
}
