package ranking

import (
	"sort"
	"strings"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
)

const (
	DefaultLimit  = 10
	minKeywordLen = 3
)

type Weights struct {
	Name        int
	Tag         int
	Description int
	Category    int
	Verified    int
	Contact     int
}

var DefaultWeights = Weights{
	Name:        10,
	Tag:         5,
	Description: 2,
	Category:    15,
	Verified:    3,
	Contact:     1,
}

// Query is one ranking request. Filters narrow the candidate set before scoring.
type Query struct {
	Text         string
	City         string
	Tag          string
	VerifiedOnly bool
	FeaturedOnly bool
	Limit        int
	Offset       int
}

type Scored struct {
	Record store.Business
	Score  int
}

type Engine struct {
	weights Weights
}

type Option func(*Engine)

func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Keywords splits on whitespace, lower-cases, drops short and repeated tokens.
func Keywords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minKeywordLen {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Rank scores candidates against q and returns the best ones, highest first.
// Candidates matching no keyword are dropped; the bonuses only lift records that matched.
func (e *Engine) Rank(q Query, candidates []store.Business) []Scored {
	keywords := Keywords(q.Text)
	var catTerms []string
	if c, ok := DetectCategory(q.Text); ok {
		catTerms = Terms(c)
	}
	if len(keywords) == 0 {
		return []Scored{}
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if !q.accepts(c) {
			continue
		}
		if s := e.score(c, keywords, catTerms); s > 0 {
			scored = append(scored, Scored{Record: c, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.Views > scored[j].Record.Views
	})

	if q.Offset > 0 {
		if q.Offset >= len(scored) {
			return []Scored{}
		}
		scored = scored[q.Offset:]
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Score exposes the per-record score; 0 means not relevant.
func (e *Engine) Score(text string, b store.Business) int {
	var catTerms []string
	if c, ok := DetectCategory(text); ok {
		catTerms = Terms(c)
	}
	return e.score(b, Keywords(text), catTerms)
}

func (e *Engine) score(b store.Business, keywords, catTerms []string) int {
	name := strings.ToLower(b.Name)
	desc := strings.ToLower(CleanHTML(b.Description))
	tags := make([]string, 0, len(b.Tags))
	for _, t := range b.Tags {
		tags = append(tags, strings.ToLower(t))
	}

	relevance := 0
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			relevance += e.weights.Name
		}
		for _, tag := range tags {
			if strings.Contains(tag, kw) {
				relevance += e.weights.Tag
			}
		}
		if strings.Contains(desc, kw) {
			relevance += e.weights.Description
		}
	}
	if relevance == 0 {
		return 0
	}

	score := relevance
	if containsAny(name, desc, tags, catTerms) {
		score += e.weights.Category
	}
	if b.Verified {
		score += e.weights.Verified
	}
	for _, channel := range []string{b.Phone, b.WhatsApp, b.Address} {
		if strings.TrimSpace(channel) != "" {
			score += e.weights.Contact
		}
	}
	return score
}

func containsAny(name, desc string, tags, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(name, term) || strings.Contains(desc, term) {
			return true
		}
		for _, tag := range tags {
			if strings.Contains(tag, term) {
				return true
			}
		}
	}
	return false
}

func (q Query) accepts(b store.Business) bool {
	if q.VerifiedOnly && !b.Verified {
		return false
	}
	if q.FeaturedOnly && !b.Featured {
		return false
	}
	if city := strings.ToLower(strings.TrimSpace(q.City)); city != "" {
		if !strings.Contains(strings.ToLower(b.City), city) && !strings.Contains(strings.ToLower(b.Address), city) {
			return false
		}
	}
	if tag := strings.ToLower(strings.TrimSpace(q.Tag)); tag != "" {
		found := false
		for _, t := range b.Tags {
			if strings.Contains(strings.ToLower(t), tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
