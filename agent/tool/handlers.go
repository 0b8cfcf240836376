package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/ranking"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
)

type handlers struct {
	store  store.RecordStore
	ranker *ranking.Engine
}

var textFields = []store.Field{store.FieldName, store.FieldDescription, store.FieldTags}

func (h *handlers) smartSearch(ctx context.Context, p SmartSearchParams) (any, int, error) {
	terms := nonEmpty(p.Terms)
	if len(terms) == 0 {
		return nil, 0, fmt.Errorf("%w: terminos must contain at least one term", contractx.ErrValidation)
	}

	candidates, err := h.matching(ctx, store.Filter{
		ActiveOnly: true,
		Match: &store.TextMatch{
			Terms:  terms,
			Fields: append([]store.Field{store.FieldAddress}, textFields...),
		},
	})
	if err != nil {
		return nil, 0, err
	}

	out := h.rankOrViews(strings.Join(terms, " "), candidates, clampLimit(p.Limit, defaultLimit), ranking.ExcerptList)
	return out, len(out), nil
}

func (h *handlers) search(ctx context.Context, p SearchParams) (any, int, error) {
	id := strings.TrimSpace(p.ID)
	slug := strings.TrimSpace(p.Slug)
	if id != "" || slug != "" {
		f := store.Filter{ID: id, ActiveOnly: true}
		if id == "" {
			f.Slug = slug
		}
		b, err := h.store.FindOne(ctx, f)
		if errors.Is(err, store.ErrNotFound) {
			return []Summary{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return []Summary{summarize(*b, ranking.ExcerptList, 0)}, 1, nil
	}

	text := strings.TrimSpace(strings.Join([]string{p.Name, p.Query}, " "))
	if text == "" {
		records, err := h.store.FindMany(ctx, store.Active(), store.SortViewsDesc, 0, searchLimit)
		if err != nil {
			return nil, 0, err
		}
		out := summarizeAll(records, ranking.ExcerptList)
		return out, len(out), nil
	}

	terms := ranking.Keywords(text)
	if c, ok := ranking.DetectCategory(text); ok {
		terms = append(terms, ranking.Terms(c)...)
	}
	if len(terms) == 0 {
		terms = []string{text}
	}

	candidates, err := h.matching(ctx, store.Filter{
		ActiveOnly: true,
		Match:      &store.TextMatch{Terms: terms, Fields: textFields},
	})
	if err != nil {
		return nil, 0, err
	}

	out := h.rankOrViews(text, candidates, searchLimit, ranking.ExcerptList)
	return out, len(out), nil
}

func (h *handlers) list(ctx context.Context, p ListParams) (any, int, error) {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	records, err := h.store.FindMany(ctx, store.Filter{
		ActiveOnly: true,
		Verified:   p.Verified,
		Featured:   p.Featured,
	}, store.SortViewsDesc, offset, clampLimit(p.Limit, defaultLimit))
	if err != nil {
		return nil, 0, err
	}
	out := summarizeAll(records, ranking.ExcerptList)
	return out, len(out), nil
}

func (h *handlers) detail(ctx context.Context, p DetailParams) (any, int, error) {
	b, err := h.findActive(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound(p.ID), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return detail(*b), 1, nil
}

func (h *handlers) category(ctx context.Context, p CategoryParams) (any, int, error) {
	tag := strings.TrimSpace(p.Tag)
	if tag == "" {
		return nil, 0, fmt.Errorf("%w: tag must not be empty", contractx.ErrValidation)
	}

	candidates, err := h.matching(ctx, store.Filter{
		ActiveOnly: true,
		Match:      &store.TextMatch{Terms: []string{tag}, Fields: []store.Field{store.FieldTags}},
	})
	if err != nil {
		return nil, 0, err
	}

	out := h.rankOrViews(tag, candidates, clampLimit(p.Limit, defaultLimit), ranking.ExcerptList)
	return out, len(out), nil
}

func (h *handlers) contact(ctx context.Context, p ContactParams) (any, int, error) {
	b, err := h.findActive(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound(p.ID), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return contactCard(*b), 1, nil
}

func (h *handlers) verified(ctx context.Context, p VerifiedParams) (any, int, error) {
	yes := true
	records, err := h.store.FindMany(ctx, store.Filter{ActiveOnly: true, Verified: &yes},
		store.SortViewsDesc, 0, clampLimit(p.Limit, defaultLimit))
	if err != nil {
		return nil, 0, err
	}
	out := summarizeAll(records, ranking.ExcerptCompact)
	return out, len(out), nil
}

func (h *handlers) location(ctx context.Context, p LocationParams) (any, int, error) {
	city := strings.TrimSpace(p.City)
	address := strings.TrimSpace(p.Address)

	var match *store.TextMatch
	switch {
	case city != "":
		match = &store.TextMatch{Terms: []string{city}, Fields: []store.Field{store.FieldAddress, store.FieldCity}}
	case address != "":
		match = &store.TextMatch{Terms: []string{address}, Fields: []store.Field{store.FieldAddress}}
	default:
		return nil, 0, fmt.Errorf("%w: ciudad or direccion is required", contractx.ErrValidation)
	}

	records, err := h.store.FindMany(ctx, store.Filter{ActiveOnly: true, Match: match},
		store.SortViewsDesc, 0, clampLimit(p.Limit, defaultLimit))
	if err != nil {
		return nil, 0, err
	}
	out := make([]LocationSummary, 0, len(records))
	for _, b := range records {
		out = append(out, locate(b))
	}
	return out, len(out), nil
}

func (h *handlers) explore(ctx context.Context, p ExploreParams) (any, int, error) {
	counts, err := h.store.AggregateTagCounts(ctx, store.Active(), clampLimit(p.Limit, defaultExploreLimit))
	if err != nil {
		return nil, 0, err
	}

	popular := make([]CategoryCount, 0, len(counts))
	for _, c := range counts {
		popular = append(popular, CategoryCount{Categoria: c.Tag, CantidadComercios: c.Count})
	}
	msg := "No hay categorías registradas todavía."
	if len(popular) > 0 {
		msg = fmt.Sprintf("Hay %d categorías disponibles. Sugiere al usuario algunas de ellas.", len(popular))
	}
	return CategoryOverview{
		TotalCategorias:     len(popular),
		CategoriasPopulares: popular,
		Mensaje:             msg,
	}, len(popular), nil
}

// share touches no store; the confirmation is what the orchestrator records.
func (h *handlers) share(_ context.Context, p ShareParams) (any, int, error) {
	id := strings.TrimSpace(p.ID)
	slug := strings.TrimSpace(p.Slug)
	name := strings.TrimSpace(p.Name)
	if id == "" || slug == "" || name == "" {
		return nil, 0, fmt.Errorf("%w: id, slug and nombre must not be empty", contractx.ErrValidation)
	}
	return contractx.ShareConfirmation{
		Success: true,
		Message: fmt.Sprintf("Comercio %s compartido exitosamente", name),
		Data:    contractx.SharePayload{ID: id, Slug: slug, Nombre: name},
	}, 1, nil
}

func (h *handlers) findActive(ctx context.Context, id string) (*store.Business, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id must not be empty", contractx.ErrValidation)
	}
	return h.store.FindOne(ctx, store.Filter{ID: id, ActiveOnly: true})
}

// matching pages through every record f matches so that ranking sees the
// whole candidate set, not just the most viewed slice of it.
func (h *handlers) matching(ctx context.Context, f store.Filter) ([]store.Business, error) {
	var out []store.Business
	for skip := 0; skip < maxCandidates; skip += candidatePage {
		page, err := h.store.FindMany(ctx, f, store.SortViewsDesc, skip, candidatePage)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < candidatePage {
			break
		}
	}
	return out, nil
}

// rankOrViews ranks candidates against text. When nothing scores, for
// instance because every token is shorter than a keyword, the store order
// (views desc) is kept instead.
func (h *handlers) rankOrViews(text string, candidates []store.Business, limit, excerpt int) []Summary {
	ranked := h.ranker.Rank(ranking.Query{Text: text, Limit: limit}, candidates)
	if len(ranked) > 0 {
		return summarizeScored(ranked, excerpt)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return summarizeAll(candidates, excerpt)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
