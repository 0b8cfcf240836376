package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Memory is a RecordStore over an in-process slice. Enumeration order is insertion order.
type Memory struct {
	mu      sync.RWMutex
	records []Business
}

var _ RecordStore = (*Memory)(nil)

func NewMemory(records ...Business) *Memory {
	m := &Memory{}
	m.Add(records...)
	return m
}

// LoadJSONFile reads a JSON array of businesses.
func LoadJSONFile(path string) (*Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []Business
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return NewMemory(records...), nil
}

func (m *Memory) Add(records ...Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records = append(m.records, clone(r))
	}
}

func (m *Memory) All() []Business {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Business, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, clone(r))
	}
	return out
}

func (m *Memory) FindOne(ctx context.Context, f Filter) (*Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if f.Matches(r) {
			out := clone(r)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindMany(ctx context.Context, f Filter, order Sort, skip, limit int) ([]Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	matched := make([]Business, 0)
	for _, r := range m.records {
		if f.Matches(r) {
			matched = append(matched, clone(r))
		}
	}
	m.mu.RUnlock()

	if order == SortViewsDesc {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Views > matched[j].Views
		})
	}

	if skip > 0 {
		if skip >= len(matched) {
			return []Business{}, nil
		}
		matched = matched[skip:]
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) AggregateTagCounts(ctx context.Context, f Filter, limit int) ([]TagCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	m.mu.RLock()
	for _, r := range m.records {
		if !f.Matches(r) {
			continue
		}
		for _, tag := range r.Tags {
			counts[tag]++
		}
	}
	m.mu.RUnlock()

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Matches evaluates the filter against one record.
func (f Filter) Matches(b Business) bool {
	if f.ID != "" && b.ID != f.ID {
		return false
	}
	if f.Slug != "" && b.Slug != f.Slug {
		return false
	}
	if f.ActiveOnly && !b.Active() {
		return false
	}
	if f.Verified != nil && b.Verified != *f.Verified {
		return false
	}
	if f.Featured != nil && b.Featured != *f.Featured {
		return false
	}
	if f.Match.empty() {
		return true
	}
	for _, term := range terms(f.Match) {
		needle := strings.ToLower(term)
		for _, field := range f.Match.Fields {
			if fieldContains(b, field, needle) {
				return true
			}
		}
	}
	return false
}

func fieldContains(b Business, field Field, needle string) bool {
	switch field {
	case FieldName:
		return strings.Contains(strings.ToLower(b.Name), needle)
	case FieldDescription:
		return strings.Contains(strings.ToLower(b.Description), needle)
	case FieldAddress:
		return strings.Contains(strings.ToLower(b.Address), needle)
	case FieldCity:
		return strings.Contains(strings.ToLower(b.City), needle)
	case FieldTags:
		for _, tag := range b.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
	}
	return false
}

func clone(b Business) Business {
	b.Tags = slices.Clone(b.Tags)
	b.Images = slices.Clone(b.Images)
	return b
}
