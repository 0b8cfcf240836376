package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

const elasticMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "slug":           {"type": "keyword"},
      "name":           {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "description":    {"type": "text", "fields": {"raw": {"type": "wildcard"}}},
      "address":        {"type": "keyword"},
      "city":           {"type": "keyword"},
      "tags":           {"type": "keyword"},
      "status":         {"type": "keyword"},
      "verified":       {"type": "boolean"},
      "featured":       {"type": "boolean"},
      "views":          {"type": "long"},
      "rating_avg":     {"type": "float"},
      "rating_count":   {"type": "integer"},
      "created_at":     {"type": "date"},
      "updated_at":     {"type": "date"}
    }
  }
}`

// ElasticStore reads businesses from an Elasticsearch index.
type ElasticStore struct {
	es    *elasticsearch.Client
	index string
}

var _ RecordStore = (*ElasticStore)(nil)

func NewElasticStore(es *elasticsearch.Client, index string) (*ElasticStore, error) {
	if es == nil {
		return nil, errors.New("elasticsearch client is required")
	}
	index = strings.TrimSpace(index)
	if index == "" {
		return nil, errors.New("elasticsearch index is required")
	}
	return &ElasticStore{es: es, index: index}, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Business `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Tags struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int    `json:"doc_count"`
			} `json:"buckets"`
		} `json:"tags"`
	} `json:"aggregations"`
}

func (s *ElasticStore) FindOne(ctx context.Context, f Filter) (*Business, error) {
	resp, err := s.search(ctx, map[string]any{
		"query": buildQuery(f),
		"size":  1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, ErrNotFound
	}
	b := resp.Hits.Hits[0].Source
	return &b, nil
}

func (s *ElasticStore) FindMany(ctx context.Context, f Filter, order Sort, skip, limit int) ([]Business, error) {
	body := map[string]any{
		"query": buildQuery(f),
	}
	switch order {
	case SortViewsDesc:
		body["sort"] = []any{map[string]any{"views": map[string]any{"order": "desc"}}}
	default:
		body["sort"] = []any{"_doc"}
	}
	if skip > 0 {
		body["from"] = skip
	}
	if limit > 0 {
		body["size"] = limit
	}

	resp, err := s.search(ctx, body)
	if err != nil {
		return nil, err
	}
	out := make([]Business, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

func (s *ElasticStore) AggregateTagCounts(ctx context.Context, f Filter, limit int) ([]TagCount, error) {
	if limit <= 0 {
		limit = 30
	}
	resp, err := s.search(ctx, map[string]any{
		"query": buildQuery(f),
		"size":  0,
		"aggs": map[string]any{
			"tags": map[string]any{
				"terms": map[string]any{
					"field": "tags",
					"size":  limit,
					"order": []any{
						map[string]any{"_count": "desc"},
						map[string]any{"_key": "asc"},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	out := make([]TagCount, 0, len(resp.Aggregations.Tags.Buckets))
	for _, b := range resp.Aggregations.Tags.Buckets {
		out = append(out, TagCount{Tag: b.Key, Count: b.DocCount})
	}
	return out, nil
}

// EnsureIndex creates the index with its mapping when missing.
func (s *ElasticStore) EnsureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: check index: %v", contractx.ErrBackendUnavailable, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.es.Indices.Create(s.index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(strings.NewReader(elasticMapping)),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", contractx.ErrBackendUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, res.String())
	}
	return nil
}

func (s *ElasticStore) Index(ctx context.Context, records ...Business) error {
	for _, b := range records {
		payload, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal business %s: %w", b.ID, err)
		}
		req := esapi.IndexRequest{
			Index:      s.index,
			DocumentID: b.ID,
			Body:       bytes.NewReader(payload),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, s.es)
		if err != nil {
			return fmt.Errorf("%w: index business %s: %v", contractx.ErrBackendUnavailable, b.ID, err)
		}
		isErr, status := res.IsError(), res.String()
		res.Body.Close()
		if isErr {
			return fmt.Errorf("index business %s: %s", b.ID, status)
		}
	}
	return nil
}

func (s *ElasticStore) search(ctx context.Context, body map[string]any) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, fmt.Errorf("%w: elasticsearch search: %v", contractx.ErrBackendUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("elasticsearch search status=%d body=%s", res.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &parsed, nil
}

func buildQuery(f Filter) map[string]any {
	filters := make([]any, 0, 5)
	if f.ID != "" {
		filters = append(filters, map[string]any{"ids": map[string]any{"values": []string{f.ID}}})
	}
	if f.Slug != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"slug": f.Slug}})
	}
	if f.ActiveOnly {
		filters = append(filters, map[string]any{"term": map[string]any{"status": StatusActive}})
	}
	if f.Verified != nil {
		filters = append(filters, map[string]any{"term": map[string]any{"verified": *f.Verified}})
	}
	if f.Featured != nil {
		filters = append(filters, map[string]any{"term": map[string]any{"featured": *f.Featured}})
	}

	boolQuery := map[string]any{"filter": filters}
	if !f.Match.empty() {
		should := make([]any, 0)
		for _, term := range terms(f.Match) {
			pattern := "*" + escapeWildcard(term) + "*"
			for _, field := range f.Match.Fields {
				should = append(should, map[string]any{
					"wildcard": map[string]any{
						elasticField(field): map[string]any{
							"value":            pattern,
							"case_insensitive": true,
						},
					},
				})
			}
		}
		boolQuery["should"] = should
		boolQuery["minimum_should_match"] = 1
	}
	return map[string]any{"bool": boolQuery}
}

func elasticField(field Field) string {
	switch field {
	case FieldName:
		return "name.raw"
	case FieldDescription:
		return "description.raw"
	default:
		return string(field)
	}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
