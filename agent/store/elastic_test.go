package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	elasticx "github.com/tanpawarit/Chative-Local-Concierge/pkg/elastic"
)

func newElasticTestStore(t *testing.T, handler http.HandlerFunc) *ElasticStore {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := elasticx.NewClient(elasticx.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	s, err := NewElasticStore(es, "businesses")
	require.NoError(t, err)
	return s
}

func TestElasticFindManyQuery(t *testing.T) {
	var body map[string]any
	s := newElasticTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/_search", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		io.WriteString(w, `{"hits":{"hits":[{"_source":{"id":"4","name":"Rosa Flores","status":"Active","tags":["flores"],"views":30}}]}}`)
	})

	got, err := s.FindMany(context.Background(), Filter{
		ActiveOnly: true,
		Match:      &TextMatch{Terms: []string{"flo*"}, Fields: []Field{FieldName, FieldTags}},
	}, SortViewsDesc, 5, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rosa Flores", got[0].Name)
	assert.Equal(t, []string{"flores"}, got[0].Tags)

	assert.EqualValues(t, 5, body["from"])
	assert.EqualValues(t, 10, body["size"])

	encoded, _ := json.Marshal(body["query"])
	q := string(encoded)
	assert.Contains(t, q, `"status":"Active"`)
	assert.Contains(t, q, `"name.raw":{"case_insensitive":true,"value":"*flo\\**"}`)
	assert.Contains(t, q, `"minimum_should_match":1`)
}

func TestElasticFindOneNotFound(t *testing.T) {
	s := newElasticTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"hits":{"hits":[]}}`)
	})

	_, err := s.FindOne(context.Background(), Filter{ID: "missing", ActiveOnly: true})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestElasticAggregateTagCounts(t *testing.T) {
	s := newElasticTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(raw), `"terms":{"field":"tags"`), string(raw))
		io.WriteString(w, `{"hits":{"hits":[]},"aggregations":{"tags":{"buckets":[{"key":"eventos","doc_count":4},{"key":"flores","doc_count":2}]}}}`)
	})

	got, err := s.AggregateTagCounts(context.Background(), Active(), 30)
	require.NoError(t, err)
	assert.Equal(t, []TagCount{{Tag: "eventos", Count: 4}, {Tag: "flores", Count: 2}}, got)
}

func TestElasticSearchErrorStatus(t *testing.T) {
	s := newElasticTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"bad query"}`)
	})

	_, err := s.FindMany(context.Background(), Active(), SortNatural, 0, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}
