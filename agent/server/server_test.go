package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/review"
	qstashx "github.com/tanpawarit/Chative-Local-Concierge/pkg/qstash"
)

type fakeChat struct {
	resp contractx.ChatResponse
	err  error
	got  contractx.ChatRequest
}

func (f *fakeChat) HandleMessage(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return contractx.ChatResponse{}, f.err
	}
	return f.resp, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []contractx.SharedRecord
}

func (f *fakeNotifier) NotifyShared(ctx context.Context, conversationID string, rec contractx.SharedRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rec)
	return nil
}

type fakeFlusher struct{ flushed int }

func (f *fakeFlusher) Flush(context.Context) error {
	f.flushed++
	return nil
}

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, chat ChatService, opts ...Option) http.Handler {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	s, err := New(Config{Version: "test"}, chat, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestChatSuccess(t *testing.T) {
	t.Parallel()

	shared := &contractx.SharedRecord{ID: "1", Slug: "moments", Name: "Moment's Events"}
	chat := &fakeChat{resp: contractx.ChatResponse{
		ConversationID: "c1", Message: "Te recomiendo Moment's Events", SharedRecord: shared,
		Iterations: 2, Completion: contractx.CompletionEndTurn,
	}}
	notifier := &fakeNotifier{}
	h := newTestServer(t, chat, WithShareNotifier(notifier))

	rec := do(t, h, http.MethodPost, "/chat", `{"message":"flores","history":[{"role":"user","content":"hola"},{"role":"assistant","content":[{"type":"text","text":"¡Hola!"}]}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}

	var out chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Message != "Te recomiendo Moment's Events" || out.SharedRecord == nil || out.SharedRecord.Slug != "moments" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.Stop != contractx.CompletionEndTurn || !out.Timestamp.Equal(testNow) {
		t.Fatalf("unexpected response: %+v", out)
	}
	if len(chat.got.History) != 2 || chat.got.History[0].Text() != "hola" {
		t.Fatalf("history not decoded: %+v", chat.got.History)
	}
	if len(notifier.calls) != 1 || notifier.calls[0].ID != "1" {
		t.Fatalf("notifier calls = %+v", notifier.calls)
	}
}

func TestChatNullSharedRecord(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeChat{resp: contractx.ChatResponse{Message: "hola"}})
	rec := do(t, h, http.MethodPost, "/chat", `{"message":"hola"}`)
	if !strings.Contains(rec.Body.String(), `"shared_record":null`) {
		t.Fatalf("shared_record should be null: %s", rec.Body.String())
	}
}

func TestChatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		err       error
		status    int
		kind      string
		retryable bool
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "empty body", body: ``, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "validation", body: `{"message":""}`, err: contractx.ErrValidation, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "backend", body: `{"message":"x"}`, err: errors.Join(contractx.ErrBackendUnavailable, errors.New("timeout")), status: http.StatusServiceUnavailable, kind: "backend_unavailable", retryable: true},
		{name: "internal", body: `{"message":"x"}`, err: errors.New("boom"), status: http.StatusInternalServerError, kind: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestServer(t, &fakeChat{err: tt.err})
			rec := do(t, h, http.MethodPost, "/chat", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			got := decodeError(t, rec)
			if got.Kind != tt.kind || got.Retryable != tt.retryable {
				t.Fatalf("error = %+v", got)
			}
		})
	}
}

func TestHealthAndRoot(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeChat{})

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version":"test"`) {
		t.Fatalf("root = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/chat", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /chat = %d", rec.Code)
	}
}

func TestReviewsRoutes(t *testing.T) {
	t.Parallel()

	svc, err := review.NewService(review.NewMemory())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	h := newTestServer(t, &fakeChat{}, WithReviews(svc))

	rec := do(t, h, http.MethodPost, "/reviews", `{"item_id":"biz-1","reviewer_email":"ana@example.com","rating":5,"review_text":"Excelente"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/reviews", `{"item_id":"biz-1","reviewer_email":"ana@example.com","rating":4,"review_text":"Otra"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/reviews/biz-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d %s", rec.Code, rec.Body.String())
	}
	var out review.ItemReviews
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if out.Total != 1 || out.Average != 5 || out.Distribution[5] != 1 {
		t.Fatalf("unexpected list: %+v", out)
	}
}

func TestCacheFlushRequiresToken(t *testing.T) {
	t.Parallel()

	flusher := &fakeFlusher{}
	s, err := New(Config{AdminToken: "secret"}, &fakeChat{}, WithCacheFlusher(flusher))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := s.Handler()

	if rec := do(t, h, http.MethodPost, "/admin/cache/flush", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("without token = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/admin/cache/flush", "", "Authorization", "Bearer secret"); rec.Code != http.StatusOK {
		t.Fatalf("with token = %d", rec.Code)
	}
	if flusher.flushed != 1 {
		t.Fatalf("flushed = %d", flusher.flushed)
	}
}

func TestQStashNotifierPublishesEvent(t *testing.T) {
	t.Parallel()

	var got sharedEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"messageId":"m1"}`))
	}))
	t.Cleanup(srv.Close)

	client := qstashx.MustNew(qstashx.Config{URL: srv.URL, Token: "t", Destination: "https://hooks.example.com/shared"})
	n := NewQStashNotifier(client)
	n.now = func() time.Time { return testNow }

	err := n.NotifyShared(context.Background(), "c1", contractx.SharedRecord{ID: "1", Slug: "moments", Name: "Moment's Events"})
	if err != nil {
		t.Fatalf("NotifyShared() error = %v", err)
	}
	if got.Event != "business.shared" || got.ConversationID != "c1" || got.Record.Slug != "moments" || !got.SharedAt.Equal(testNow) {
		t.Fatalf("unexpected event: %+v", got)
	}
}
