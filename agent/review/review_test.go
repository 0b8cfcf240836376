package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	s, err := NewService(repo,
		WithClock(func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * time.Minute)
		}),
		WithIDGenerator(func() string { return fmt.Sprintf("rev-%d", calls) }),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return s
}

func TestCreateNormalizesInput(t *testing.T) {
	t.Parallel()

	s := newTestService(t, NewMemory())
	got, err := s.Create(context.Background(), CreateInput{
		ItemID:        " biz-1 ",
		ReviewerEmail: "  Ana@Example.COM ",
		Rating:        5,
		Text:          "  Excelente servicio  ",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.ItemID != "biz-1" || got.ReviewerEmail != "ana@example.com" || got.Text != "Excelente servicio" {
		t.Fatalf("unexpected review: %+v", got)
	}
	if got.ReviewerName != DefaultReviewerName || got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	valid := CreateInput{ItemID: "biz-1", ReviewerEmail: "a@b.co", Rating: 3, Text: "ok"}
	cases := map[string]func(*CreateInput){
		"missing item":  func(in *CreateInput) { in.ItemID = " " },
		"bad email":     func(in *CreateInput) { in.ReviewerEmail = "not-an-email" },
		"missing email": func(in *CreateInput) { in.ReviewerEmail = "" },
		"rating zero":   func(in *CreateInput) { in.Rating = 0 },
		"rating six":    func(in *CreateInput) { in.Rating = 6 },
		"blank text":    func(in *CreateInput) { in.Text = "   " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := valid
			mutate(&in)
			s := newTestService(t, NewMemory())
			if _, err := s.Create(context.Background(), in); !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateRejectsDuplicateReviewer(t *testing.T) {
	t.Parallel()

	s := newTestService(t, NewMemory())
	in := CreateInput{ItemID: "biz-1", ReviewerEmail: "ana@example.com", Rating: 4, Text: "Bien"}
	if _, err := s.Create(context.Background(), in); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	in.ReviewerEmail = "ANA@example.com"
	_, err := s.Create(context.Background(), in)
	if !errors.Is(err, ErrDuplicateReview) || !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected duplicate validation error, got %v", err)
	}

	in.ItemID = "biz-2"
	if _, err := s.Create(context.Background(), in); err != nil {
		t.Fatalf("same reviewer on another item should succeed: %v", err)
	}
}

func TestListByItemSummary(t *testing.T) {
	t.Parallel()

	s := newTestService(t, NewMemory())
	for i, rating := range []int{5, 4, 4} {
		_, err := s.Create(context.Background(), CreateInput{
			ItemID:        "biz-1",
			ReviewerEmail: fmt.Sprintf("user%d@example.com", i),
			Rating:        rating,
			Text:          "Reseña",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := s.ListByItem(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("ListByItem() error = %v", err)
	}
	if got.Total != 3 || got.Average != 4.33 {
		t.Fatalf("total=%d average=%v, want 3 and 4.33", got.Total, got.Average)
	}
	want := map[int]int{5: 1, 4: 2, 3: 0, 2: 0, 1: 0}
	for k, v := range want {
		if got.Distribution[k] != v {
			t.Fatalf("distribution = %v, want %v", got.Distribution, want)
		}
	}
	if got.Reviews[0].ReviewerEmail != "user2@example.com" {
		t.Fatalf("reviews should be newest first: %+v", got.Reviews)
	}

	stats, err := s.Stats(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Reviews != nil || stats.Total != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestListByItemEmpty(t *testing.T) {
	t.Parallel()

	s := newTestService(t, NewMemory())
	got, err := s.ListByItem(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListByItem() error = %v", err)
	}
	if got.Total != 0 || got.Average != 0 || len(got.Distribution) != 5 {
		t.Fatalf("unexpected empty summary: %+v", got)
	}

	if _, err := s.ListByItem(context.Background(), " "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
