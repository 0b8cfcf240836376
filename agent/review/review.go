package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

const DefaultReviewerName = "Usuario Renval"

var ErrDuplicateReview = errors.New("reviewer already reviewed this item")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r" json:"-"`

	ID            string    `bun:"id,pk" json:"id"`
	ItemID        string    `bun:"item_id,notnull" json:"item_id"`
	ReviewerName  string    `bun:"reviewer_name,notnull" json:"reviewer_name"`
	ReviewerEmail string    `bun:"reviewer_email,notnull" json:"reviewer_email"`
	Rating        int       `bun:"rating,notnull" json:"rating"`
	Text          string    `bun:"review_text,notnull" json:"review_text"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CreateInput struct {
	ItemID        string `json:"item_id"`
	ReviewerName  string `json:"reviewer_name"`
	ReviewerEmail string `json:"reviewer_email"`
	Rating        int    `json:"rating"`
	Text          string `json:"review_text"`
}

// Validate collects every problem so callers can show them at once.
func (in CreateInput) Validate() error {
	var problems []string
	if strings.TrimSpace(in.ItemID) == "" {
		problems = append(problems, "item_id is required")
	}
	email := strings.TrimSpace(in.ReviewerEmail)
	switch {
	case email == "":
		problems = append(problems, "reviewer_email is required")
	case !emailPattern.MatchString(email):
		problems = append(problems, "reviewer_email is not a valid address")
	}
	if in.Rating < 1 || in.Rating > 5 {
		problems = append(problems, "rating must be between 1 and 5")
	}
	if strings.TrimSpace(in.Text) == "" {
		problems = append(problems, "review_text is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", contractx.ErrValidation, strings.Join(problems, ", "))
	}
	return nil
}

type Repository interface {
	Insert(ctx context.Context, r *Review) error
	Exists(ctx context.Context, itemID, email string) (bool, error)
	ListByItem(ctx context.Context, itemID string) ([]Review, error)
}

type ItemReviews struct {
	ItemID       string      `json:"item_id"`
	Total        int         `json:"total_reviews"`
	Average      float64     `json:"promedio_rating"`
	Distribution map[int]int `json:"distribucion_ratings"`
	Reviews      []Review    `json:"reviews,omitempty"`
}

type Service struct {
	repo   Repository
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("review repository is required")
	}
	s := &Service{
		repo:   repo,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.Logger.With().Str("component", "review_service").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Review, error) {
	if err := in.Validate(); err != nil {
		return Review{}, err
	}

	itemID := strings.TrimSpace(in.ItemID)
	email := strings.ToLower(strings.TrimSpace(in.ReviewerEmail))
	exists, err := s.repo.Exists(ctx, itemID, email)
	if err != nil {
		return Review{}, err
	}
	if exists {
		return Review{}, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrDuplicateReview)
	}

	name := strings.TrimSpace(in.ReviewerName)
	if name == "" {
		name = DefaultReviewerName
	}
	now := s.now().UTC()
	r := Review{
		ID:            s.newID(),
		ItemID:        itemID,
		ReviewerName:  name,
		ReviewerEmail: email,
		Rating:        in.Rating,
		Text:          strings.TrimSpace(in.Text),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, &r); err != nil {
		return Review{}, err
	}

	s.logger.Info().Str("review_id", r.ID).Str("item_id", r.ItemID).Int("rating", r.Rating).Msg("review created")
	return r, nil
}

// ListByItem returns reviews newest first with their rating summary.
func (s *Service) ListByItem(ctx context.Context, itemID string) (ItemReviews, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ItemReviews{}, fmt.Errorf("%w: item_id is required", contractx.ErrValidation)
	}

	reviews, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return ItemReviews{}, err
	}
	out := summarize(itemID, reviews)
	out.Reviews = reviews
	return out, nil
}

func (s *Service) Stats(ctx context.Context, itemID string) (ItemReviews, error) {
	out, err := s.ListByItem(ctx, itemID)
	if err != nil {
		return ItemReviews{}, err
	}
	out.Reviews = nil
	return out, nil
}

func summarize(itemID string, reviews []Review) ItemReviews {
	dist := map[int]int{5: 0, 4: 0, 3: 0, 2: 0, 1: 0}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		if _, ok := dist[r.Rating]; ok {
			dist[r.Rating]++
		}
	}

	avg := 0.0
	if len(reviews) > 0 {
		avg = math.Round(float64(sum)/float64(len(reviews))*100) / 100
	}
	return ItemReviews{
		ItemID:       itemID,
		Total:        len(reviews),
		Average:      avg,
		Distribution: dist,
	}
}
