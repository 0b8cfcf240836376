package review

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

type BunRepository struct {
	db *bun.DB
}

var _ Repository = (*BunRepository)(nil)

func NewBunRepository(db *bun.DB) (*BunRepository, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &BunRepository{db: db}, nil
}

func (r *BunRepository) Insert(ctx context.Context, rev *Review) error {
	if _, err := r.db.NewInsert().Model(rev).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert review: %v", contractx.ErrBackendUnavailable, err)
	}
	return nil
}

func (r *BunRepository) Exists(ctx context.Context, itemID, email string) (bool, error) {
	ok, err := r.db.NewSelect().Model((*Review)(nil)).
		Where("r.item_id = ?", itemID).
		Where("r.reviewer_email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: check review: %v", contractx.ErrBackendUnavailable, err)
	}
	return ok, nil
}

func (r *BunRepository) ListByItem(ctx context.Context, itemID string) ([]Review, error) {
	out := make([]Review, 0)
	err := r.db.NewSelect().Model(&out).
		Where("r.item_id = ?", itemID).
		OrderExpr("r.created_at DESC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: list reviews: %v", contractx.ErrBackendUnavailable, err)
	}
	return out, nil
}

// Migrate creates the reviews table with its item and reviewer indexes.
func (r *BunRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*Review)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create reviews table: %w", err)
	}
	indexes := []*bun.CreateIndexQuery{
		r.db.NewCreateIndex().Model((*Review)(nil)).IfNotExists().
			Index("reviews_item_created_idx").Column("item_id").ColumnExpr("created_at DESC"),
		r.db.NewCreateIndex().Model((*Review)(nil)).IfNotExists().Unique().
			Index("reviews_item_email_idx").Column("item_id", "reviewer_email"),
		r.db.NewCreateIndex().Model((*Review)(nil)).IfNotExists().
			Index("reviews_rating_idx").Column("rating"),
	}
	for _, idx := range indexes {
		if _, err := idx.Exec(ctx); err != nil {
			return fmt.Errorf("create reviews index: %w", err)
		}
	}
	return nil
}

// Memory keeps reviews in process. It backs the service when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	reviews []Review
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Insert(_ context.Context, rev *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, *rev)
	return nil
}

func (m *Memory) Exists(_ context.Context, itemID, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.ContainsFunc(m.reviews, func(r Review) bool {
		return r.ItemID == itemID && r.ReviewerEmail == email
	}), nil
}

func (m *Memory) ListByItem(_ context.Context, itemID string) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Review, 0)
	for _, r := range m.reviews {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Review) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return out, nil
}
