package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

// PostgresStore reads businesses through bun.
type PostgresStore struct {
	db *bun.DB
}

var _ RecordStore = (*PostgresStore)(nil)

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) FindOne(ctx context.Context, f Filter) (*Business, error) {
	var b Business
	q := s.db.NewSelect().Model(&b)
	applyFilter(q, f)
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: postgres find one: %v", contractx.ErrBackendUnavailable, err)
	}
	return &b, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, f Filter, order Sort, skip, limit int) ([]Business, error) {
	out := make([]Business, 0)
	q := s.db.NewSelect().Model(&out)
	applyFilter(q, f)
	switch order {
	case SortViewsDesc:
		q.OrderExpr("b.views DESC")
	default:
		q.OrderExpr("b.created_at ASC, b.id ASC")
	}
	if skip > 0 {
		q.Offset(skip)
	}
	if limit > 0 {
		q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: postgres find many: %v", contractx.ErrBackendUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) AggregateTagCounts(ctx context.Context, f Filter, limit int) ([]TagCount, error) {
	out := make([]TagCount, 0)
	q := s.db.NewSelect().
		ColumnExpr("t.tag AS tag").
		ColumnExpr("count(*) AS count").
		TableExpr("businesses AS b").
		TableExpr("unnest(b.tags) AS t(tag)")
	applyFilter(q, f)
	q.GroupExpr("t.tag").OrderExpr("count DESC, tag ASC")
	if limit > 0 {
		q.Limit(limit)
	}
	if err := q.Scan(ctx, &out); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: postgres aggregate tags: %v", contractx.ErrBackendUnavailable, err)
	}
	return out, nil
}

// Migrate creates the businesses table and its lookup indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Business)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create businesses table: %w", err)
	}

	indexes := []*bun.CreateIndexQuery{
		s.db.NewCreateIndex().Model((*Business)(nil)).IfNotExists().
			Index("businesses_status_verified_idx").Column("status", "verified"),
		s.db.NewCreateIndex().Model((*Business)(nil)).IfNotExists().
			Index("businesses_tags_idx").Using("GIN").Column("tags"),
		s.db.NewCreateIndex().Model((*Business)(nil)).IfNotExists().
			Index("businesses_views_idx").ColumnExpr("views DESC"),
	}
	for _, idx := range indexes {
		if _, err := idx.Exec(ctx); err != nil {
			return fmt.Errorf("create businesses index: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, records ...Business) error {
	if len(records) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&records).On("CONFLICT (id) DO UPDATE").
		Set("slug = EXCLUDED.slug").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("tags = EXCLUDED.tags").
		Set("status = EXCLUDED.status").
		Set("views = EXCLUDED.views").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert businesses: %w", err)
	}
	return nil
}

func applyFilter(q *bun.SelectQuery, f Filter) {
	if f.ID != "" {
		q.Where("b.id = ?", f.ID)
	}
	if f.Slug != "" {
		q.Where("b.slug = ?", f.Slug)
	}
	if f.ActiveOnly {
		q.Where("b.status = ?", StatusActive)
	}
	if f.Verified != nil {
		q.Where("b.verified = ?", *f.Verified)
	}
	if f.Featured != nil {
		q.Where("b.featured = ?", *f.Featured)
	}
	if f.Match.empty() {
		return
	}
	q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, term := range terms(f.Match) {
			pattern := "%" + escapeLike(term) + "%"
			for _, field := range f.Match.Fields {
				q.WhereOr(fieldExpr(field), pattern)
			}
		}
		return q
	})
}

func fieldExpr(field Field) string {
	switch field {
	case FieldTags:
		return "EXISTS (SELECT 1 FROM unnest(b.tags) AS bt(tag) WHERE bt.tag ILIKE ?)"
	case FieldDescription:
		return "b.description ILIKE ?"
	case FieldAddress:
		return "b.address ILIKE ?"
	case FieldCity:
		return "b.city ILIKE ?"
	default:
		return "b.name ILIKE ?"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
