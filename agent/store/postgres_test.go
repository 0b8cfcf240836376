package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewPostgresStore(db)
	require.NoError(t, err)
	return s, mock
}

func TestPostgresFindOne(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM "businesses" AS "b" WHERE \(b.id = 'biz-1'\) AND \(b.status = 'Active'\) LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "status", "views"}).
			AddRow("biz-1", "moments", "Moment's Events", "Active", 12))

	got, err := s.FindOne(context.Background(), Filter{ID: "biz-1", ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "Moment's Events", got.Name)
	assert.EqualValues(t, 12, got.Views)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindOneNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM "businesses" AS "b"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.FindOne(context.Background(), Filter{ID: "missing", ActiveOnly: true})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestPostgresFindManyBuildsSubstringMatch(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`b.name ILIKE '%flor%' OR EXISTS \(SELECT 1 FROM unnest\(b.tags\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("4", "Rosa Flores"))

	got, err := s.FindMany(context.Background(), Filter{
		ActiveOnly: true,
		Match:      &TextMatch{Terms: []string{"flor"}, Fields: []Field{FieldName, FieldTags}},
	}, SortViewsDesc, 0, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].ID)
}

func TestPostgresFindManyBackendError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM "businesses"`).WillReturnError(errors.New("connection refused"))

	_, err := s.FindMany(context.Background(), Active(), SortViewsDesc, 0, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestPostgresAggregateTagCounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`unnest\(b.tags\) AS t\(tag\).*GROUP BY t.tag ORDER BY count DESC, tag ASC LIMIT 30`).
		WillReturnRows(sqlmock.NewRows([]string{"tag", "count"}).
			AddRow("eventos", 7).
			AddRow("flores", 3))

	got, err := s.AggregateTagCounts(context.Background(), Active(), 30)
	require.NoError(t, err)
	assert.Equal(t, []TagCount{{Tag: "eventos", Count: 7}, {Tag: "flores", Count: 3}}, got)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
