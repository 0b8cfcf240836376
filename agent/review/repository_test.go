package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

func newMockRepository(t *testing.T) (*BunRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewBunRepository(db)
	require.NoError(t, err)
	return repo, mock
}

func TestBunRepositoryExists(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT .* FROM "reviews" AS "r" WHERE \(r.item_id = 'biz-1'\) AND \(r.reviewer_email = 'ana@example.com'\)\)`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "biz-1", "ana@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBunRepositoryListByItem(t *testing.T) {
	repo, mock := newMockRepository(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM "reviews" AS "r" WHERE \(r.item_id = 'biz-1'\) ORDER BY r.created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "reviewer_name", "reviewer_email", "rating", "review_text", "created_at", "updated_at"}).
			AddRow("rev-1", "biz-1", "Ana", "ana@example.com", 5, "Excelente", created, created))

	got, err := repo.ListByItem(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Rating)
	assert.Equal(t, "Excelente", got[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBunRepositoryInsertFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "reviews"`).WillReturnError(errors.New("connection refused"))

	err := repo.Insert(context.Background(), &Review{ID: "rev-1", ItemID: "biz-1", Rating: 5})
	assert.True(t, errors.Is(err, contractx.ErrBackendUnavailable), "got %v", err)
}
