package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"noticeboard/internal/notice/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var columns = []string{"id", "title", "content", "created_at", "updated_at"}

func newSQLiteRepository(t *testing.T) *SQLRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLRepository(db, DialectSQLite)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{Dialect: DialectPostgres}
	assert.Equal(t, "UPDATE notices SET title = $1 WHERE id = $2", pg.rebind("UPDATE notices SET title = ? WHERE id = ?"))

	lite := &SQLRepository{Dialect: DialectSQLite}
	assert.Equal(t, "SELECT 1 WHERE id = ?", lite.rebind("SELECT 1 WHERE id = ?"))
}

func TestPostgresInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, DialectPostgres)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notices (id, title, content, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(sqlmock.AnyArg(), "Meeting", "10am standup", now.UnixMilli(), now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &model.Notice{Title: "Meeting", Content: "10am standup", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Insert(context.Background(), n))
	assert.NotEmpty(t, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindAllOrdersByCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, DialectPostgres)
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content, created_at, updated_at FROM notices ORDER BY created_at DESC, id DESC")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b", "Second", "two", newer.UnixMilli(), newer.UnixMilli()).
			AddRow("a", "First", "one", older.UnixMilli(), older.UnixMilli()))

	notices, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "b", notices[0].ID)
	assert.Equal(t, newer, notices[0].CreatedAt)
	assert.Equal(t, "a", notices[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindAllEmptyIsNotNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM notices").WillReturnRows(sqlmock.NewRows(columns))

	notices, err := NewSQLRepository(db, DialectPostgres).FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, notices)
	assert.Empty(t, notices)
}

func TestPostgresFindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM notices WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = NewSQLRepository(db, DialectPostgres).FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateReturnsNewDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notices SET title = $1, content = $2, updated_at = $3 WHERE id = $4 RETURNING id, title, content, created_at, updated_at")).
		WithArgs("Meeting", "moved to 11", updated.UnixMilli(), "n1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("n1", "Meeting", "moved to 11", created.UnixMilli(), updated.UnixMilli()))

	n, err := NewSQLRepository(db, DialectPostgres).UpdateByID(context.Background(), "n1", "Meeting", "moved to 11", updated)
	require.NoError(t, err)
	assert.Equal(t, "moved to 11", n.Content)
	assert.Equal(t, created, n.CreatedAt)
	assert.Equal(t, updated, n.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeletePropagatesDriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM notices WHERE id = $1 RETURNING")).
		WithArgs("n1").
		WillReturnError(boom)

	_, err = NewSQLRepository(db, DialectPostgres).DeleteByID(context.Background(), "n1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRoundTrip(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	first := &model.Notice{Title: "First", Content: "one", CreatedAt: base, UpdatedAt: base}
	second := &model.Notice{Title: "Second", Content: "two", CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)}
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	got, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *first, got)

	later := base.Add(time.Hour)
	updated, err := repo.UpdateByID(ctx, first.ID, "First!", "one!", later)
	require.NoError(t, err)
	assert.Equal(t, "First!", updated.Title)
	assert.Equal(t, base, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)

	deleted, err := repo.DeleteByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, deleted)

	_, err = repo.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.UpdateByID(ctx, first.ID, "x", "y", later)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.DeleteByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteEnsureSchemaIsIdempotent(t *testing.T) {
	repo := newSQLiteRepository(t)
	assert.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, repo.Ping(context.Background()))
}
