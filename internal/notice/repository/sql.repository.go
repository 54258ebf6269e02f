package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"noticeboard/internal/notice/model"
	"noticeboard/pkg/logger"

	"github.com/google/uuid"
)

type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

const noticeColumns = `id, title, content, created_at, updated_at`

// SQLRepository stores notices in a single "notices" table. Timestamps are
// kept as Unix milliseconds so PostgreSQL and SQLite scan the same way.
type SQLRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{DB: db, Dialect: dialect}
}

func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notices (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notices_created_at_idx ON notices (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			logger.Sugar.Errorf("Failed to ensure notices schema: %v", err)
			return err
		}
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *SQLRepository) Insert(ctx context.Context, n *model.Notice) error {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		r.rebind(`INSERT INTO notices (`+noticeColumns+`) VALUES (?, ?, ?, ?, ?)`),
		id, n.Title, n.Content, n.CreatedAt.UnixMilli(), n.UpdatedAt.UnixMilli())
	if err != nil {
		logger.Sugar.Errorf("Failed to insert notice: %v", err)
		return err
	}
	n.ID = id
	return nil
}

func (r *SQLRepository) FindAll(ctx context.Context) ([]model.Notice, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+noticeColumns+` FROM notices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list notices: %v", err)
		return nil, err
	}
	defer rows.Close()

	notices := make([]model.Notice, 0)
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			logger.Sugar.Errorf("Failed to scan notice: %v", err)
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (model.Notice, error) {
	row := r.DB.QueryRowContext(ctx,
		r.rebind(`SELECT `+noticeColumns+` FROM notices WHERE id = ?`), id)
	return r.scanOne(row, "find", id)
}

func (r *SQLRepository) UpdateByID(ctx context.Context, id, title, content string, updatedAt time.Time) (model.Notice, error) {
	row := r.DB.QueryRowContext(ctx,
		r.rebind(`UPDATE notices SET title = ?, content = ?, updated_at = ? WHERE id = ? RETURNING `+noticeColumns),
		title, content, updatedAt.UnixMilli(), id)
	return r.scanOne(row, "update", id)
}

func (r *SQLRepository) DeleteByID(ctx context.Context, id string) (model.Notice, error) {
	row := r.DB.QueryRowContext(ctx,
		r.rebind(`DELETE FROM notices WHERE id = ? RETURNING `+noticeColumns), id)
	return r.scanOne(row, "delete", id)
}

func (r *SQLRepository) scanOne(row *sql.Row, op, id string) (model.Notice, error) {
	n, err := scanNotice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notice{}, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to %s notice %s: %v", op, id, err)
		return model.Notice{}, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotice(s scanner) (model.Notice, error) {
	var n model.Notice
	var createdAt, updatedAt int64
	if err := s.Scan(&n.ID, &n.Title, &n.Content, &createdAt, &updatedAt); err != nil {
		return model.Notice{}, err
	}
	n.CreatedAt = time.UnixMilli(createdAt).UTC()
	n.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return n, nil
}

// rebind turns "?" placeholders into "$1", "$2", ... for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.Dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
