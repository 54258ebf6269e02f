package repository

import (
	"context"
	"errors"
	"time"

	"noticeboard/internal/notice/model"
)

// ErrNotFound is returned when no notice has the requested id.
var ErrNotFound = errors.New("notice not found")

// NoticeRepository is the notices collection. Every method touches at most
// one document and is atomic on its own.
type NoticeRepository interface {
	// EnsureSchema creates the table or index the store needs. Idempotent.
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error

	// Insert assigns n.ID and stores n.
	Insert(ctx context.Context, n *model.Notice) error
	// FindAll returns every notice, newest CreatedAt first.
	FindAll(ctx context.Context) ([]model.Notice, error)
	FindByID(ctx context.Context, id string) (model.Notice, error)
	// UpdateByID replaces title and content and returns the stored result.
	UpdateByID(ctx context.Context, id, title, content string, updatedAt time.Time) (model.Notice, error)
	// DeleteByID removes the notice and returns it as it was.
	DeleteByID(ctx context.Context, id string) (model.Notice, error)
}
