package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"noticeboard/internal/notice/model"
	"noticeboard/internal/notice/repository"
	"noticeboard/socket"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation = errors.New("title and content are required")
	ErrNotFound   = repository.ErrNotFound
)

// EventPublisher receives a board event after every successful write.
type EventPublisher interface {
	PublishNoticeEvent(eventType string, n model.Notice)
}

type NoticeService struct {
	Repo     repository.NoticeRepository
	Events   EventPublisher
	Validate *validator.Validate
	Now      func() time.Time
}

func NewNoticeService(repo repository.NoticeRepository, events EventPublisher) *NoticeService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &NoticeService{
		Repo:     repo,
		Events:   events,
		Validate: v,
		Now:      time.Now,
	}
}

func (s *NoticeService) ListNotices(ctx context.Context) ([]model.Notice, error) {
	notices, err := s.Repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

func (s *NoticeService) GetNotice(ctx context.Context, id string) (model.Notice, error) {
	n, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return model.Notice{}, fmt.Errorf("get notice %s: %w", id, err)
	}
	return n, nil
}

func (s *NoticeService) CreateNotice(ctx context.Context, req model.NoticeRequest) (model.Notice, error) {
	if err := s.validate(&req); err != nil {
		return model.Notice{}, err
	}

	now := s.now()
	n := model.Notice{
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Insert(ctx, &n); err != nil {
		return model.Notice{}, fmt.Errorf("create notice: %w", err)
	}

	s.publish(socket.NoticeCreatedType, n)
	return n, nil
}

// UpdateNotice replaces title and content. UpdatedAt always moves forward,
// by at least one millisecond, even when the clock has not.
func (s *NoticeService) UpdateNotice(ctx context.Context, id string, req model.NoticeRequest) (model.Notice, error) {
	if err := s.validate(&req); err != nil {
		return model.Notice{}, err
	}

	current, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return model.Notice{}, fmt.Errorf("update notice %s: %w", id, err)
	}
	updatedAt := s.now()
	if !updatedAt.After(current.UpdatedAt) {
		updatedAt = current.UpdatedAt.Add(time.Millisecond)
	}

	n, err := s.Repo.UpdateByID(ctx, id, req.Title, req.Content, updatedAt)
	if err != nil {
		return model.Notice{}, fmt.Errorf("update notice %s: %w", id, err)
	}

	s.publish(socket.NoticeUpdatedType, n)
	return n, nil
}

func (s *NoticeService) DeleteNotice(ctx context.Context, id string) (model.Notice, error) {
	n, err := s.Repo.DeleteByID(ctx, id)
	if err != nil {
		return model.Notice{}, fmt.Errorf("delete notice %s: %w", id, err)
	}

	s.publish(socket.NoticeDeletedType, n)
	return n, nil
}

// Health reports whether the store answers a ping.
func (s *NoticeService) Health(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}

func (s *NoticeService) validate(req *model.NoticeRequest) error {
	req.Normalize()
	err := s.Validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
}

func (s *NoticeService) now() time.Time {
	return s.Now().UTC().Truncate(time.Millisecond)
}

func (s *NoticeService) publish(eventType string, n model.Notice) {
	if s.Events == nil {
		return
	}
	s.Events.PublishNoticeEvent(eventType, n)
}
