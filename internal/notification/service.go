package notification

import (
	"context"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID int64, filter ListFilter) ([]*Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Notify stores an in-app notification for userID.
func (s *Service) Notify(ctx context.Context, userID int64, kind Type, title, message string) (*Notification, error) {
	n := &Notification{
		UserID:  userID,
		Type:    kind,
		Title:   strings.TrimSpace(title),
		Message: strings.TrimSpace(message),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to store notification", "error", err, "user_id", userID, "type", kind)
		return nil, errors.NewInternalError("failed to store notification", err)
	}
	return n, nil
}

func (s *Service) ListForUser(ctx context.Context, actor *coreuser.Identity, filter ListFilter) ([]*Notification, int64, error) {
	if actor == nil {
		return nil, 0, errors.ErrUnauthenticated
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, err := s.repo.ListByUser(ctx, actor.UserID, filter)
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", actor.UserID)
		return nil, 0, errors.NewInternalError("failed to list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", actor.UserID)
		return nil, 0, errors.NewInternalError("failed to list notifications", err)
	}
	return items, unread, nil
}

// MarkRead flags one of the caller's own notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor *coreuser.Identity, id int64) error {
	if actor == nil {
		return errors.ErrUnauthenticated
	}
	return s.repo.MarkRead(ctx, id, actor.UserID)
}
