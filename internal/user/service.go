package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRoles(ctx context.Context, roles []coreuser.Role) ([]*User, error)
	Create(ctx context.Context, u *User) error
	UpdateBannedUntil(ctx context.Context, userID int64, until *time.Time) error
	UpdateRole(ctx context.Context, userID int64, role coreuser.Role) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for ban checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

// ListByRoles is used for the staff email fan-out.
func (s *Service) ListByRoles(ctx context.Context, roles ...coreuser.Role) ([]*User, error) {
	users, err := s.repo.ListByRoles(ctx, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return users, nil
}

func (s *Service) Ban(ctx context.Context, actor *coreuser.Identity, userID int64, dto BanDTO) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if dto.Until.IsZero() || !dto.Until.After(s.now()) {
		return nil, errors.NewValidationFieldError("until", "ban end must be in the future", errors.ErrCodeInvalidDate)
	}
	if actor.UserID == userID {
		return nil, errors.NewValidationError("admins cannot ban themselves", errors.ErrCodeValidationFailed)
	}
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	until := dto.Until
	if err := s.repo.UpdateBannedUntil(ctx, userID, &until); err != nil {
		s.logger.Error("failed to ban user", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to ban user", err)
	}

	s.logger.Info("user banned", "user_id", userID, "until", until, "by", actor.UserID, "reason", dto.Reason)
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) Unban(ctx context.Context, actor *coreuser.Identity, userID int64) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBannedUntil(ctx, userID, nil); err != nil {
		s.logger.Error("failed to unban user", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to unban user", err)
	}

	s.logger.Info("user unbanned", "user_id", userID, "by", actor.UserID)
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) ChangeRole(ctx context.Context, actor *coreuser.Identity, userID int64, dto ChangeRoleDTO) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !dto.Role.Valid() {
		return nil, errors.NewValidationFieldError("role", fmt.Sprintf("unknown role %q", dto.Role), errors.ErrCodeInvalidRole)
	}
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRole(ctx, userID, dto.Role); err != nil {
		s.logger.Error("failed to change role", "error", err, "user_id", userID)
		return nil, errors.NewInternalError("failed to change role", err)
	}

	s.logger.Info("user role changed", "user_id", userID, "role", dto.Role, "by", actor.UserID)
	return s.repo.GetByID(ctx, userID)
}

func requireAdmin(actor *coreuser.Identity) error {
	if actor == nil {
		return errors.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return errors.ErrForbidden
	}
	return nil
}
