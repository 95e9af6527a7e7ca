package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, userID int64) (*user.User, error)
}

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if appErr := dto.Validate(); appErr != nil {
		return AuthTokens{}, appErr
	}

	u, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(dto.Email))
	if err != nil {
		if stdErrors.Is(err, errors.ErrUserNotFound) {
			return AuthTokens{}, errors.ErrInvalidCredentials
		}
		return AuthTokens{}, errors.NewInternalError("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Info("login rejected", "user_id", u.ID, "reason", "password mismatch")
		return AuthTokens{}, errors.ErrInvalidCredentials
	}
	if !u.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}

	return s.issue(u.ID, u.Role)
}

// RefreshTokens exchanges a refresh token for a new pair. The role is read
// again from the store so a role change takes effect on the next refresh.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if stdErrors.Is(err, errors.ErrUserNotFound) {
			return AuthTokens{}, errors.ErrInvalidToken
		}
		return AuthTokens{}, errors.NewInternalError("failed to load user", err)
	}
	if !u.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}

	return s.issue(u.ID, u.Role)
}

// ResolveIdentity turns a bearer credential into the caller's identity.
// Every failure, whatever its cause, is reported as ErrUnauthenticated.
func (s *Service) ResolveIdentity(credential string) (*coreuser.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, errors.ErrUnauthenticated
	}

	claims, err := s.tokenGenerator.ValidateAccessToken(credential)
	if err != nil {
		return nil, errors.ErrUnauthenticated.WithCause(err)
	}
	if !claims.Role.Valid() {
		return nil, errors.ErrUnauthenticated
	}
	return claims.Identity(), nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) issue(userID int64, role coreuser.Role) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID, role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue access token", err)
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGenerator.AccessTokenTTL().Seconds()),
	}, nil
}
