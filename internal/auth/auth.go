package auth

import (
	"time"

	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenGenerator issues and verifies signed session credentials.
type TokenGenerator interface {
	GenerateAccessToken(userID int64, role coreuser.Role) (string, error)
	GenerateRefreshToken(userID int64, role coreuser.Role) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTokenTTL() time.Duration
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    int64         `json:"user_id"`
	Role      coreuser.Role `json:"role"`
	TokenType TokenType     `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() *coreuser.Identity {
	return &coreuser.Identity{UserID: c.UserID, Role: c.Role}
}
