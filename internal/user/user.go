package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
)

type User struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Role         coreuser.Role `json:"role"`
	StudentID    string        `json:"student_id,omitempty"`
	Department   string        `json:"department,omitempty"`
	BannedUntil  *time.Time    `json:"banned_until,omitempty"`
	IsActive     bool          `json:"is_active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsBanned reports whether a ban is still running at now. A ban ending exactly at now has lapsed.
func (u *User) IsBanned(now time.Time) bool {
	return u.BannedUntil != nil && u.BannedUntil.After(now)
}

func (u *User) Identity() *coreuser.Identity {
	return &coreuser.Identity{UserID: u.ID, Role: u.Role}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		StudentID:    u.StudentID,
		Department:   u.Department,
		BannedUntil:  u.BannedUntil,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         coreuser.Role(u.Role),
		StudentID:    u.StudentID,
		Department:   u.Department,
		BannedUntil:  u.BannedUntil,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type BanDTO struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason,omitempty"`
}

type ChangeRoleDTO struct {
	Role coreuser.Role `json:"role"`
}
