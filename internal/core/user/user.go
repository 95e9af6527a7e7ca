package user

// Role is the access level carried in a session credential.
type Role string

const (
	RoleStudent  Role = "mahasiswa"
	RoleLecturer Role = "dosen"
	RoleLabStaff Role = "lab_staff"
	RoleAdmin    Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleLecturer, RoleLabStaff, RoleAdmin}

// StaffRoles may approve, reject and confirm returns.
var StaffRoles = []Role{RoleAdmin, RoleLabStaff}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLabStaff
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is the resolved caller of an operation.
type Identity struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

func (i *Identity) IsStaff() bool {
	return i != nil && i.Role.IsStaff()
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.IsAdmin()
}

// HasAnyRole reports whether the identity holds one of roles.
func (i *Identity) HasAnyRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
