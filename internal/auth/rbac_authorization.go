package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
)

// RBACAuthorization gates routes on the role carried by the resolved identity.
type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(baseHandler *transport.BaseHandler, logger *slog.Logger) *RBACAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &RBACAuthorization{
		BaseHandler: baseHandler,
		logger:      logger,
	}
}

// RequireRoles lets the request through only when the caller holds one of roles.
// A request without an identity is answered with 401, a role mismatch with 403.
func (ra *RBACAuthorization) RequireRoles(roles ...coreuser.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: no identity in context", "path", r.URL.Path)
				ra.HandleServiceError(w, internal.ErrUnauthenticated)
				return
			}

			if !identity.HasAnyRole(roles...) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient role",
					"user_id", identity.UserID,
					"role", identity.Role,
					"required_roles", roles)
				ra.HandleServiceError(w, internal.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireStaff() func(http.Handler) http.Handler {
	return ra.RequireRoles(coreuser.StaffRoles...)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireRoles(coreuser.RoleAdmin)
}
