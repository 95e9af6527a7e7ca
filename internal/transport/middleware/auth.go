package middleware

import (
	"net/http"

	"github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
	"github.com/frahmantamala/lab-borrowing/pkg/logger"
)

// IdentityResolver turns a bearer credential into an identity.
type IdentityResolver interface {
	ResolveIdentity(credential string) (*coreuser.Identity, error)
}

// Authenticate resolves the bearer token and stores the identity in the request
// context. Any resolution failure is answered with 401.
func Authenticate(resolver IdentityResolver, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.ResolveIdentity(base.ExtractTokenFromHeader(r))
			if err != nil {
				logger.From(r.Context()).Warn("auth middleware: credential rejected", "path", r.URL.Path, "error", err)
				base.HandleServiceError(w, internal.ErrUnauthenticated)
				return
			}

			ctx := internal.ContextWithIdentity(r.Context(), identity)
			ctx = logger.WithIdentity(ctx, identity.UserID, string(identity.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
