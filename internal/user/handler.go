package user

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
	"github.com/frahmantamala/lab-borrowing/pkg/logger"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	Ban(ctx context.Context, actor *coreuser.Identity, userID int64, dto BanDTO) (*User, error)
	Unban(ctx context.Context, actor *coreuser.Identity, userID int64) (*User, error)
	ChangeRole(ctx context.Context, actor *coreuser.Identity, userID int64, dto ChangeRoleDTO) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := h.Identity(r)
	if actor == nil {
		h.HandleServiceError(w, errors.ErrUnauthenticated)
		return
	}

	u, err := h.Service.GetByID(r.Context(), actor.UserID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetByID failed", "user_id", actor.UserID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// BanUser handles PATCH /users/{id}/ban
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}
	var dto BanDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	u, err := h.Service.Ban(r.Context(), h.Identity(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// UnbanUser handles DELETE /users/{id}/ban
func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}

	u, err := h.Service.Unban(r.Context(), h.Identity(r), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ChangeRole handles PATCH /users/{id}/role
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}
	var dto ChangeRoleDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	u, err := h.Service.ChangeRole(r.Context(), h.Identity(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
