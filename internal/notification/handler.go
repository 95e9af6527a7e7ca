package notification

import (
	"context"
	"net/http"

	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
)

type ServiceAPI interface {
	ListForUser(ctx context.Context, actor *coreuser.Identity, filter ListFilter) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, actor *coreuser.Identity, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListNotifications handles GET /notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.Pagination(r)
	filter := ListFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Limit:      limit,
		Offset:     offset,
	}

	items, unread, err := h.Service.ListForUser(r.Context(), h.Identity(r), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": items,
		"unread":        unread,
		"limit":         limit,
		"offset":        offset,
	})
}

// MarkRead handles PATCH /notifications/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}

	if err := h.Service.MarkRead(r.Context(), h.Identity(r), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
