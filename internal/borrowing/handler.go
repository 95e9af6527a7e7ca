package borrowing

import (
	"context"
	"net/http"
	"strconv"

	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
)

type ServiceAPI interface {
	SubmitBorrowRequest(ctx context.Context, actor *coreuser.Identity, dto SubmitBorrowRequestDTO) (*Transaction, error)
	ApproveBorrowRequest(ctx context.Context, actor *coreuser.Identity, requestID int64, dto ApproveBorrowRequestDTO) (*Transaction, error)
	RejectBorrowRequest(ctx context.Context, actor *coreuser.Identity, requestID int64, dto RejectBorrowRequestDTO) (*Transaction, error)
	ConfirmReturn(ctx context.Context, actor *coreuser.Identity, requestID int64, dto ConfirmReturnDTO) (*Transaction, error)
	GetByID(ctx context.Context, actor *coreuser.Identity, id int64) (*Transaction, error)
	List(ctx context.Context, actor *coreuser.Identity, filter ListFilter) ([]*Transaction, error)
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

// SubmitBorrowRequest handles POST /borrowings
func (h *Handler) SubmitBorrowRequest(w http.ResponseWriter, r *http.Request) {
	var dto SubmitBorrowRequestDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if dto.Quantity == 0 {
		dto.Quantity = 1
	}

	tx, err := h.Service.SubmitBorrowRequest(r.Context(), h.Identity(r), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, tx)
}

// ListBorrowRequests handles GET /borrowings
func (h *Handler) ListBorrowRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := transport.Pagination(r)
	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.UserID = &id
		}
	}

	items, err := h.Service.List(r.Context(), h.Identity(r), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"borrowings": items,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetBorrowRequest handles GET /borrowings/{id}
func (h *Handler) GetBorrowRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}

	tx, err := h.Service.GetByID(r.Context(), h.Identity(r), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tx)
}

// ApproveBorrowRequest handles PATCH /borrowings/{id}/approve
func (h *Handler) ApproveBorrowRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}
	var dto ApproveBorrowRequestDTO
	if r.ContentLength != 0 && !h.DecodeJSON(w, r, &dto) {
		return
	}

	tx, err := h.Service.ApproveBorrowRequest(r.Context(), h.Identity(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tx)
}

// RejectBorrowRequest handles PATCH /borrowings/{id}/reject
func (h *Handler) RejectBorrowRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}
	var dto RejectBorrowRequestDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	tx, err := h.Service.RejectBorrowRequest(r.Context(), h.Identity(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tx)
}

// ConfirmReturn handles PATCH /borrowings/{id}/return
func (h *Handler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}
	var dto ConfirmReturnDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	tx, err := h.Service.ConfirmReturn(r.Context(), h.Identity(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tx)
}
