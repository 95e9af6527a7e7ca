package schedule

import (
	"context"
	"net/http"
	"strconv"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/transport"
)

type ServiceAPI interface {
	Calendar(ctx context.Context, actor *coreuser.Identity, q CalendarQuery) ([]Occurrence, error)
	CreateReservation(ctx context.Context, actor *coreuser.Identity, dto CreateReservationDTO) (*Reservation, error)
	GetByID(ctx context.Context, actor *coreuser.Identity, id int64) (*Reservation, error)
	Approve(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error)
	Reject(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error)
	Cancel(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error)
	Complete(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error)
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

// Calendar handles GET /calendar?from=2024-01-01&to=2024-01-31
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		h.HandleServiceError(w, errors.NewValidationFieldError("from", "from must be a date (YYYY-MM-DD)", errors.ErrCodeInvalidDate))
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		h.HandleServiceError(w, errors.NewValidationFieldError("to", "to must be a date (YYYY-MM-DD)", errors.ErrCodeInvalidDate))
		return
	}

	query := CalendarQuery{From: from, To: to}
	if id, ok := queryID(q.Get("equipment_id")); ok {
		query.EquipmentID = &id
	}
	if id, ok := queryID(q.Get("user_id")); ok {
		query.UserID = &id
	}

	occurrences, err := h.Service.Calendar(r.Context(), h.Identity(r), query)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"from":        q.Get("from"),
		"to":          q.Get("to"),
		"occurrences": occurrences,
		"count":       len(occurrences),
	})
}

// CreateReservation handles POST /reservations
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var dto CreateReservationDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	reservation, err := h.Service.CreateReservation(r.Context(), h.Identity(r), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, reservation)
}

// GetReservation handles GET /reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}

	reservation, err := h.Service.GetByID(r.Context(), h.Identity(r), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reservation)
}

// ApproveReservation handles PATCH /reservations/{id}/approve
func (h *Handler) ApproveReservation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Approve)
}

// RejectReservation handles PATCH /reservations/{id}/reject
func (h *Handler) RejectReservation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

// CancelReservation handles PATCH /reservations/{id}/cancel
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Cancel)
}

// CompleteReservation handles PATCH /reservations/{id}/complete
func (h *Handler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Complete)
}

type decision func(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply decision) {
	id, ok := h.PathID(w, r)
	if !ok {
		return
	}
	var dto DecisionDTO
	if r.ContentLength != 0 && !h.DecodeJSON(w, r, &dto) {
		return
	}

	reservation, err := apply(r.Context(), h.Identity(r), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reservation)
}

func queryID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
