package notification

import (
	"time"

	notificationDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/notification"
)

type Type string

const (
	TypeBorrowSubmitted Type = "borrow_submitted"
	TypeBorrowApproved  Type = "borrow_approved"
	TypeBorrowRejected  Type = "borrow_rejected"
	TypeBorrowReturned  Type = "borrow_returned"
	TypeDueSoon         Type = "due_soon"
	TypeOverdue         Type = "overdue"
	TypeReservation     Type = "reservation"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

func ToDataModel(n *Notification) *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func FromDataModel(m *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Message:   m.Message,
		Type:      Type(m.Type),
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}
