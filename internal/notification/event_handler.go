package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/user"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, kind Type, title, message string) (*Notification, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, userID int64) (*user.User, error)
	ListByRoles(ctx context.Context, roles ...coreuser.Role) ([]*user.User, error)
}

type MailQueue interface {
	Enqueue(job EmailJob) error
}

// EventHandler turns domain events into in-app notifications and mail jobs.
type EventHandler struct {
	notifier Notifier
	users    UserDirectory
	mail     MailQueue
	logger   *slog.Logger
}

func NewEventHandler(notifier Notifier, users UserDirectory, mail MailQueue, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{notifier: notifier, users: users, mail: mail, logger: logger}
}

func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeBorrowSubmitted, h.HandleBorrowSubmitted)
	bus.Subscribe(events.EventTypeBorrowApproved, h.HandleBorrowApproved)
	bus.Subscribe(events.EventTypeBorrowRejected, h.HandleBorrowRejected)
	bus.Subscribe(events.EventTypeBorrowReturned, h.HandleBorrowReturned)
	bus.Subscribe(events.EventTypeBorrowReminder, h.HandleBorrowReminder)
	bus.Subscribe(events.EventTypeReservationDecided, h.HandleReservationDecided)
}

// HandleBorrowSubmitted tells every active staff member about the new request.
func (h *EventHandler) HandleBorrowSubmitted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BorrowSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	staff, err := h.users.ListByRoles(ctx, coreuser.StaffRoles...)
	if err != nil {
		return fmt.Errorf("list staff for request %d: %w", e.TransactionID, err)
	}

	subject, body, err := render(TypeBorrowSubmitted, e)
	if err != nil {
		return err
	}

	recipients := make([]string, 0, len(staff))
	for _, member := range staff {
		h.store(ctx, member.ID, TypeBorrowSubmitted, subject, body)
		if member.Email != "" {
			recipients = append(recipients, member.Email)
		}
	}
	h.enqueue(TypeBorrowSubmitted, recipients, subject, body)
	return nil
}

func (h *EventHandler) HandleBorrowApproved(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BorrowApprovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	return h.notifyBorrower(ctx, e.UserID, TypeBorrowApproved, e)
}

func (h *EventHandler) HandleBorrowRejected(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BorrowRejectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	return h.notifyBorrower(ctx, e.UserID, TypeBorrowRejected, e)
}

func (h *EventHandler) HandleBorrowReturned(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BorrowReturnedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	return h.notifyBorrower(ctx, e.UserID, TypeBorrowReturned, e)
}

func (h *EventHandler) HandleBorrowReminder(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BorrowReminderEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	kind := TypeDueSoon
	if e.Overdue {
		kind = TypeOverdue
	}
	return h.notifyBorrower(ctx, e.UserID, kind, e)
}

func (h *EventHandler) HandleReservationDecided(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ReservationDecidedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	return h.notifyBorrower(ctx, e.UserID, TypeReservation, e)
}

func (h *EventHandler) notifyBorrower(ctx context.Context, userID int64, kind Type, data interface{}) error {
	subject, body, err := render(kind, data)
	if err != nil {
		return err
	}

	h.store(ctx, userID, kind, subject, body)

	recipient, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.logger.Warn("no mail for notification, user lookup failed", "user_id", userID, "kind", kind, "error", err)
		return nil
	}
	if recipient.Email != "" {
		h.enqueue(kind, []string{recipient.Email}, subject, body)
	}
	return nil
}

func (h *EventHandler) store(ctx context.Context, userID int64, kind Type, subject, body string) {
	if _, err := h.notifier.Notify(ctx, userID, kind, subject, strings.TrimSpace(body)); err != nil {
		h.logger.Error("failed to store notification", "user_id", userID, "kind", kind, "error", err)
	}
}

func (h *EventHandler) enqueue(kind Type, to []string, subject, body string) {
	if h.mail == nil || len(to) == 0 {
		return
	}
	if err := h.mail.Enqueue(EmailJob{Kind: kind, Message: Message{To: to, Subject: subject, Body: body}}); err != nil {
		h.logger.Warn("mail not queued", "kind", kind, "error", err)
	}
}
