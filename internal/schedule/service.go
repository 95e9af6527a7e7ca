package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
)

// conflictHorizon bounds the conflict check of an open-ended series.
const conflictHorizon = 365 * 24 * time.Hour

// conflictLookback widens the candidate query so series whose last step
// began before the window but runs into it are still loaded.
const conflictLookback = 31 * 24 * time.Hour

type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id int64) (*Reservation, error)
	// ListInRange returns reservations that may have an occurrence in the
	// filter range: one-offs whose window touches it and series that started
	// before its end and have not finished before its start.
	ListInRange(ctx context.Context, filter RangeFilter) ([]*Reservation, error)
	Transition(ctx context.Context, cmd TransitionCommand) (*Reservation, error)
}

type EquipmentReader interface {
	GetByID(ctx context.Context, id int64) (*equipment.Equipment, error)
}

type Service struct {
	repo      Repository
	equipment EquipmentReader
	publisher events.Publisher
	location  *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, equipmentReader EquipmentReader, publisher events.Publisher, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		equipment: equipmentReader,
		publisher: publisher,
		location:  loc,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Calendar lists every occurrence in the day range, recurring series expanded.
func (s *Service) Calendar(ctx context.Context, actor *coreuser.Identity, q CalendarQuery) ([]Occurrence, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	if appErr := q.Validate(); appErr != nil {
		return nil, appErr
	}

	from, to := StartOfDay(q.From, s.location), EndOfDay(q.To, s.location)
	reservations, err := s.repo.ListInRange(ctx, RangeFilter{
		EquipmentID: q.EquipmentID,
		UserID:      q.UserID,
		From:        from,
		To:          to,
		Statuses:    Visible,
	})
	if err != nil {
		s.logger.Error("failed to load reservations", "error", err)
		return nil, errors.NewInternalError("failed to load calendar", err)
	}

	var out []Occurrence
	for _, r := range reservations {
		out = append(out, Expand(r, from, to, s.location)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CreateReservation books a window on one piece of equipment. Staff-created
// maintenance windows are approved immediately; bookings wait for review.
func (s *Service) CreateReservation(ctx context.Context, actor *coreuser.Identity, dto CreateReservationDTO) (*Reservation, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	if dto.Kind == "" {
		dto.Kind = KindBooking
	}
	if appErr := dto.Validate(s.now().In(s.location)); appErr != nil {
		return nil, appErr
	}
	if dto.Kind == KindMaintenance && !actor.IsStaff() {
		return nil, errors.ErrForbidden.WithMessage("only lab staff can schedule maintenance")
	}

	item, err := s.equipment.GetByID(ctx, dto.EquipmentID)
	if err != nil {
		return nil, err
	}

	r := &Reservation{
		EquipmentID:        item.ID,
		UserID:             actor.UserID,
		Title:              strings.TrimSpace(dto.Title),
		Kind:               dto.Kind,
		StartTime:          dto.StartTime,
		EndTime:            dto.EndTime,
		Status:             StatusPending,
		RecurrenceType:     dto.RecurrenceType,
		RecurrenceInterval: dto.RecurrenceInterval,
		RecurrenceEnd:      dto.RecurrenceEnd,
	}
	if r.RecurrenceInterval < 1 {
		r.RecurrenceInterval = 1
	}
	if r.Kind == KindMaintenance {
		r.Status = StatusApproved
		decidedBy := actor.UserID
		r.DecidedBy = &decidedBy
	}

	if err := s.checkConflicts(ctx, r); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("failed to create reservation", "error", err, "equipment_id", r.EquipmentID)
		return nil, errors.NewInternalError("failed to create reservation", err)
	}

	s.logger.Info("reservation created",
		"reservation_id", r.ID,
		"equipment_id", r.EquipmentID,
		"user_id", r.UserID,
		"kind", r.Kind,
		"recurrence", r.RecurrenceType)
	return r, nil
}

// GetByID is open to the owner and to staff.
func (s *Service) GetByID(ctx context.Context, actor *coreuser.Identity, id int64) (*Reservation, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.UserID && !actor.IsStaff() {
		return nil, errors.ErrForbidden
	}
	return r, nil
}

func (s *Service) Approve(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id, StatusApproved)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, current); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, current, StatusApproved, dto.Note, true)
}

func (s *Service) Reject(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id, StatusRejected)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, current, StatusRejected, dto.Note, true)
}

// Cancel is open to the owner and to staff.
func (s *Service) Cancel(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	current, err := s.load(ctx, id, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if current.UserID != actor.UserID && !actor.IsStaff() {
		return nil, errors.ErrForbidden
	}
	return s.transition(ctx, actor, current, StatusCancelled, dto.Note, current.UserID != actor.UserID)
}

func (s *Service) Complete(ctx context.Context, actor *coreuser.Identity, id int64, dto DecisionDTO) (*Reservation, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id, StatusCompleted)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, current, StatusCompleted, dto.Note, false)
}

func (s *Service) load(ctx context.Context, id int64, next Status) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, errors.ErrInvalidReservationStatus.WithMessage(
			fmt.Sprintf("reservation %d is %s and cannot become %s", current.ID, current.Status, next))
	}
	return current, nil
}

func (s *Service) transition(ctx context.Context, actor *coreuser.Identity, current *Reservation, next Status, note string, notify bool) (*Reservation, error) {
	updated, err := s.repo.Transition(ctx, TransitionCommand{
		ReservationID: current.ID,
		From:          current.Status,
		To:            next,
		DecidedBy:     actor.UserID,
		Note:          strings.TrimSpace(note),
	})
	if err != nil {
		s.logger.Warn("reservation transition failed", "error", err, "reservation_id", current.ID, "to", next)
		return nil, err
	}

	s.logger.Info("reservation updated", "reservation_id", updated.ID, "status", updated.Status, "by", actor.UserID)

	if notify && s.publisher != nil {
		event := events.NewReservationDecidedEvent(updated.ID, updated.UserID, updated.Title, string(updated.Status), updated.DecisionNote)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
		}
	}
	return updated, nil
}

// checkConflicts refuses r when any of its occurrences overlaps an occurrence
// of another pending or approved reservation on the same equipment.
func (s *Service) checkConflicts(ctx context.Context, r *Reservation) error {
	from := StartOfDay(r.StartTime, s.location)
	to := EndOfDay(r.EndTime, s.location)
	if r.Recurring() {
		to = EndOfDay(r.StartTime.Add(conflictHorizon), s.location)
		if r.RecurrenceEnd != nil {
			to = EndOfDay(*r.RecurrenceEnd, s.location)
		}
	}

	equipmentID := r.EquipmentID
	others, err := s.repo.ListInRange(ctx, RangeFilter{
		EquipmentID: &equipmentID,
		From:        from.Add(-conflictLookback),
		To:          to,
		Statuses:    []Status{StatusPending, StatusApproved},
		ExcludeID:   r.ID,
	})
	if err != nil {
		s.logger.Error("failed to load reservations for conflict check", "error", err)
		return errors.NewInternalError("failed to check reservation conflicts", err)
	}
	if len(others) == 0 {
		return nil
	}

	candidate := Expand(r, from, to, s.location)
	for _, other := range others {
		for _, theirs := range ExpandOverlapping(other, from, to, s.location) {
			for _, ours := range candidate {
				if ours.Overlaps(theirs) {
					return errors.ErrReservationConflict.WithMessage(fmt.Sprintf(
						"equipment %d is already reserved by %q from %s to %s",
						r.EquipmentID, other.Title,
						theirs.Start.In(s.location).Format("2006-01-02 15:04"),
						theirs.End.In(s.location).Format("2006-01-02 15:04")))
				}
			}
		}
	}
	return nil
}

func requireStaff(actor *coreuser.Identity) error {
	if actor == nil {
		return errors.ErrUnauthenticated
	}
	if !actor.IsStaff() {
		return errors.ErrForbidden
	}
	return nil
}
