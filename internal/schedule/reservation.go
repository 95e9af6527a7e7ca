package schedule

import (
	"time"

	reservationDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/reservation"
)

type Kind string

const (
	KindBooking     Kind = "booking"
	KindMaintenance Kind = "maintenance"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusCompleted},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Holding reports whether the reservation still blocks its window.
func (s Status) Holding() bool {
	return s == StatusPending || s == StatusApproved
}

// Visible statuses are shown on the calendar.
var Visible = []Status{StatusPending, StatusApproved, StatusCompleted}

type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = ""
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

type Reservation struct {
	ID                 int64          `json:"id"`
	EquipmentID        int64          `json:"equipment_id"`
	UserID             int64          `json:"user_id"`
	Title              string         `json:"title"`
	Kind               Kind           `json:"kind"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	Status             Status         `json:"status"`
	RecurrenceType     RecurrenceType `json:"recurrence_type,omitempty"`
	RecurrenceInterval int            `json:"recurrence_interval"`
	RecurrenceEnd      *time.Time     `json:"recurrence_end,omitempty"`
	DecidedBy          *int64         `json:"decided_by,omitempty"`
	DecisionNote       string         `json:"decision_note,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (r *Reservation) Recurring() bool {
	return r.RecurrenceType != RecurrenceNone
}

// Occurrence is one concrete window of a reservation.
type Occurrence struct {
	ReservationID int64     `json:"reservation_id"`
	EquipmentID   int64     `json:"equipment_id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Kind          Kind      `json:"kind"`
	Status        Status    `json:"status"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Recurring     bool      `json:"recurring"`
}

func (o Occurrence) Overlaps(other Occurrence) bool {
	return o.Start.Before(other.End) && other.Start.Before(o.End)
}

type RangeFilter struct {
	EquipmentID *int64
	UserID      *int64
	From        time.Time
	To          time.Time
	Statuses    []Status
	ExcludeID   int64
}

type TransitionCommand struct {
	ReservationID int64
	From          Status
	To            Status
	DecidedBy     int64
	Note          string
}

func ToDataModel(r *Reservation) *reservationDatamodel.Reservation {
	return &reservationDatamodel.Reservation{
		ID:                 r.ID,
		EquipmentID:        r.EquipmentID,
		UserID:             r.UserID,
		Title:              r.Title,
		Kind:               string(r.Kind),
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		Status:             string(r.Status),
		RecurrenceType:     string(r.RecurrenceType),
		RecurrenceInterval: r.RecurrenceInterval,
		RecurrenceEnd:      r.RecurrenceEnd,
		DecidedBy:          r.DecidedBy,
		DecisionNote:       r.DecisionNote,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func FromDataModel(m *reservationDatamodel.Reservation) *Reservation {
	return &Reservation{
		ID:                 m.ID,
		EquipmentID:        m.EquipmentID,
		UserID:             m.UserID,
		Title:              m.Title,
		Kind:               Kind(m.Kind),
		StartTime:          m.StartTime,
		EndTime:            m.EndTime,
		Status:             Status(m.Status),
		RecurrenceType:     RecurrenceType(m.RecurrenceType),
		RecurrenceInterval: m.RecurrenceInterval,
		RecurrenceEnd:      m.RecurrenceEnd,
		DecidedBy:          m.DecidedBy,
		DecisionNote:       m.DecisionNote,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
