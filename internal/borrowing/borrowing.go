package borrowing

import (
	"time"

	borrowingDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/borrowing"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	StatusReturned Status = "returned"

	// StatusOverdue is never stored. Readers see it for active loans past their due date.
	StatusOverdue Status = "overdue"
)

// transitions lists every legal move. Rejected and returned have none.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusRejected},
	StatusActive:  {StatusReturned},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Open statuses count against the borrower's item limit.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusActive
}

type Transaction struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	EquipmentID        int64      `json:"equipment_id"`
	Quantity           int        `json:"quantity"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	Status             Status     `json:"status"`
	DisplayStatus      Status     `json:"display_status"`
	Purpose            string     `json:"purpose,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	AdminNotes         string     `json:"admin_notes,omitempty"`
	RejectedReason     string     `json:"rejected_reason,omitempty"`
	ApprovedBy         *int64     `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	ReturnCondition    string     `json:"return_condition,omitempty"`
	ReturnNotes        string     `json:"return_notes,omitempty"`
	PenaltyAmount      int64      `json:"penalty_amount"`
	PenaltyPaid        bool       `json:"penalty_paid"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// StatusOn presents an active loan whose due date is before today as overdue.
func (t *Transaction) StatusOn(today time.Time) Status {
	if t.Status == StatusActive && dateOf(t.ExpectedReturnDate, today.Location()).Before(dateOf(today, today.Location())) {
		return StatusOverdue
	}
	return t.Status
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func ToDataModel(t *Transaction) *borrowingDatamodel.Transaction {
	return &borrowingDatamodel.Transaction{
		ID:                 t.ID,
		UserID:             t.UserID,
		EquipmentID:        t.EquipmentID,
		Quantity:           t.Quantity,
		BorrowDate:         t.BorrowDate,
		ExpectedReturnDate: t.ExpectedReturnDate,
		ActualReturnDate:   t.ActualReturnDate,
		Status:             string(t.Status),
		Purpose:            t.Purpose,
		Notes:              t.Notes,
		AdminNotes:         t.AdminNotes,
		RejectedReason:     t.RejectedReason,
		ApprovedBy:         t.ApprovedBy,
		ApprovedAt:         t.ApprovedAt,
		ReturnCondition:    t.ReturnCondition,
		ReturnNotes:        t.ReturnNotes,
		PenaltyAmount:      t.PenaltyAmount,
		PenaltyPaid:        t.PenaltyPaid,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func FromDataModel(t *borrowingDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:                 t.ID,
		UserID:             t.UserID,
		EquipmentID:        t.EquipmentID,
		Quantity:           t.Quantity,
		BorrowDate:         t.BorrowDate,
		ExpectedReturnDate: t.ExpectedReturnDate,
		ActualReturnDate:   t.ActualReturnDate,
		Status:             Status(t.Status),
		DisplayStatus:      Status(t.Status),
		Purpose:            t.Purpose,
		Notes:              t.Notes,
		AdminNotes:         t.AdminNotes,
		RejectedReason:     t.RejectedReason,
		ApprovedBy:         t.ApprovedBy,
		ApprovedAt:         t.ApprovedAt,
		ReturnCondition:    t.ReturnCondition,
		ReturnNotes:        t.ReturnNotes,
		PenaltyAmount:      t.PenaltyAmount,
		PenaltyPaid:        t.PenaltyPaid,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func FromDataModelSlice(models []borrowingDatamodel.Transaction) []*Transaction {
	result := make([]*Transaction, len(models))
	for i := range models {
		result[i] = FromDataModel(&models[i])
	}
	return result
}

// ApproveCommand carries everything the store needs to activate a request and
// take its units out of stock in one unit of work.
type ApproveCommand struct {
	TransactionID int64
	EquipmentID   int64
	Quantity      int
	ApprovedBy    int64
	ApprovedAt    time.Time
	Notes         string
}

type RejectCommand struct {
	TransactionID int64
	RejectedBy    int64
	RejectedAt    time.Time
	Reason        string
}

type ReturnCommand struct {
	TransactionID    int64
	EquipmentID      int64
	Quantity         int
	ActualReturnDate time.Time
	Condition        string
	Notes            string
	// DamagedCondition, when set, overwrites the equipment condition.
	DamagedCondition string
	PenaltyAmount    int64
}

type ListFilter struct {
	UserID        *int64
	Status        Status
	OverdueBefore *time.Time
	Limit         int
	Offset        int
}
