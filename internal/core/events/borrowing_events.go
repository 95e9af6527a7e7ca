package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeBorrowSubmitted    = "borrowing.submitted"
	EventTypeBorrowApproved     = "borrowing.approved"
	EventTypeBorrowRejected     = "borrowing.rejected"
	EventTypeBorrowReturned     = "borrowing.returned"
	EventTypeBorrowReminder     = "borrowing.reminder"
	EventTypeReservationDecided = "reservation.decided"
)

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type BorrowSubmittedEvent struct {
	BaseEvent
	TransactionID      int64     `json:"transaction_id"`
	UserID             int64     `json:"user_id"`
	EquipmentID        int64     `json:"equipment_id"`
	EquipmentName      string    `json:"equipment_name"`
	Quantity           int       `json:"quantity"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
}

func NewBorrowSubmittedEvent(transactionID, userID, equipmentID int64, equipmentName string, quantity int, expectedReturn time.Time) *BorrowSubmittedEvent {
	return &BorrowSubmittedEvent{
		BaseEvent: newBaseEvent(EventTypeBorrowSubmitted, map[string]interface{}{
			"transaction_id": transactionID,
			"user_id":        userID,
			"equipment_id":   equipmentID,
			"quantity":       quantity,
		}),
		TransactionID:      transactionID,
		UserID:             userID,
		EquipmentID:        equipmentID,
		EquipmentName:      equipmentName,
		Quantity:           quantity,
		ExpectedReturnDate: expectedReturn,
	}
}

type BorrowApprovedEvent struct {
	BaseEvent
	TransactionID      int64     `json:"transaction_id"`
	UserID             int64     `json:"user_id"`
	EquipmentID        int64     `json:"equipment_id"`
	EquipmentName      string    `json:"equipment_name"`
	Quantity           int       `json:"quantity"`
	RemainingStock     int       `json:"remaining_stock"`
	ApprovedBy         int64     `json:"approved_by"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
}

func NewBorrowApprovedEvent(transactionID, userID, equipmentID int64, equipmentName string, quantity, remaining int, approvedBy int64, expectedReturn time.Time) *BorrowApprovedEvent {
	return &BorrowApprovedEvent{
		BaseEvent: newBaseEvent(EventTypeBorrowApproved, map[string]interface{}{
			"transaction_id":  transactionID,
			"user_id":         userID,
			"equipment_id":    equipmentID,
			"quantity":        quantity,
			"remaining_stock": remaining,
			"approved_by":     approvedBy,
		}),
		TransactionID:      transactionID,
		UserID:             userID,
		EquipmentID:        equipmentID,
		EquipmentName:      equipmentName,
		Quantity:           quantity,
		RemainingStock:     remaining,
		ApprovedBy:         approvedBy,
		ExpectedReturnDate: expectedReturn,
	}
}

type BorrowRejectedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	UserID        int64  `json:"user_id"`
	EquipmentName string `json:"equipment_name"`
	Reason        string `json:"reason"`
}

func NewBorrowRejectedEvent(transactionID, userID int64, equipmentName, reason string) *BorrowRejectedEvent {
	return &BorrowRejectedEvent{
		BaseEvent: newBaseEvent(EventTypeBorrowRejected, map[string]interface{}{
			"transaction_id": transactionID,
			"user_id":        userID,
			"reason":         reason,
		}),
		TransactionID: transactionID,
		UserID:        userID,
		EquipmentName: equipmentName,
		Reason:        reason,
	}
}

type BorrowReturnedEvent struct {
	BaseEvent
	TransactionID    int64  `json:"transaction_id"`
	UserID           int64  `json:"user_id"`
	EquipmentID      int64  `json:"equipment_id"`
	EquipmentName    string `json:"equipment_name"`
	Quantity         int    `json:"quantity"`
	PenaltyAmount    int64  `json:"penalty_amount"`
	PenaltyFormatted string `json:"penalty_formatted"`
}

func NewBorrowReturnedEvent(transactionID, userID, equipmentID int64, equipmentName string, quantity int, penalty int64, penaltyFormatted string) *BorrowReturnedEvent {
	return &BorrowReturnedEvent{
		BaseEvent: newBaseEvent(EventTypeBorrowReturned, map[string]interface{}{
			"transaction_id": transactionID,
			"user_id":        userID,
			"equipment_id":   equipmentID,
			"quantity":       quantity,
			"penalty_amount": penalty,
		}),
		TransactionID:    transactionID,
		UserID:           userID,
		EquipmentID:      equipmentID,
		EquipmentName:    equipmentName,
		Quantity:         quantity,
		PenaltyAmount:    penalty,
		PenaltyFormatted: penaltyFormatted,
	}
}

// BorrowReminderEvent is raised by the reminder scan for loans that are due soon or overdue.
type BorrowReminderEvent struct {
	BaseEvent
	TransactionID      int64     `json:"transaction_id"`
	UserID             int64     `json:"user_id"`
	EquipmentName      string    `json:"equipment_name"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
	Overdue            bool      `json:"overdue"`
	DaysLate           int       `json:"days_late"`
	PenaltyFormatted   string    `json:"penalty_formatted"`
}

func NewBorrowReminderEvent(transactionID, userID int64, equipmentName string, expectedReturn time.Time, overdue bool, daysLate int, penaltyFormatted string) *BorrowReminderEvent {
	return &BorrowReminderEvent{
		BaseEvent: newBaseEvent(EventTypeBorrowReminder, map[string]interface{}{
			"transaction_id": transactionID,
			"user_id":        userID,
			"overdue":        overdue,
			"days_late":      daysLate,
		}),
		TransactionID:      transactionID,
		UserID:             userID,
		EquipmentName:      equipmentName,
		ExpectedReturnDate: expectedReturn,
		Overdue:            overdue,
		DaysLate:           daysLate,
		PenaltyFormatted:   penaltyFormatted,
	}
}

type ReservationDecidedEvent struct {
	BaseEvent
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	Note          string `json:"note"`
}

func NewReservationDecidedEvent(reservationID, userID int64, title, status, note string) *ReservationDecidedEvent {
	return &ReservationDecidedEvent{
		BaseEvent: newBaseEvent(EventTypeReservationDecided, map[string]interface{}{
			"reservation_id": reservationID,
			"user_id":        userID,
			"status":         status,
		}),
		ReservationID: reservationID,
		UserID:        userID,
		Title:         title,
		Status:        status,
		Note:          note,
	}
}
