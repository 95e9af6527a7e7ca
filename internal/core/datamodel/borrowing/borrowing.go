package borrowing

import "time"

type Transaction struct {
	ID                 int64      `gorm:"primaryKey"`
	UserID             int64      `gorm:"column:user_id;not null;index"`
	EquipmentID        int64      `gorm:"column:equipment_id;not null;index"`
	Quantity           int        `gorm:"column:quantity;not null"`
	BorrowDate         time.Time  `gorm:"column:borrow_date;not null"`
	ExpectedReturnDate time.Time  `gorm:"column:expected_return_date;not null"`
	ActualReturnDate   *time.Time `gorm:"column:actual_return_date"`
	Status             string     `gorm:"column:status;not null;default:pending;index"`
	Purpose            string     `gorm:"column:purpose"`
	Notes              string     `gorm:"column:notes"`
	AdminNotes         string     `gorm:"column:admin_notes"`
	RejectedReason     string     `gorm:"column:rejected_reason"`
	ApprovedBy         *int64     `gorm:"column:approved_by"`
	ApprovedAt         *time.Time `gorm:"column:approved_at"`
	ReturnCondition    string     `gorm:"column:return_condition"`
	ReturnNotes        string     `gorm:"column:return_notes"`
	PenaltyAmount      int64      `gorm:"column:penalty_amount;not null;default:0"`
	PenaltyPaid        bool       `gorm:"column:penalty_paid;not null;default:false"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "borrowing_transactions"
}
