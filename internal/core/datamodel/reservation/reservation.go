package reservation

import "time"

type Reservation struct {
	ID                 int64      `gorm:"primaryKey"`
	EquipmentID        int64      `gorm:"column:equipment_id;not null;index"`
	UserID             int64      `gorm:"column:user_id;not null"`
	Title              string     `gorm:"column:title;not null"`
	Kind               string     `gorm:"column:kind;not null;default:booking"`
	StartTime          time.Time  `gorm:"column:start_time;not null"`
	EndTime            time.Time  `gorm:"column:end_time;not null"`
	Status             string     `gorm:"column:status;not null;default:pending"`
	RecurrenceType     string     `gorm:"column:recurrence_type"`
	RecurrenceInterval int        `gorm:"column:recurrence_interval;not null;default:1"`
	RecurrenceEnd      *time.Time `gorm:"column:recurrence_end"`
	DecidedBy          *int64     `gorm:"column:decided_by"`
	DecisionNote       string     `gorm:"column:decision_note"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Reservation) TableName() string {
	return "reservations"
}
