package equipment

import "time"

type Equipment struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	SerialNumber string    `gorm:"column:serial_number;uniqueIndex"`
	Category     string    `gorm:"column:category"`
	Location     string    `gorm:"column:location"`
	Stock        int       `gorm:"column:stock;not null;default:0"`
	Status       string    `gorm:"column:status;not null;default:available"`
	Condition    string    `gorm:"column:condition;not null;default:good"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Equipment) TableName() string {
	return "equipment"
}
