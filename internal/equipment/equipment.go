package equipment

import (
	"time"

	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBorrowed    Status = "borrowed"
	StatusMaintenance Status = "maintenance"
	StatusLost        Status = "lost"
)

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

var Conditions = []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// DeriveStatus is the one rule for status after a stock change.
func DeriveStatus(stock int) Status {
	if stock > 0 {
		return StatusAvailable
	}
	return StatusBorrowed
}

type Equipment struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SerialNumber string    `json:"serial_number"`
	Category     string    `json:"category,omitempty"`
	Location     string    `json:"location,omitempty"`
	Stock        int       `json:"stock"`
	Status       Status    `json:"status"`
	Condition    Condition `json:"condition"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InCirculation is false for items pulled out for maintenance or reported lost.
func (e *Equipment) InCirculation() bool {
	return e.Status != StatusMaintenance && e.Status != StatusLost
}

type ListFilter struct {
	Status   Status
	Category string
	Search   string
}

func ToDataModel(e *Equipment) *equipmentDatamodel.Equipment {
	return &equipmentDatamodel.Equipment{
		ID:           e.ID,
		Name:         e.Name,
		SerialNumber: e.SerialNumber,
		Category:     e.Category,
		Location:     e.Location,
		Stock:        e.Stock,
		Status:       string(e.Status),
		Condition:    string(e.Condition),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func FromDataModel(e *equipmentDatamodel.Equipment) *Equipment {
	return &Equipment{
		ID:           e.ID,
		Name:         e.Name,
		SerialNumber: e.SerialNumber,
		Category:     e.Category,
		Location:     e.Location,
		Stock:        e.Stock,
		Status:       Status(e.Status),
		Condition:    Condition(e.Condition),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
