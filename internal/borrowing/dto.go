package borrowing

import (
	"encoding/json"
	"strings"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/core/common/validation"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
)

const dateLayout = "2006-01-02"

// Date accepts either a plain calendar date or an RFC 3339 timestamp.
type Date struct {
	time.Time
	dateOnly bool
}

// NewDate builds a plain calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), dateOnly: true}
}

// In returns midnight of the date in loc. Plain dates keep their calendar day;
// timestamps are converted first.
func (d Date) In(loc *time.Location) time.Time {
	if d.dateOnly {
		y, m, day := d.Time.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, loc)
	}
	return dateOf(d.Time, loc)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		d.dateOnly = true
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

type SubmitBorrowRequestDTO struct {
	EquipmentID        int64  `json:"equipment_id"`
	ExpectedReturnDate Date   `json:"expected_return_date"`
	Notes              string `json:"notes,omitempty"`
	Purpose            string `json:"purpose,omitempty"`
	Quantity           int    `json:"quantity"`
}

// Validate checks the request shape against today in the service timezone.
func (dto SubmitBorrowRequestDTO) Validate(today time.Time) *errors.AppError {
	v := validation.NewValidator()
	v.Field("equipment_id", dto.EquipmentID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("quantity", dto.Quantity).MinInt(1, errors.ErrCodeInvalidQuantity)
	var expected time.Time
	if !dto.ExpectedReturnDate.IsZero() {
		expected = dto.ExpectedReturnDate.In(today.Location())
	}
	v.Field("expected_return_date", expected).Required().NotBefore(today)
	v.Field("purpose", dto.Purpose).MaxLength(500)
	v.Field("notes", dto.Notes).MaxLength(1000)
	return v.Validate()
}

type ApproveBorrowRequestDTO struct {
	Notes string `json:"notes,omitempty"`
}

type RejectBorrowRequestDTO struct {
	Reason string `json:"reason"`
}

func (dto RejectBorrowRequestDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("reason", strings.TrimSpace(dto.Reason)).Required().MaxLength(500)
	return v.Validate()
}

type ConfirmReturnDTO struct {
	Condition string `json:"condition"`
	Notes     string `json:"notes,omitempty"`
	HasDamage bool   `json:"has_damage"`
}

func (dto ConfirmReturnDTO) Validate() *errors.AppError {
	allowed := make([]string, len(equipment.Conditions))
	for i, c := range equipment.Conditions {
		allowed[i] = string(c)
	}
	v := validation.NewValidator()
	v.Field("condition", dto.Condition).Required().OneOf(errors.ErrCodeInvalidCondition, allowed...)
	v.Field("notes", dto.Notes).MaxLength(1000)
	return v.Validate()
}
