package schedule

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/core/common/validation"
)

type CreateReservationDTO struct {
	EquipmentID        int64          `json:"equipment_id"`
	Title              string         `json:"title"`
	Kind               Kind           `json:"kind"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	RecurrenceType     RecurrenceType `json:"recurrence_type,omitempty"`
	RecurrenceInterval int            `json:"recurrence_interval,omitempty"`
	RecurrenceEnd      *time.Time     `json:"recurrence_end,omitempty"`
}

func (dto CreateReservationDTO) Validate(now time.Time) *errors.AppError {
	v := validation.NewValidator()
	v.Field("equipment_id", dto.EquipmentID).Required().MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("title", strings.TrimSpace(dto.Title)).Required().MaxLength(200)
	v.Field("kind", string(dto.Kind)).OneOf(errors.ErrCodeValidationFailed, string(KindBooking), string(KindMaintenance))
	v.Field("start_time", dto.StartTime).Required().NotBefore(now)
	v.Field("end_time", dto.EndTime).Required().Custom(func(interface{}) *errors.AppError {
		if !dto.StartTime.IsZero() && !dto.EndTime.IsZero() && !dto.EndTime.After(dto.StartTime) {
			return errors.NewValidationFieldError("end_time", "end_time must be after start_time", errors.ErrCodeInvalidWindow)
		}
		return nil
	})
	v.Field("recurrence_type", string(dto.RecurrenceType)).OneOf(errors.ErrCodeValidationFailed,
		string(RecurrenceDaily), string(RecurrenceWeekly), string(RecurrenceMonthly), string(RecurrenceYearly))
	v.Field("recurrence_interval", dto.RecurrenceInterval).MinInt(0, errors.ErrCodeValidationFailed).MaxInt(365, errors.ErrCodeValidationFailed)
	v.Field("recurrence_end", dto.RecurrenceEnd).Custom(func(interface{}) *errors.AppError {
		if dto.RecurrenceEnd != nil && dto.RecurrenceEnd.Before(dto.StartTime) {
			return errors.NewValidationFieldError("recurrence_end", "recurrence_end must not be before start_time", errors.ErrCodeInvalidWindow)
		}
		return nil
	})
	return v.Validate()
}

type DecisionDTO struct {
	Note string `json:"note,omitempty"`
}

type CalendarQuery struct {
	From        time.Time
	To          time.Time
	EquipmentID *int64
	UserID      *int64
}

func (q CalendarQuery) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("from", q.From).Required()
	v.Field("to", q.To).Required().Custom(func(interface{}) *errors.AppError {
		if !q.From.IsZero() && q.To.Before(q.From) {
			return errors.NewValidationFieldError("to", "to must not be before from", errors.ErrCodeInvalidWindow)
		}
		if !q.From.IsZero() && q.To.Sub(q.From) > 366*24*time.Hour {
			return errors.NewValidationFieldError("to", "calendar range is limited to one year", errors.ErrCodeInvalidWindow)
		}
		return nil
	})
	return v.Validate()
}
