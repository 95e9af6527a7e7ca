package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	reservationDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/reservation"
	"github.com/frahmantamala/lab-borrowing/internal/schedule"
	"gorm.io/gorm"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, res *schedule.Reservation) error {
	model := schedule.ToDataModel(res)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	res.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*schedule.Reservation, error) {
	return getByID(r.db.WithContext(ctx), id)
}

func (r *ReservationRepository) ListInRange(ctx context.Context, filter schedule.RangeFilter) ([]*schedule.Reservation, error) {
	query := r.db.WithContext(ctx).Model(&reservationDatamodel.Reservation{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.EquipmentID != nil {
		query = query.Where("equipment_id = ?", *filter.EquipmentID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ExcludeID > 0 {
		query = query.Where("id <> ?", filter.ExcludeID)
	}
	query = query.
		Where("start_time <= ?", filter.To).
		Where("((COALESCE(recurrence_type, '') = '' AND end_time >= ?) OR (COALESCE(recurrence_type, '') <> '' AND (recurrence_end IS NULL OR recurrence_end >= ?)))",
			filter.From, filter.From)

	var models []reservationDatamodel.Reservation
	if err := query.Order("start_time ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	result := make([]*schedule.Reservation, len(models))
	for i := range models {
		result[i] = schedule.FromDataModel(&models[i])
	}
	return result, nil
}

// Transition applies the status change only while the row is still in cmd.From.
func (r *ReservationRepository) Transition(ctx context.Context, cmd schedule.TransitionCommand) (*schedule.Reservation, error) {
	db := r.db.WithContext(ctx)
	decidedBy := cmd.DecidedBy

	res := db.Model(&reservationDatamodel.Reservation{}).
		Where("id = ? AND status = ?", cmd.ReservationID, string(cmd.From)).
		Updates(map[string]interface{}{
			"status":        string(cmd.To),
			"decided_by":    &decidedBy,
			"decision_note": cmd.Note,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update reservation %d: %w", cmd.ReservationID, res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := getByID(db, cmd.ReservationID)
		if err != nil {
			return nil, err
		}
		return nil, internal.ErrInvalidReservationStatus.WithMessage(
			fmt.Sprintf("reservation %d is %s, expected %s", cmd.ReservationID, current.Status, cmd.From))
	}
	return getByID(db, cmd.ReservationID)
}

func getByID(db *gorm.DB, id int64) (*schedule.Reservation, error) {
	var model reservationDatamodel.Reservation
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReservationNotFound
		}
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return schedule.FromDataModel(&model), nil
}
