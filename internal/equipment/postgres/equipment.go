package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/lab-borrowing/internal"
	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"gorm.io/gorm"
)

type EquipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*equipment.Equipment, error) {
	return getByID(r.db.WithContext(ctx), id)
}

func (r *EquipmentRepository) List(ctx context.Context, filter equipment.ListFilter) ([]*equipment.Equipment, error) {
	query := r.db.WithContext(ctx).Model(&equipmentDatamodel.Equipment{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(serial_number) LIKE ?", like, like)
	}

	var models []equipmentDatamodel.Equipment
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}

	result := make([]*equipment.Equipment, len(models))
	for i := range models {
		result[i] = equipment.FromDataModel(&models[i])
	}
	return result, nil
}

func (r *EquipmentRepository) Create(ctx context.Context, e *equipment.Equipment) error {
	if e.Status == "" {
		e.Status = equipment.DeriveStatus(e.Stock)
	}
	if e.Condition == "" {
		e.Condition = equipment.ConditionGood
	}
	model := equipment.ToDataModel(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	e.ID = model.ID
	e.CreatedAt = model.CreatedAt
	e.UpdatedAt = model.UpdatedAt
	return nil
}

func getByID(db *gorm.DB, id int64) (*equipment.Equipment, error) {
	var model equipmentDatamodel.Equipment
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrEquipmentNotFound
		}
		return nil, fmt.Errorf("get equipment %d: %w", id, err)
	}
	return equipment.FromDataModel(&model), nil
}
