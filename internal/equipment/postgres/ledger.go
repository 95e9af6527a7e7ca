package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"gorm.io/gorm"
)

// Ledger holds the only two writes allowed on equipment stock. Both take the
// caller's transaction handle so they commit or roll back with the borrowing row.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Decrement takes qty units out of stock. The guard in the WHERE clause makes
// the check and the write one statement, so stock cannot go below zero.
func (l *Ledger) Decrement(ctx context.Context, tx *gorm.DB, equipmentID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, internal.NewValidationFieldError("quantity", "quantity must be at least 1", internal.ErrCodeInvalidQuantity)
	}

	res := tx.WithContext(ctx).Model(&equipmentDatamodel.Equipment{}).
		Where("id = ? AND stock >= ? AND status IN ?", equipmentID, qty,
			[]string{string(equipment.StatusAvailable), string(equipment.StatusBorrowed)}).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"status":     statusExpr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("decrement stock for equipment %d: %w", equipmentID, res.Error)
	}

	if res.RowsAffected == 0 {
		current, err := getByID(tx.WithContext(ctx), equipmentID)
		if err != nil {
			return 0, err
		}
		if !current.InCirculation() {
			return 0, internal.ErrEquipmentUnavailable
		}
		return 0, internal.ErrInsufficientStock.WithMessage(
			fmt.Sprintf("insufficient stock for %s: %d requested, %d available", current.Name, qty, current.Stock))
	}

	return l.stock(ctx, tx, equipmentID)
}

// Increment puts qty units back. When condition is non-empty it overwrites the
// recorded condition.
func (l *Ledger) Increment(ctx context.Context, tx *gorm.DB, equipmentID int64, qty int, condition equipment.Condition) (int, error) {
	if qty <= 0 {
		return 0, internal.NewValidationFieldError("quantity", "quantity must be at least 1", internal.ErrCodeInvalidQuantity)
	}

	fields := map[string]interface{}{
		"stock":      gorm.Expr("stock + ?", qty),
		"status":     statusExpr("stock + ?", qty),
		"updated_at": time.Now(),
	}
	if condition != "" {
		fields["condition"] = string(condition)
	}

	res := tx.WithContext(ctx).Model(&equipmentDatamodel.Equipment{}).
		Where("id = ?", equipmentID).
		Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("increment stock for equipment %d: %w", equipmentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, internal.ErrEquipmentNotFound
	}

	return l.stock(ctx, tx, equipmentID)
}

func (l *Ledger) stock(ctx context.Context, tx *gorm.DB, equipmentID int64) (int, error) {
	var stocks []int
	err := tx.WithContext(ctx).Model(&equipmentDatamodel.Equipment{}).
		Where("id = ?", equipmentID).
		Pluck("stock", &stocks).Error
	if err != nil {
		return 0, fmt.Errorf("read stock for equipment %d: %w", equipmentID, err)
	}
	if len(stocks) == 0 {
		return 0, internal.ErrEquipmentNotFound
	}
	return stocks[0], nil
}

// statusExpr derives status from the post-update stock, written in terms of the
// pre-update column value.
func statusExpr(newStock string, qty int) interface{} {
	return gorm.Expr("CASE WHEN "+newStock+" > 0 THEN ? ELSE ? END",
		qty, string(equipment.StatusAvailable), string(equipment.StatusBorrowed))
}
