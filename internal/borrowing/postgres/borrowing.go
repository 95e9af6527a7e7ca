package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	borrowingDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/borrowing"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"gorm.io/gorm"
)

// StockLedger is satisfied by the equipment ledger.
type StockLedger interface {
	Decrement(ctx context.Context, tx *gorm.DB, equipmentID int64, qty int) (int, error)
	Increment(ctx context.Context, tx *gorm.DB, equipmentID int64, qty int, condition equipment.Condition) (int, error)
}

type BorrowingRepository struct {
	db     *gorm.DB
	ledger StockLedger
}

func NewBorrowingRepository(db *gorm.DB, ledger StockLedger) *BorrowingRepository {
	return &BorrowingRepository{db: db, ledger: ledger}
}

func (r *BorrowingRepository) Create(ctx context.Context, t *borrowing.Transaction) error {
	model := borrowing.ToDataModel(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create borrowing transaction: %w", err)
	}
	t.ID = model.ID
	t.CreatedAt = model.CreatedAt
	t.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *BorrowingRepository) GetByID(ctx context.Context, id int64) (*borrowing.Transaction, error) {
	return getByID(r.db.WithContext(ctx), id)
}

func (r *BorrowingRepository) CountOpenByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&borrowingDatamodel.Transaction{}).
		Where("user_id = ? AND status IN ?", userID,
			[]string{string(borrowing.StatusPending), string(borrowing.StatusActive)}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count open transactions for user %d: %w", userID, err)
	}
	return count, nil
}

func (r *BorrowingRepository) List(ctx context.Context, filter borrowing.ListFilter) ([]*borrowing.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&borrowingDatamodel.Transaction{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.OverdueBefore != nil {
		query = query.Where("expected_return_date < ?", *filter.OverdueBefore)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []borrowingDatamodel.Transaction
	if err := query.Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list borrowing transactions: %w", err)
	}
	return borrowing.FromDataModelSlice(models), nil
}

func (r *BorrowingRepository) ListActive(ctx context.Context) ([]*borrowing.Transaction, error) {
	var models []borrowingDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ?", string(borrowing.StatusActive)).
		Order("expected_return_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list active transactions: %w", err)
	}
	return borrowing.FromDataModelSlice(models), nil
}

// Approve moves the row from pending to active and decrements stock in one
// database transaction. Either guard failing rolls both back.
func (r *BorrowingRepository) Approve(ctx context.Context, cmd borrowing.ApproveCommand) (*borrowing.Transaction, int, error) {
	var (
		result    *borrowing.Transaction
		remaining int
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approvedBy := cmd.ApprovedBy
		approvedAt := cmd.ApprovedAt
		if err := transition(tx, cmd.TransactionID, borrowing.StatusPending, map[string]interface{}{
			"status":      string(borrowing.StatusActive),
			"approved_by": &approvedBy,
			"approved_at": &approvedAt,
			"admin_notes": cmd.Notes,
		}); err != nil {
			return err
		}

		stock, err := r.ledger.Decrement(ctx, tx, cmd.EquipmentID, cmd.Quantity)
		if err != nil {
			return err
		}
		remaining = stock

		result, err = getByID(tx, cmd.TransactionID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return result, remaining, nil
}

func (r *BorrowingRepository) Reject(ctx context.Context, cmd borrowing.RejectCommand) (*borrowing.Transaction, error) {
	var result *borrowing.Transaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rejectedBy := cmd.RejectedBy
		rejectedAt := cmd.RejectedAt
		if err := transition(tx, cmd.TransactionID, borrowing.StatusPending, map[string]interface{}{
			"status":          string(borrowing.StatusRejected),
			"rejected_reason": cmd.Reason,
			"approved_by":     &rejectedBy,
			"approved_at":     &rejectedAt,
		}); err != nil {
			return err
		}

		var err error
		result, err = getByID(tx, cmd.TransactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmReturn closes the loan and restores stock in one database transaction.
func (r *BorrowingRepository) ConfirmReturn(ctx context.Context, cmd borrowing.ReturnCommand) (*borrowing.Transaction, int, error) {
	var (
		result *borrowing.Transaction
		stock  int
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		returnedAt := cmd.ActualReturnDate
		if err := transition(tx, cmd.TransactionID, borrowing.StatusActive, map[string]interface{}{
			"status":             string(borrowing.StatusReturned),
			"actual_return_date": &returnedAt,
			"return_condition":   cmd.Condition,
			"return_notes":       cmd.Notes,
			"penalty_amount":     cmd.PenaltyAmount,
			"penalty_paid":       cmd.PenaltyAmount == 0,
		}); err != nil {
			return err
		}

		var err error
		stock, err = r.ledger.Increment(ctx, tx, cmd.EquipmentID, cmd.Quantity, equipment.Condition(cmd.DamagedCondition))
		if err != nil {
			return err
		}

		result, err = getByID(tx, cmd.TransactionID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return result, stock, nil
}

// transition applies fields only while the row is still in from.
func transition(tx *gorm.DB, id int64, from borrowing.Status, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()

	res := tx.Model(&borrowingDatamodel.Transaction{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update borrowing transaction %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := getByID(tx, id)
		if err != nil {
			return err
		}
		return internal.ErrInvalidRequestStatus.WithMessage(
			fmt.Sprintf("borrow request %d is %s, expected %s", id, current.Status, from))
	}
	return nil
}

func getByID(db *gorm.DB, id int64) (*borrowing.Transaction, error) {
	var model borrowingDatamodel.Transaction
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get borrowing transaction %d: %w", id, err)
	}
	return borrowing.FromDataModel(&model), nil
}
