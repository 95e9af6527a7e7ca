package borrowing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/user"
)

// Repository persists borrowing transactions. Approve and ConfirmReturn must
// apply the status change and the stock change atomically, and must refuse
// the status change when the row is no longer in the expected state.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	CountOpenByUser(ctx context.Context, userID int64) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	ListActive(ctx context.Context) ([]*Transaction, error)
	Approve(ctx context.Context, cmd ApproveCommand) (*Transaction, int, error)
	Reject(ctx context.Context, cmd RejectCommand) (*Transaction, error)
	ConfirmReturn(ctx context.Context, cmd ReturnCommand) (*Transaction, int, error)
}

type UserReader interface {
	GetByID(ctx context.Context, userID int64) (*user.User, error)
}

type EquipmentReader interface {
	GetByID(ctx context.Context, id int64) (*equipment.Equipment, error)
}

type Service struct {
	repo      Repository
	users     UserReader
	equipment EquipmentReader
	policy    *Policy
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, users UserReader, equipmentReader EquipmentReader, policy *Policy, publisher events.Publisher, logger *slog.Logger) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		users:     users,
		equipment: equipmentReader,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Tests use it to move across due dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Policy() *Policy {
	return s.policy
}

// SubmitBorrowRequest records a pending request. Stock is only committed on approval.
func (s *Service) SubmitBorrowRequest(ctx context.Context, actor *coreuser.Identity, dto SubmitBorrowRequestDTO) (*Transaction, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}

	now := s.now()
	today := s.policy.Today(now)

	if appErr := dto.Validate(today); appErr != nil {
		s.logger.Warn("borrow request validation failed", "error", appErr, "user_id", actor.UserID)
		return nil, appErr
	}

	borrower, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		s.logger.Warn("borrower lookup failed", "error", err, "user_id", actor.UserID)
		return nil, err
	}
	if !borrower.IsActive {
		return nil, errors.ErrUserInactive
	}
	if borrower.IsBanned(now) {
		until := borrower.BannedUntil.In(s.policy.Location()).Format("2006-01-02 15:04")
		s.logger.Info("banned user tried to borrow", "user_id", borrower.ID, "banned_until", until)
		return nil, errors.ErrUserBanned.WithMessage(fmt.Sprintf("you are banned from borrowing until %s", until))
	}

	limits := s.policy.LimitsForRole(borrower.Role)
	open, err := s.repo.CountOpenByUser(ctx, borrower.ID)
	if err != nil {
		s.logger.Error("failed to count open requests", "error", err, "user_id", borrower.ID)
		return nil, errors.NewInternalError("failed to check borrowing limit", err)
	}
	if open >= int64(limits.MaxItems) {
		return nil, errors.ErrBorrowLimitExceeded.WithMessage(
			fmt.Sprintf("borrowing limit reached: %d of %d open requests for role %s", open, limits.MaxItems, borrower.Role))
	}

	item, err := s.equipment.GetByID(ctx, dto.EquipmentID)
	if err != nil {
		return nil, err
	}
	if !item.InCirculation() {
		return nil, errors.ErrEquipmentUnavailable.WithMessage(fmt.Sprintf("%s is currently %s", item.Name, item.Status))
	}
	if dto.Quantity > item.Stock {
		return nil, errors.ErrInsufficientStock.WithMessage(
			fmt.Sprintf("insufficient stock for %s: %d requested, %d available", item.Name, dto.Quantity, item.Stock))
	}

	tx := &Transaction{
		UserID:             borrower.ID,
		EquipmentID:        item.ID,
		Quantity:           dto.Quantity,
		BorrowDate:         today,
		ExpectedReturnDate: dto.ExpectedReturnDate.In(s.policy.Location()),
		Status:             StatusPending,
		DisplayStatus:      StatusPending,
		Purpose:            strings.TrimSpace(dto.Purpose),
		Notes:              strings.TrimSpace(dto.Notes),
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		s.logger.Error("failed to create borrow request", "error", err, "user_id", borrower.ID)
		return nil, errors.NewInternalError("failed to create borrow request", err)
	}

	s.logger.Info("borrow request submitted",
		"transaction_id", tx.ID,
		"user_id", borrower.ID,
		"equipment_id", item.ID,
		"quantity", tx.Quantity)

	s.publish(ctx, events.NewBorrowSubmittedEvent(tx.ID, borrower.ID, item.ID, item.Name, tx.Quantity, tx.ExpectedReturnDate))
	return tx, nil
}

// ApproveBorrowRequest activates a pending request and takes its units out of stock.
func (s *Service) ApproveBorrowRequest(ctx context.Context, actor *coreuser.Identity, requestID int64, dto ApproveBorrowRequestDTO) (*Transaction, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(StatusActive) {
		return nil, invalidTransition(current, StatusActive)
	}

	item, err := s.equipment.GetByID(ctx, current.EquipmentID)
	if err != nil {
		return nil, err
	}

	approved, remaining, err := s.repo.Approve(ctx, ApproveCommand{
		TransactionID: current.ID,
		EquipmentID:   current.EquipmentID,
		Quantity:      current.Quantity,
		ApprovedBy:    actor.UserID,
		ApprovedAt:    s.now(),
		Notes:         strings.TrimSpace(dto.Notes),
	})
	if err != nil {
		s.logger.Warn("approval failed", "error", err, "transaction_id", requestID, "approver", actor.UserID)
		return nil, err
	}

	s.logger.Info("borrow request approved",
		"transaction_id", approved.ID,
		"equipment_id", approved.EquipmentID,
		"remaining_stock", remaining,
		"approver", actor.UserID)

	s.publish(ctx, events.NewBorrowApprovedEvent(approved.ID, approved.UserID, item.ID, item.Name,
		approved.Quantity, remaining, actor.UserID, approved.ExpectedReturnDate))
	return s.present(approved), nil
}

func (s *Service) RejectBorrowRequest(ctx context.Context, actor *coreuser.Identity, requestID int64, dto RejectBorrowRequestDTO) (*Transaction, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	current, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(StatusRejected) {
		return nil, invalidTransition(current, StatusRejected)
	}

	rejected, err := s.repo.Reject(ctx, RejectCommand{
		TransactionID: current.ID,
		RejectedBy:    actor.UserID,
		RejectedAt:    s.now(),
		Reason:        strings.TrimSpace(dto.Reason),
	})
	if err != nil {
		s.logger.Warn("rejection failed", "error", err, "transaction_id", requestID)
		return nil, err
	}

	s.logger.Info("borrow request rejected", "transaction_id", rejected.ID, "approver", actor.UserID)

	s.publish(ctx, events.NewBorrowRejectedEvent(rejected.ID, rejected.UserID, s.equipmentName(ctx, rejected.EquipmentID), rejected.RejectedReason))
	return s.present(rejected), nil
}

// ConfirmReturn closes an active loan, computes the late penalty and puts the units back.
func (s *Service) ConfirmReturn(ctx context.Context, actor *coreuser.Identity, requestID int64, dto ConfirmReturnDTO) (*Transaction, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	current, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(StatusReturned) {
		return nil, invalidTransition(current, StatusReturned)
	}

	item, err := s.equipment.GetByID(ctx, current.EquipmentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	penalty := s.policy.CalculatePenalty(current.ExpectedReturnDate, now)

	cmd := ReturnCommand{
		TransactionID:    current.ID,
		EquipmentID:      current.EquipmentID,
		Quantity:         current.Quantity,
		ActualReturnDate: s.policy.Today(now),
		Condition:        dto.Condition,
		Notes:            strings.TrimSpace(dto.Notes),
		PenaltyAmount:    penalty,
	}
	if dto.HasDamage {
		cmd.DamagedCondition = dto.Condition
	}

	returned, stock, err := s.repo.ConfirmReturn(ctx, cmd)
	if err != nil {
		s.logger.Warn("return confirmation failed", "error", err, "transaction_id", requestID)
		return nil, err
	}

	s.logger.Info("return confirmed",
		"transaction_id", returned.ID,
		"equipment_id", returned.EquipmentID,
		"stock", stock,
		"penalty", penalty,
		"has_damage", dto.HasDamage)

	s.publish(ctx, events.NewBorrowReturnedEvent(returned.ID, returned.UserID, item.ID, item.Name,
		returned.Quantity, penalty, s.policy.FormatPenalty(penalty)))
	return s.present(returned), nil
}

// GetByID returns a transaction to its borrower or to staff.
func (s *Service) GetByID(ctx context.Context, actor *coreuser.Identity, id int64) (*Transaction, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && tx.UserID != actor.UserID {
		s.logger.Warn("unauthorized access to borrow request", "transaction_id", id, "user_id", actor.UserID)
		return nil, errors.ErrForbidden
	}
	return s.present(tx), nil
}

// List returns the caller's own transactions, or everyone's for staff.
// Filtering by overdue selects active loans past their due date.
func (s *Service) List(ctx context.Context, actor *coreuser.Identity, filter ListFilter) ([]*Transaction, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	if !actor.IsStaff() {
		own := actor.UserID
		filter.UserID = &own
	}
	if filter.Status == StatusOverdue {
		today := s.policy.Today(s.now())
		filter.Status = StatusActive
		filter.OverdueBefore = &today
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list borrow requests", "error", err, "user_id", actor.UserID)
		return nil, errors.NewInternalError("failed to list borrow requests", err)
	}
	for _, t := range items {
		s.present(t)
	}
	return items, nil
}

func (s *Service) present(t *Transaction) *Transaction {
	t.DisplayStatus = t.StatusOn(s.policy.Today(s.now()))
	return t
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func (s *Service) equipmentName(ctx context.Context, id int64) string {
	item, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return ""
	}
	return item.Name
}

func requireStaff(actor *coreuser.Identity) error {
	if actor == nil {
		return errors.ErrUnauthenticated
	}
	if !actor.IsStaff() {
		return errors.ErrForbidden
	}
	return nil
}

func invalidTransition(t *Transaction, next Status) error {
	return errors.ErrInvalidRequestStatus.WithMessage(
		fmt.Sprintf("borrow request %d is %s and cannot become %s", t.ID, t.Status, next))
}
