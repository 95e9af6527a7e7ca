package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	borrowingDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/borrowing"
	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	equipmentPostgres "github.com/frahmantamala/lab-borrowing/internal/equipment/postgres"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestBorrowingRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BorrowingRepository Suite")
}

var _ = Describe("BorrowingRepository", func() {
	var (
		db          *gorm.DB
		repo        *BorrowingRepository
		items       *equipmentPostgres.EquipmentRepository
		ctx         context.Context
		scope       *equipment.Equipment
		approvedAt  time.Time
		borrowDate  time.Time
		expectedDue time.Time
	)

	pending := func(userID int64, qty int) *borrowing.Transaction {
		tx := &borrowing.Transaction{
			UserID:             userID,
			EquipmentID:        scope.ID,
			Quantity:           qty,
			BorrowDate:         borrowDate,
			ExpectedReturnDate: expectedDue,
			Status:             borrowing.StatusPending,
			Purpose:            "practicum",
		}
		Expect(repo.Create(ctx, tx)).To(Succeed())
		return tx
	}

	approve := func(tx *borrowing.Transaction) (*borrowing.Transaction, int, error) {
		return repo.Approve(ctx, borrowing.ApproveCommand{
			TransactionID: tx.ID,
			EquipmentID:   tx.EquipmentID,
			Quantity:      tx.Quantity,
			ApprovedBy:    99,
			ApprovedAt:    approvedAt,
		})
	}

	stock := func() int {
		got, err := items.GetByID(ctx, scope.ID)
		Expect(err).NotTo(HaveOccurred())
		return got.Stock
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&equipmentDatamodel.Equipment{}, &borrowingDatamodel.Transaction{})).To(Succeed())

		items = equipmentPostgres.NewEquipmentRepository(db)
		repo = NewBorrowingRepository(db, equipmentPostgres.NewLedger())

		scope = &equipment.Equipment{Name: "Oscilloscope", SerialNumber: "OSC-001", Stock: 3}
		Expect(items.Create(ctx, scope)).To(Succeed())

		borrowDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		expectedDue = borrowDate.AddDate(0, 0, 5)
		approvedAt = borrowDate.Add(9 * time.Hour)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("counts only pending and active requests as open", func() {
		first := pending(1, 1)
		pending(1, 1)
		pending(2, 1)

		_, err := repo.Reject(ctx, borrowing.RejectCommand{TransactionID: first.ID, RejectedBy: 99, RejectedAt: approvedAt, Reason: "duplicate"})
		Expect(err).NotTo(HaveOccurred())

		open, err := repo.CountOpenByUser(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(open).To(Equal(int64(1)))
	})

	It("activates the request and takes stock in one step", func() {
		tx := pending(1, 2)

		approved, remaining, err := approve(tx)
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(Equal(1))
		Expect(approved.Status).To(Equal(borrowing.StatusActive))
		Expect(approved.ApprovedBy).NotTo(BeNil())
		Expect(*approved.ApprovedBy).To(Equal(int64(99)))
		Expect(stock()).To(Equal(1))
	})

	It("refuses a second approval without touching stock", func() {
		tx := pending(1, 1)
		_, _, err := approve(tx)
		Expect(err).NotTo(HaveOccurred())

		_, _, err = approve(tx)
		Expect(err).To(MatchError(internal.ErrInvalidRequestStatus))
		Expect(stock()).To(Equal(2))
	})

	It("rolls the status back when stock is short", func() {
		first := pending(1, 2)
		second := pending(2, 2)

		_, _, err := approve(first)
		Expect(err).NotTo(HaveOccurred())

		_, _, err = approve(second)
		Expect(err).To(MatchError(internal.ErrInsufficientStock))

		still, err := repo.GetByID(ctx, second.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(still.Status).To(Equal(borrowing.StatusPending))
		Expect(still.ApprovedBy).To(BeNil())
		Expect(stock()).To(Equal(1))
	})

	It("closes the loan, records the penalty and restores stock", func() {
		tx := pending(1, 3)
		_, _, err := approve(tx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stock()).To(BeZero())

		returnedOn := expectedDue.AddDate(0, 0, 2)
		returned, restored, err := repo.ConfirmReturn(ctx, borrowing.ReturnCommand{
			TransactionID:    tx.ID,
			EquipmentID:      tx.EquipmentID,
			Quantity:         tx.Quantity,
			ActualReturnDate: returnedOn,
			Condition:        "fair",
			DamagedCondition: "fair",
			PenaltyAmount:    10000,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(restored).To(Equal(3))
		Expect(returned.Status).To(Equal(borrowing.StatusReturned))
		Expect(returned.PenaltyAmount).To(Equal(int64(10000)))
		Expect(returned.PenaltyPaid).To(BeFalse())
		Expect(returned.ActualReturnDate).NotTo(BeNil())

		got, err := items.GetByID(ctx, scope.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(equipment.StatusAvailable))
		Expect(got.Condition).To(Equal(equipment.ConditionFair))

		_, _, err = repo.ConfirmReturn(ctx, borrowing.ReturnCommand{TransactionID: tx.ID, EquipmentID: tx.EquipmentID, Quantity: tx.Quantity})
		Expect(err).To(MatchError(internal.ErrInvalidRequestStatus))
		Expect(stock()).To(Equal(3))
	})

	It("refuses to return a pending request", func() {
		tx := pending(1, 1)
		_, _, err := repo.ConfirmReturn(ctx, borrowing.ReturnCommand{TransactionID: tx.ID, EquipmentID: tx.EquipmentID, Quantity: 1})
		Expect(err).To(MatchError(internal.ErrInvalidRequestStatus))
		Expect(stock()).To(Equal(3))
	})

	It("lists overdue active loans", func() {
		late := pending(1, 1)
		pending(2, 1)
		_, _, err := approve(late)
		Expect(err).NotTo(HaveOccurred())

		cutoff := expectedDue.AddDate(0, 0, 1)
		overdue, err := repo.List(ctx, borrowing.ListFilter{Status: borrowing.StatusActive, OverdueBefore: &cutoff})
		Expect(err).NotTo(HaveOccurred())
		Expect(overdue).To(HaveLen(1))
		Expect(overdue[0].ID).To(Equal(late.ID))

		active, err := repo.ListActive(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(HaveLen(1))
	})

	It("returns ErrRequestNotFound", func() {
		_, err := repo.GetByID(ctx, 404)
		Expect(err).To(MatchError(internal.ErrRequestNotFound))
	})
})
