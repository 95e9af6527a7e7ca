package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/frahmantamala/lab-borrowing/internal"
	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestEquipmentRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EquipmentRepository Suite")
}

var _ = Describe("Equipment persistence", func() {
	var (
		db     *gorm.DB
		repo   *EquipmentRepository
		ledger *Ledger
		ctx    context.Context
		scope  *equipment.Equipment
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&equipmentDatamodel.Equipment{})).To(Succeed())

		repo = NewEquipmentRepository(db)
		ledger = NewLedger()

		scope = &equipment.Equipment{Name: "Oscilloscope", SerialNumber: "OSC-001", Category: "electronics", Stock: 5}
		Expect(repo.Create(ctx, scope)).To(Succeed())
		Expect(repo.Create(ctx, &equipment.Equipment{Name: "Microscope", SerialNumber: "MIC-001", Category: "biology", Stock: 1, Status: equipment.StatusMaintenance})).To(Succeed())
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("EquipmentRepository", func() {
		It("derives status on create", func() {
			got, err := repo.GetByID(ctx, scope.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(equipment.StatusAvailable))
			Expect(got.Condition).To(Equal(equipment.ConditionGood))
		})

		It("filters by status and search", func() {
			items, err := repo.List(ctx, equipment.ListFilter{Status: equipment.StatusMaintenance})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Microscope"))

			items, err = repo.List(ctx, equipment.ListFilter{Search: "oscillo"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Oscilloscope"))

			items, err = repo.List(ctx, equipment.ListFilter{Search: "mic-001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].SerialNumber).To(Equal("MIC-001"))
		})

		It("matches a search term against both names and serial numbers", func() {
			items, err := repo.List(ctx, equipment.ListFilter{Search: "osc"})
			Expect(err).NotTo(HaveOccurred())
			names := []string{}
			for _, item := range items {
				names = append(names, item.Name)
			}
			Expect(names).To(Equal([]string{"Microscope", "Oscilloscope"}))
		})

		It("returns ErrEquipmentNotFound", func() {
			_, err := repo.GetByID(ctx, 404)
			Expect(err).To(MatchError(internal.ErrEquipmentNotFound))
		})
	})

	Describe("Ledger", func() {
		It("decrements and keeps status available while stock remains", func() {
			stock, err := ledger.Decrement(ctx, db, scope.ID, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(stock).To(Equal(3))

			got, _ := repo.GetByID(ctx, scope.ID)
			Expect(got.Status).To(Equal(equipment.StatusAvailable))
		})

		It("marks the item borrowed when stock reaches zero", func() {
			stock, err := ledger.Decrement(ctx, db, scope.ID, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(stock).To(BeZero())

			got, _ := repo.GetByID(ctx, scope.ID)
			Expect(got.Status).To(Equal(equipment.StatusBorrowed))
		})

		It("refuses to go below zero and leaves stock untouched", func() {
			_, err := ledger.Decrement(ctx, db, scope.ID, 6)
			Expect(err).To(MatchError(internal.ErrInsufficientStock))

			got, _ := repo.GetByID(ctx, scope.ID)
			Expect(got.Stock).To(Equal(5))
		})

		It("refuses items out of circulation", func() {
			items, _ := repo.List(ctx, equipment.ListFilter{Status: equipment.StatusMaintenance})
			_, err := ledger.Decrement(ctx, db, items[0].ID, 1)
			Expect(err).To(MatchError(internal.ErrEquipmentUnavailable))
		})

		It("increments, re-derives status and records damage", func() {
			_, err := ledger.Decrement(ctx, db, scope.ID, 5)
			Expect(err).NotTo(HaveOccurred())

			stock, err := ledger.Increment(ctx, db, scope.ID, 2, equipment.ConditionPoor)
			Expect(err).NotTo(HaveOccurred())
			Expect(stock).To(Equal(2))

			got, _ := repo.GetByID(ctx, scope.ID)
			Expect(got.Status).To(Equal(equipment.StatusAvailable))
			Expect(got.Condition).To(Equal(equipment.ConditionPoor))
		})

		It("keeps the condition when none is reported", func() {
			stock, err := ledger.Increment(ctx, db, scope.ID, 1, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(stock).To(Equal(6))

			got, _ := repo.GetByID(ctx, scope.ID)
			Expect(got.Condition).To(Equal(equipment.ConditionGood))
		})

		It("rolls back with the surrounding transaction", func() {
			err := db.Transaction(func(tx *gorm.DB) error {
				if _, err := ledger.Decrement(ctx, tx, scope.ID, 3); err != nil {
					return err
				}
				return fmt.Errorf("abort")
			})
			Expect(err).To(HaveOccurred())

			got, _ := repo.GetByID(ctx, scope.ID)
			Expect(got.Stock).To(Equal(5))
		})
	})
})
