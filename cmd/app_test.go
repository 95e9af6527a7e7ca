package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	borrowingDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/borrowing"
	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
	userDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/user"
	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	equipmentPostgres "github.com/frahmantamala/lab-borrowing/internal/equipment/postgres"
	"github.com/frahmantamala/lab-borrowing/internal/user"
	userPostgres "github.com/frahmantamala/lab-borrowing/internal/user/postgres"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("newLifecycle", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		catalog *equipment.Service
		engine  lifecycle
		item    *equipment.Equipment
		first   *coreuser.Identity
		second  *coreuser.Identity
		staff   *coreuser.Identity
	)

	createUser := func(email string, role coreuser.Role) *coreuser.Identity {
		model := &userDatamodel.User{Email: email, Name: email, PasswordHash: "x", Role: string(role), IsActive: true}
		Expect(db.Create(model).Error).To(Succeed())
		return &coreuser.Identity{UserID: model.ID, Role: role}
	}

	request := func(qty int) borrowing.SubmitBorrowRequestDTO {
		due := time.Now().UTC().AddDate(0, 0, 3)
		return borrowing.SubmitBorrowRequestDTO{
			EquipmentID:        item.ID,
			ExpectedReturnDate: borrowing.NewDate(due.Year(), due.Month(), due.Day()),
			Quantity:           qty,
		}
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
		Expect(db.AutoMigrate(&userDatamodel.User{}, &equipmentDatamodel.Equipment{}, &borrowingDatamodel.Transaction{})).To(Succeed())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		equipmentRepo := equipmentPostgres.NewEquipmentRepository(db)
		item = &equipment.Equipment{Name: "Oscilloscope", SerialNumber: "OSC-001", Stock: 5}
		Expect(equipmentRepo.Create(ctx, item)).To(Succeed())

		catalog = equipment.NewService(equipmentRepo, cache.New(time.Hour, time.Hour), lg)
		bus := events.NewEventBus(lg)
		users := user.NewService(userPostgres.NewUserRepository(db), lg)
		engine = newLifecycle(db, users, borrowing.DefaultPolicy(), bus, lg)

		first = createUser("first@lab.test", coreuser.RoleStudent)
		second = createUser("second@lab.test", coreuser.RoleStudent)
		staff = createUser("staff@lab.test", coreuser.RoleLabStaff)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("checks stock committed by an approval, not the cached catalog entry", func() {
		browsed, err := catalog.GetByID(ctx, item.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(browsed.Stock).To(Equal(5))

		all, err := engine.service.SubmitBorrowRequest(ctx, first, request(5))
		Expect(err).NotTo(HaveOccurred())
		_, err = engine.service.ApproveBorrowRequest(ctx, staff, all.ID, borrowing.ApproveBorrowRequestDTO{})
		Expect(err).NotTo(HaveOccurred())

		_, err = engine.service.SubmitBorrowRequest(ctx, second, request(1))
		Expect(err).To(MatchError(internal.ErrInsufficientStock))
	})
})
