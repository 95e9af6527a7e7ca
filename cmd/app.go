package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/auth"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	borrowingPostgres "github.com/frahmantamala/lab-borrowing/internal/borrowing/postgres"
	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	equipmentPostgres "github.com/frahmantamala/lab-borrowing/internal/equipment/postgres"
	"github.com/frahmantamala/lab-borrowing/internal/notification"
	notificationPostgres "github.com/frahmantamala/lab-borrowing/internal/notification/postgres"
	"github.com/frahmantamala/lab-borrowing/internal/schedule"
	schedulePostgres "github.com/frahmantamala/lab-borrowing/internal/schedule/postgres"
	"github.com/frahmantamala/lab-borrowing/internal/user"
	userPostgres "github.com/frahmantamala/lab-borrowing/internal/user/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Services is the wired application shared by the server and the workers.
type Services struct {
	Config       *internal.Config
	DB           *sqlx.DB
	Gorm         *gorm.DB
	Bus          *events.EventBus
	Dispatcher   *notification.Dispatcher
	Auth         *auth.Service
	Users        *user.Service
	Equipment    *equipment.Service
	Borrowing    *borrowing.Service
	Reminder     *borrowing.Reminder
	Notification *notification.Service
	Schedule     *schedule.Service
	Logger       *slog.Logger
}

func buildServices(cfg *internal.Config, lg *slog.Logger) (*Services, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	bus := events.NewEventBus(lg)

	userRepo := userPostgres.NewUserRepository(gdb)
	userService := user.NewService(userRepo, lg)

	tokenGen := auth.NewJWTTokenGenerator(cfg.Security)
	authService := auth.NewService(userRepo, tokenGen, cfg.Security.BCryptCost, lg)

	catalogTTL := cfg.Cache.CatalogTTL
	if catalogTTL <= 0 {
		catalogTTL = 30 * time.Second
	}
	cleanup := cfg.Cache.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	equipmentRepo := equipmentPostgres.NewEquipmentRepository(gdb)
	equipmentService := equipment.NewService(equipmentRepo, cache.New(catalogTTL, cleanup), lg)

	policy := borrowing.NewPolicyFromConfig(cfg.Borrowing)
	engine := newLifecycle(gdb, userService, policy, bus, lg)

	notificationService := notification.NewService(notificationPostgres.NewNotificationRepository(db), lg)

	var mailer notification.Mailer
	if cfg.Mail.Enabled {
		mailer = notification.NewSMTPMailer(cfg.Mail)
	} else {
		mailer = notification.NewLogMailer(lg)
	}
	dispatcher := notification.NewDispatcher(mailer, cfg.Notification, lg)

	notification.NewEventHandler(notificationService, userService, dispatcher, lg).Register(bus)
	bus.Subscribe(events.EventTypeBorrowApproved, equipmentService.HandleInventoryChanged)
	bus.Subscribe(events.EventTypeBorrowReturned, equipmentService.HandleInventoryChanged)

	scheduleService := schedule.NewService(schedulePostgres.NewReservationRepository(gdb), equipmentService, bus, cfg.Borrowing.Location(), lg)

	return &Services{
		Config:       cfg,
		DB:           db,
		Gorm:         gdb,
		Bus:          bus,
		Dispatcher:   dispatcher,
		Auth:         authService,
		Users:        userService,
		Equipment:    equipmentService,
		Borrowing:    engine.service,
		Reminder:     engine.reminder,
		Notification: notificationService,
		Schedule:     scheduleService,
		Logger:       lg,
	}, nil
}

type lifecycle struct {
	service  *borrowing.Service
	reminder *borrowing.Reminder
}

// newLifecycle wires the borrowing engine. Its stock and status checks read
// the equipment table directly; the catalog cache only serves browsing.
func newLifecycle(gdb *gorm.DB, users borrowing.UserReader, policy *borrowing.Policy, publisher events.Publisher, lg *slog.Logger) lifecycle {
	equipmentRepo := equipmentPostgres.NewEquipmentRepository(gdb)
	repo := borrowingPostgres.NewBorrowingRepository(gdb, equipmentPostgres.NewLedger())
	return lifecycle{
		service:  borrowing.NewService(repo, users, equipmentRepo, policy, publisher, lg),
		reminder: borrowing.NewReminder(repo, equipmentRepo, policy, publisher, lg),
	}
}

// Close drains the mail queue before the pool goes away.
func (s *Services) Close() {
	s.Dispatcher.Shutdown()
	if err := s.DB.Close(); err != nil {
		s.Logger.Error("database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
}
