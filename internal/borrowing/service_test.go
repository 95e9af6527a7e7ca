package borrowing_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/borrowing"
	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// memoryStore keeps transactions and equipment together so Approve and
// ConfirmReturn can apply both writes under one lock.
type memoryStore struct {
	mu           sync.Mutex
	nextID       int64
	transactions map[int64]*borrowing.Transaction
	equipment    map[int64]*equipment.Equipment
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		transactions: map[int64]*borrowing.Transaction{},
		equipment:    map[int64]*equipment.Equipment{},
	}
}

func (m *memoryStore) Create(_ context.Context, t *borrowing.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	clone := *t
	m.transactions[t.ID] = &clone
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*borrowing.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, errors.ErrRequestNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *memoryStore) CountOpenByUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.transactions {
		if t.UserID == userID && t.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) List(_ context.Context, filter borrowing.ListFilter) ([]*borrowing.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*borrowing.Transaction
	for _, t := range m.transactions {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.OverdueBefore != nil && !t.ExpectedReturnDate.Before(*filter.OverdueBefore) {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) ListActive(ctx context.Context) ([]*borrowing.Transaction, error) {
	return m.List(ctx, borrowing.ListFilter{Status: borrowing.StatusActive})
}

func (m *memoryStore) Approve(_ context.Context, cmd borrowing.ApproveCommand) (*borrowing.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[cmd.TransactionID]
	if !ok {
		return nil, 0, errors.ErrRequestNotFound
	}
	if t.Status != borrowing.StatusPending {
		return nil, 0, errors.ErrInvalidRequestStatus
	}
	item, ok := m.equipment[cmd.EquipmentID]
	if !ok {
		return nil, 0, errors.ErrEquipmentNotFound
	}
	if item.Stock < cmd.Quantity {
		return nil, 0, errors.ErrInsufficientStock
	}

	item.Stock -= cmd.Quantity
	item.Status = equipment.DeriveStatus(item.Stock)
	approvedBy, approvedAt := cmd.ApprovedBy, cmd.ApprovedAt
	t.Status = borrowing.StatusActive
	t.ApprovedBy = &approvedBy
	t.ApprovedAt = &approvedAt
	t.AdminNotes = cmd.Notes

	clone := *t
	return &clone, item.Stock, nil
}

func (m *memoryStore) Reject(_ context.Context, cmd borrowing.RejectCommand) (*borrowing.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[cmd.TransactionID]
	if !ok {
		return nil, errors.ErrRequestNotFound
	}
	if t.Status != borrowing.StatusPending {
		return nil, errors.ErrInvalidRequestStatus
	}
	t.Status = borrowing.StatusRejected
	t.RejectedReason = cmd.Reason
	clone := *t
	return &clone, nil
}

func (m *memoryStore) ConfirmReturn(_ context.Context, cmd borrowing.ReturnCommand) (*borrowing.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[cmd.TransactionID]
	if !ok {
		return nil, 0, errors.ErrRequestNotFound
	}
	if t.Status != borrowing.StatusActive {
		return nil, 0, errors.ErrInvalidRequestStatus
	}
	item, ok := m.equipment[cmd.EquipmentID]
	if !ok {
		return nil, 0, errors.ErrEquipmentNotFound
	}

	returnedAt := cmd.ActualReturnDate
	t.Status = borrowing.StatusReturned
	t.ActualReturnDate = &returnedAt
	t.ReturnCondition = cmd.Condition
	t.ReturnNotes = cmd.Notes
	t.PenaltyAmount = cmd.PenaltyAmount
	t.PenaltyPaid = cmd.PenaltyAmount == 0

	item.Stock += cmd.Quantity
	item.Status = equipment.DeriveStatus(item.Stock)
	if cmd.DamagedCondition != "" {
		item.Condition = equipment.Condition(cmd.DamagedCondition)
	}

	clone := *t
	return &clone, item.Stock, nil
}

type equipmentView struct{ store *memoryStore }

func (e equipmentView) GetByID(_ context.Context, id int64) (*equipment.Equipment, error) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	item, ok := e.store.equipment[id]
	if !ok {
		return nil, errors.ErrEquipmentNotFound
	}
	clone := *item
	return &clone, nil
}

type userDirectory map[int64]*user.User

func (d userDirectory) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := d[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

var _ = Describe("Service", func() {
	const (
		studentID  int64 = 1
		lecturerID int64 = 2
		staffID    int64 = 3
		otherID    int64 = 4
		scopeID    int64 = 10
		lostID     int64 = 11
	)

	var (
		ctx       context.Context
		store     *memoryStore
		users     userDirectory
		publisher *recordingPublisher
		service   *borrowing.Service
		now       time.Time

		student  *coreuser.Identity
		lecturer *coreuser.Identity
		staff    *coreuser.Identity
	)

	dueIn := func(days int) borrowing.Date {
		d := now.AddDate(0, 0, days)
		return borrowing.NewDate(d.Year(), d.Month(), d.Day())
	}

	submit := func(actor *coreuser.Identity, qty int) (*borrowing.Transaction, error) {
		return service.SubmitBorrowRequest(ctx, actor, borrowing.SubmitBorrowRequestDTO{
			EquipmentID:        scopeID,
			ExpectedReturnDate: dueIn(5),
			Purpose:            "practicum",
			Quantity:           qty,
		})
	}

	stockOf := func(id int64) (int, equipment.Status) {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.equipment[id].Stock, store.equipment[id].Status
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

		store = newMemoryStore()
		store.equipment[scopeID] = &equipment.Equipment{ID: scopeID, Name: "Oscilloscope", Stock: 5, Status: equipment.StatusAvailable, Condition: equipment.ConditionGood}
		store.equipment[lostID] = &equipment.Equipment{ID: lostID, Name: "Spectrometer", Stock: 1, Status: equipment.StatusLost, Condition: equipment.ConditionGood}

		users = userDirectory{
			studentID:  {ID: studentID, Role: coreuser.RoleStudent, IsActive: true},
			lecturerID: {ID: lecturerID, Role: coreuser.RoleLecturer, IsActive: true},
			staffID:    {ID: staffID, Role: coreuser.RoleLabStaff, IsActive: true},
			otherID:    {ID: otherID, Role: coreuser.RoleStudent, IsActive: true},
		}
		student = &coreuser.Identity{UserID: studentID, Role: coreuser.RoleStudent}
		lecturer = &coreuser.Identity{UserID: lecturerID, Role: coreuser.RoleLecturer}
		staff = &coreuser.Identity{UserID: staffID, Role: coreuser.RoleLabStaff}

		publisher = &recordingPublisher{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = borrowing.NewService(store, users, equipmentView{store}, borrowing.DefaultPolicy(), publisher, logger).
			WithClock(func() time.Time { return now })
	})

	Describe("SubmitBorrowRequest", func() {
		It("creates a pending request without touching stock", func() {
			tx, err := submit(student, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.Status).To(Equal(borrowing.StatusPending))
			Expect(tx.BorrowDate).To(BeTemporally("==", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
			Expect(tx.ExpectedReturnDate).To(BeTemporally("==", time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))

			stock, _ := stockOf(scopeID)
			Expect(stock).To(Equal(5))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeBorrowSubmitted}))
		})

		It("requires an identity", func() {
			_, err := submit(nil, 1)
			Expect(err).To(MatchError(errors.ErrUnauthenticated))
		})

		It("reports unknown users", func() {
			_, err := submit(&coreuser.Identity{UserID: 99, Role: coreuser.RoleStudent}, 1)
			Expect(err).To(MatchError(errors.ErrUserNotFound))
		})

		It("refuses banned users and surfaces the ban end", func() {
			until := now.Add(time.Hour)
			users[studentID].BannedUntil = &until

			_, err := submit(student, 1)
			Expect(err).To(MatchError(errors.ErrUserBanned))
			Expect(err.Error()).To(ContainSubstring("2024-01-01 10:00"))
		})

		It("accepts the same user once the ban has passed", func() {
			until := now.Add(time.Hour)
			users[studentID].BannedUntil = &until
			now = now.Add(2 * time.Hour)

			_, err := submit(student, 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses a request at the role limit and accepts one below it", func() {
			for i := 0; i < 2; i++ {
				_, err := submit(student, 1)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := submit(student, 1)
			Expect(err).NotTo(HaveOccurred())

			_, err = submit(student, 1)
			Expect(err).To(MatchError(errors.ErrBorrowLimitExceeded))
		})

		It("does not count closed requests against the limit", func() {
			var first *borrowing.Transaction
			for i := 0; i < 3; i++ {
				tx, err := submit(student, 1)
				Expect(err).NotTo(HaveOccurred())
				if first == nil {
					first = tx
				}
			}
			_, err := service.RejectBorrowRequest(ctx, staff, first.ID, borrowing.RejectBorrowRequestDTO{Reason: "duplicate"})
			Expect(err).NotTo(HaveOccurred())

			_, err = submit(student, 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses more than the current stock", func() {
			_, err := submit(lecturer, 6)
			Expect(err).To(MatchError(errors.ErrInsufficientStock))
		})

		It("reports unknown equipment", func() {
			_, err := service.SubmitBorrowRequest(ctx, student, borrowing.SubmitBorrowRequestDTO{
				EquipmentID: 404, ExpectedReturnDate: dueIn(3), Quantity: 1,
			})
			Expect(err).To(MatchError(errors.ErrEquipmentNotFound))
		})

		It("refuses equipment out of circulation", func() {
			_, err := service.SubmitBorrowRequest(ctx, student, borrowing.SubmitBorrowRequestDTO{
				EquipmentID: lostID, ExpectedReturnDate: dueIn(3), Quantity: 1,
			})
			Expect(err).To(MatchError(errors.ErrEquipmentUnavailable))
		})

		It("validates quantity and due date", func() {
			_, err := submit(student, -1)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))

			_, err = service.SubmitBorrowRequest(ctx, student, borrowing.SubmitBorrowRequestDTO{
				EquipmentID: scopeID, ExpectedReturnDate: dueIn(-1), Quantity: 1,
			})
			appErr, ok = errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})
	})

	Describe("ApproveBorrowRequest", func() {
		It("is limited to staff", func() {
			tx, _ := submit(student, 1)

			_, err := service.ApproveBorrowRequest(ctx, nil, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).To(MatchError(errors.ErrUnauthenticated))

			_, err = service.ApproveBorrowRequest(ctx, student, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).To(MatchError(errors.ErrForbidden))
		})

		It("reports unknown requests", func() {
			_, err := service.ApproveBorrowRequest(ctx, staff, 404, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).To(MatchError(errors.ErrRequestNotFound))
		})

		It("never lets stock go negative", func() {
			store.equipment[scopeID].Stock = 3
			first, err := submit(student, 2)
			Expect(err).NotTo(HaveOccurred())
			second, err := submit(lecturer, 2)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveBorrowRequest(ctx, staff, first.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveBorrowRequest(ctx, staff, second.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).To(MatchError(errors.ErrInsufficientStock))

			stock, _ := stockOf(scopeID)
			Expect(stock).To(Equal(1))
			still, _ := store.GetByID(ctx, second.ID)
			Expect(still.Status).To(Equal(borrowing.StatusPending))
		})

		It("refuses a second approval and leaves stock alone", func() {
			tx, _ := submit(student, 2)
			_, err := service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).To(MatchError(errors.ErrInvalidRequestStatus))

			stock, _ := stockOf(scopeID)
			Expect(stock).To(Equal(3))
		})

		It("stamps the approver", func() {
			tx, _ := submit(student, 1)
			approved, err := service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{Notes: "ok"})
			Expect(err).NotTo(HaveOccurred())
			Expect(*approved.ApprovedBy).To(Equal(staffID))
			Expect(approved.AdminNotes).To(Equal("ok"))
			Expect(publisher.types()).To(ContainElement(events.EventTypeBorrowApproved))
		})
	})

	Describe("terminal states", func() {
		It("cannot leave rejected", func() {
			tx, _ := submit(student, 1)
			_, err := service.RejectBorrowRequest(ctx, staff, tx.ID, borrowing.RejectBorrowRequestDTO{Reason: "not available this week"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).To(MatchError(errors.ErrInvalidRequestStatus))
			_, err = service.RejectBorrowRequest(ctx, staff, tx.ID, borrowing.RejectBorrowRequestDTO{Reason: "again"})
			Expect(err).To(MatchError(errors.ErrInvalidRequestStatus))
			_, err = service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "good"})
			Expect(err).To(MatchError(errors.ErrInvalidRequestStatus))

			final, _ := store.GetByID(ctx, tx.ID)
			Expect(final.Status).To(Equal(borrowing.StatusRejected))
		})

		It("cannot leave returned", func() {
			tx, _ := submit(student, 1)
			_, _ = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			_, err := service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "good"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "good"})
			Expect(err).To(MatchError(errors.ErrInvalidRequestStatus))
			_, err = service.RejectBorrowRequest(ctx, staff, tx.ID, borrowing.RejectBorrowRequestDTO{Reason: "late"})
			Expect(err).To(MatchError(errors.ErrInvalidRequestStatus))

			stock, _ := stockOf(scopeID)
			Expect(stock).To(Equal(5))
		})

		It("requires a rejection reason", func() {
			tx, _ := submit(student, 1)
			_, err := service.RejectBorrowRequest(ctx, staff, tx.ID, borrowing.RejectBorrowRequestDTO{Reason: "  "})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})
	})

	Describe("ConfirmReturn", func() {
		It("restores exactly the borrowed quantity and marks the item available", func() {
			tx, _ := submit(lecturer, 5)
			_, err := service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).NotTo(HaveOccurred())
			stock, status := stockOf(scopeID)
			Expect(stock).To(BeZero())
			Expect(status).To(Equal(equipment.StatusBorrowed))

			returned, err := service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "good"})
			Expect(err).NotTo(HaveOccurred())
			Expect(returned.PenaltyAmount).To(BeZero())
			Expect(returned.PenaltyPaid).To(BeTrue())

			stock, status = stockOf(scopeID)
			Expect(stock).To(Equal(5))
			Expect(status).To(Equal(equipment.StatusAvailable))
		})

		It("records damage only when reported", func() {
			tx, _ := submit(student, 1)
			_, _ = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})

			_, err := service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "poor"})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.equipment[scopeID].Condition).To(Equal(equipment.ConditionGood))

			tx, _ = submit(student, 1)
			_, _ = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			_, err = service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "poor", HasDamage: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.equipment[scopeID].Condition).To(Equal(equipment.ConditionPoor))
		})

		It("rejects unknown conditions", func() {
			tx, _ := submit(student, 1)
			_, _ = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})
			_, err := service.ConfirmReturn(ctx, staff, tx.ID, borrowing.ConfirmReturnDTO{Condition: "shiny"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("end to end", func() {
		It("follows stock and penalty through two loans", func() {
			first, err := submit(student, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Status).To(Equal(borrowing.StatusPending))
			stock, _ := stockOf(scopeID)
			Expect(stock).To(Equal(5))

			_, err = service.ApproveBorrowRequest(ctx, staff, first.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).NotTo(HaveOccurred())
			stock, status := stockOf(scopeID)
			Expect(stock).To(Equal(3))
			Expect(status).To(Equal(equipment.StatusAvailable))

			second, err := submit(lecturer, 3)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ApproveBorrowRequest(ctx, staff, second.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).NotTo(HaveOccurred())
			stock, status = stockOf(scopeID)
			Expect(stock).To(BeZero())
			Expect(status).To(Equal(equipment.StatusBorrowed))

			now = now.AddDate(0, 0, 10)
			returned, err := service.ConfirmReturn(ctx, staff, first.ID, borrowing.ConfirmReturnDTO{Condition: "good"})
			Expect(err).NotTo(HaveOccurred())
			Expect(returned.PenaltyAmount).To(BeNumerically(">", 0))
			Expect(returned.PenaltyPaid).To(BeFalse())
			stock, status = stockOf(scopeID)
			Expect(stock).To(Equal(2))
			Expect(status).To(Equal(equipment.StatusAvailable))

			Expect(publisher.types()).To(Equal([]string{
				events.EventTypeBorrowSubmitted,
				events.EventTypeBorrowApproved,
				events.EventTypeBorrowSubmitted,
				events.EventTypeBorrowApproved,
				events.EventTypeBorrowReturned,
			}))
		})
	})

	Describe("readers", func() {
		It("hides other borrowers' requests from non-staff", func() {
			tx, _ := submit(student, 1)

			_, err := service.GetByID(ctx, &coreuser.Identity{UserID: otherID, Role: coreuser.RoleStudent}, tx.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))

			got, err := service.GetByID(ctx, staff, tx.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(tx.ID))
		})

		It("scopes lists to the caller unless staff", func() {
			_, _ = submit(student, 1)
			_, _ = submit(lecturer, 1)

			own, err := service.List(ctx, student, borrowing.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(own).To(HaveLen(1))

			all, err := service.List(ctx, staff, borrowing.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("derives overdue without storing it", func() {
			tx, _ := submit(student, 1)
			_, _ = service.ApproveBorrowRequest(ctx, staff, tx.ID, borrowing.ApproveBorrowRequestDTO{})

			now = now.AddDate(0, 0, 7)
			overdue, err := service.List(ctx, staff, borrowing.ListFilter{Status: borrowing.StatusOverdue})
			Expect(err).NotTo(HaveOccurred())
			Expect(overdue).To(HaveLen(1))
			Expect(overdue[0].DisplayStatus).To(Equal(borrowing.StatusOverdue))
			Expect(overdue[0].Status).To(Equal(borrowing.StatusActive))
		})
	})

	Describe("Reminder", func() {
		It("raises reminders for overdue and due-tomorrow loans", func() {
			late, _ := submit(student, 1)
			_, _ = service.ApproveBorrowRequest(ctx, staff, late.ID, borrowing.ApproveBorrowRequestDTO{})

			soon, err := service.SubmitBorrowRequest(ctx, lecturer, borrowing.SubmitBorrowRequestDTO{
				EquipmentID: scopeID, ExpectedReturnDate: dueIn(8), Quantity: 1,
			})
			Expect(err).NotTo(HaveOccurred())
			_, _ = service.ApproveBorrowRequest(ctx, staff, soon.ID, borrowing.ApproveBorrowRequestDTO{})

			now = now.AddDate(0, 0, 7)
			reminderPublisher := &recordingPublisher{}
			reminder := borrowing.NewReminder(store, equipmentView{store}, borrowing.DefaultPolicy(), reminderPublisher, nil).
				WithClock(func() time.Time { return now })

			stats, err := reminder.RunOnce(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(Equal(borrowing.ReminderStats{Scanned: 2, Overdue: 1, DueSoon: 1}))

			first := reminderPublisher.events[0].(*events.BorrowReminderEvent)
			Expect(first.Overdue).To(BeTrue())
			Expect(first.DaysLate).To(Equal(2))
			Expect(first.PenaltyFormatted).To(Equal("Rp 10.000"))
			Expect(first.EquipmentName).To(Equal("Oscilloscope"))
		})

		It("still scans when no publisher is wired", func() {
			late, _ := submit(student, 1)
			_, err := service.ApproveBorrowRequest(ctx, staff, late.ID, borrowing.ApproveBorrowRequestDTO{})
			Expect(err).NotTo(HaveOccurred())

			now = now.AddDate(0, 0, 7)
			reminder := borrowing.NewReminder(store, equipmentView{store}, borrowing.DefaultPolicy(), nil, nil).
				WithClock(func() time.Time { return now })

			var stats borrowing.ReminderStats
			Expect(func() { stats, err = reminder.RunOnce(ctx) }).NotTo(Panic())
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Overdue).To(Equal(1))
		})
	})
})
