package schedule_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	errors "github.com/frahmantamala/lab-borrowing/internal"
	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"github.com/frahmantamala/lab-borrowing/internal/equipment"
	"github.com/frahmantamala/lab-borrowing/internal/schedule"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type memoryRepository struct {
	mu    sync.Mutex
	items map[int64]*schedule.Reservation
	next  int64
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: map[int64]*schedule.Reservation{}}
}

func (m *memoryRepository) Create(_ context.Context, r *schedule.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	r.ID = m.next
	clone := *r
	m.items[r.ID] = &clone
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id int64) (*schedule.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, errors.ErrReservationNotFound
	}
	clone := *r
	return &clone, nil
}

// ListInRange returns every candidate; range trimming is left to Expand.
func (m *memoryRepository) ListInRange(_ context.Context, filter schedule.RangeFilter) ([]*schedule.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*schedule.Reservation
	for id := int64(1); id <= m.next; id++ {
		r, ok := m.items[id]
		if !ok || id == filter.ExcludeID {
			continue
		}
		if filter.EquipmentID != nil && r.EquipmentID != *filter.EquipmentID {
			continue
		}
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, r.Status) {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memoryRepository) Transition(_ context.Context, cmd schedule.TransitionCommand) (*schedule.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[cmd.ReservationID]
	if !ok {
		return nil, errors.ErrReservationNotFound
	}
	if r.Status != cmd.From {
		return nil, errors.ErrInvalidReservationStatus
	}
	decidedBy := cmd.DecidedBy
	r.Status = cmd.To
	r.DecidedBy = &decidedBy
	r.DecisionNote = cmd.Note
	clone := *r
	return &clone, nil
}

func contains(statuses []schedule.Status, s schedule.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type equipmentStub map[int64]*equipment.Equipment

func (e equipmentStub) GetByID(_ context.Context, id int64) (*equipment.Equipment, error) {
	item, ok := e[id]
	if !ok {
		return nil, errors.ErrEquipmentNotFound
	}
	return item, nil
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

var _ = Describe("Service", func() {
	const microscopeID int64 = 5

	var (
		ctx       context.Context
		repo      *memoryRepository
		publisher *recordingPublisher
		service   *schedule.Service
		now       time.Time

		student *coreuser.Identity
		other   *coreuser.Identity
		staff   *coreuser.Identity
	)

	at := func(d, hour int) time.Time {
		return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
	}

	booking := func(start, end time.Time) schedule.CreateReservationDTO {
		return schedule.CreateReservationDTO{EquipmentID: microscopeID, Title: "Thesis run", StartTime: start, EndTime: end}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = at(1, 8)
		repo = newMemoryRepository()
		publisher = &recordingPublisher{}
		items := equipmentStub{microscopeID: {ID: microscopeID, Name: "Microscope", Stock: 1, Status: equipment.StatusAvailable}}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = schedule.NewService(repo, items, publisher, time.UTC, logger).
			WithClock(func() time.Time { return now })

		student = &coreuser.Identity{UserID: 1, Role: coreuser.RoleStudent}
		other = &coreuser.Identity{UserID: 2, Role: coreuser.RoleStudent}
		staff = &coreuser.Identity{UserID: 3, Role: coreuser.RoleLabStaff}
	})

	Describe("CreateReservation", func() {
		It("creates a pending booking", func() {
			r, err := service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 12)))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Status).To(Equal(schedule.StatusPending))
			Expect(r.Kind).To(Equal(schedule.KindBooking))
			Expect(r.RecurrenceInterval).To(Equal(1))
		})

		It("refuses a window overlapping an approved reservation on the same equipment", func() {
			first, err := service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 12)))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, staff, first.ID, schedule.DecisionDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateReservation(ctx, other, booking(at(3, 11), at(3, 13)))
			Expect(err).To(MatchError(errors.ErrReservationConflict))

			_, err = service.CreateReservation(ctx, other, booking(at(3, 12), at(3, 14)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("checks every occurrence of a recurring request", func() {
			_, err := service.CreateReservation(ctx, student, booking(at(15, 9), at(15, 10)))
			Expect(err).NotTo(HaveOccurred())

			weekly := booking(at(1, 9), at(1, 10))
			weekly.RecurrenceType = schedule.RecurrenceWeekly
			_, err = service.CreateReservation(ctx, other, weekly)
			Expect(err).To(MatchError(errors.ErrReservationConflict))

			weekly.StartTime, weekly.EndTime = at(2, 9), at(2, 10)
			_, err = service.CreateReservation(ctx, other, weekly)
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses a booking inside a multi-day window of a recurring series", func() {
			maintenance := booking(at(8, 8), at(10, 17))
			maintenance.Title = "calibration"
			maintenance.Kind = schedule.KindMaintenance
			maintenance.RecurrenceType = schedule.RecurrenceWeekly
			_, err := service.CreateReservation(ctx, staff, maintenance)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateReservation(ctx, student, booking(at(9, 10), at(9, 11)))
			Expect(err).To(MatchError(errors.ErrReservationConflict))
			_, err = service.CreateReservation(ctx, student, booking(at(16, 10), at(16, 11)))
			Expect(err).To(MatchError(errors.ErrReservationConflict))

			_, err = service.CreateReservation(ctx, student, booking(at(11, 10), at(11, 11)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("ignores cancelled reservations", func() {
			first, _ := service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 12)))
			_, err := service.Cancel(ctx, student, first.ID, schedule.DecisionDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateReservation(ctx, other, booking(at(3, 9), at(3, 12)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps maintenance for staff and approves it straight away", func() {
			dto := booking(at(4, 8), at(4, 17))
			dto.Kind = schedule.KindMaintenance

			_, err := service.CreateReservation(ctx, student, dto)
			Expect(err).To(MatchError(errors.ErrForbidden))

			r, err := service.CreateReservation(ctx, staff, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Status).To(Equal(schedule.StatusApproved))
		})

		It("validates the window", func() {
			_, err := service.CreateReservation(ctx, student, booking(at(3, 12), at(3, 9)))
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))

			now = at(10, 8)
			_, err = service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 12)))
			Expect(err).To(HaveOccurred())
		})

		It("reports unknown equipment and missing identity", func() {
			dto := booking(at(3, 9), at(3, 12))
			dto.EquipmentID = 404
			_, err := service.CreateReservation(ctx, student, dto)
			Expect(err).To(MatchError(errors.ErrEquipmentNotFound))

			_, err = service.CreateReservation(ctx, nil, booking(at(3, 9), at(3, 12)))
			Expect(err).To(MatchError(errors.ErrUnauthenticated))
		})
	})

	Describe("transitions", func() {
		var pending *schedule.Reservation

		BeforeEach(func() {
			var err error
			pending, err = service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 12)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("publishes staff decisions", func() {
			approved, err := service.Approve(ctx, staff, pending.ID, schedule.DecisionDTO{Note: "bring your own slides"})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(schedule.StatusApproved))
			Expect(*approved.DecidedBy).To(Equal(staff.UserID))

			Expect(publisher.events).To(HaveLen(1))
			decided := publisher.events[0].(*events.ReservationDecidedEvent)
			Expect(decided.UserID).To(Equal(student.UserID))
			Expect(decided.Status).To(Equal("approved"))
			Expect(decided.Note).To(Equal("bring your own slides"))
		})

		It("limits decisions to staff", func() {
			_, err := service.Approve(ctx, student, pending.ID, schedule.DecisionDTO{})
			Expect(err).To(MatchError(errors.ErrForbidden))
			_, err = service.Reject(ctx, nil, pending.ID, schedule.DecisionDTO{})
			Expect(err).To(MatchError(errors.ErrUnauthenticated))
		})

		It("treats a pending reservation as holding its window", func() {
			rival, err := service.CreateReservation(ctx, other, booking(at(3, 10), at(3, 11)))
			Expect(err).To(MatchError(errors.ErrReservationConflict))
			Expect(rival).To(BeNil())
		})

		It("lets only the owner or staff cancel", func() {
			_, err := service.Cancel(ctx, other, pending.ID, schedule.DecisionDTO{})
			Expect(err).To(MatchError(errors.ErrForbidden))

			cancelled, err := service.Cancel(ctx, student, pending.ID, schedule.DecisionDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.Status).To(Equal(schedule.StatusCancelled))
			Expect(publisher.events).To(BeEmpty())
		})

		It("shows a reservation only to its owner and staff", func() {
			got, err := service.GetByID(ctx, student, pending.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(pending.ID))

			_, err = service.GetByID(ctx, staff, pending.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetByID(ctx, other, pending.ID)
			Expect(err).To(MatchError(errors.ErrForbidden))
			_, err = service.GetByID(ctx, nil, pending.ID)
			Expect(err).To(MatchError(errors.ErrUnauthenticated))
		})

		It("completes only approved reservations", func() {
			_, err := service.Complete(ctx, staff, pending.ID, schedule.DecisionDTO{})
			Expect(err).To(MatchError(errors.ErrInvalidReservationStatus))

			_, _ = service.Approve(ctx, staff, pending.ID, schedule.DecisionDTO{})
			completed, err := service.Complete(ctx, staff, pending.ID, schedule.DecisionDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(completed.Status).To(Equal(schedule.StatusCompleted))
		})

		It("cannot reopen a rejected reservation", func() {
			_, err := service.Reject(ctx, staff, pending.ID, schedule.DecisionDTO{Note: "exam week"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Approve(ctx, staff, pending.ID, schedule.DecisionDTO{})
			Expect(err).To(MatchError(errors.ErrInvalidReservationStatus))
			_, err = service.Cancel(ctx, student, pending.ID, schedule.DecisionDTO{})
			Expect(err).To(MatchError(errors.ErrInvalidReservationStatus))
		})
	})

	Describe("Calendar", func() {
		It("expands series and hides cancelled reservations", func() {
			weekly := booking(at(1, 14), at(1, 15))
			weekly.RecurrenceType = schedule.RecurrenceWeekly
			weekly.Kind = schedule.KindMaintenance
			_, err := service.CreateReservation(ctx, staff, weekly)
			Expect(err).NotTo(HaveOccurred())

			oneOff, err := service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 10)))
			Expect(err).NotTo(HaveOccurred())
			dropped, err := service.CreateReservation(ctx, student, booking(at(4, 9), at(4, 10)))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Cancel(ctx, student, dropped.ID, schedule.DecisionDTO{})
			Expect(err).NotTo(HaveOccurred())

			occ, err := service.Calendar(ctx, student, schedule.CalendarQuery{From: at(1, 0), To: at(22, 0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(occ).To(HaveLen(5))
			Expect(occ[1].ReservationID).To(Equal(oneOff.ID))

			for _, o := range occ {
				Expect(o.ReservationID).NotTo(Equal(dropped.ID))
			}
		})

		It("filters by user", func() {
			_, _ = service.CreateReservation(ctx, student, booking(at(3, 9), at(3, 10)))
			_, _ = service.CreateReservation(ctx, other, booking(at(5, 9), at(5, 10)))

			owner := other.UserID
			occ, err := service.Calendar(ctx, staff, schedule.CalendarQuery{From: at(1, 0), To: at(31, 0), UserID: &owner})
			Expect(err).NotTo(HaveOccurred())
			Expect(occ).To(HaveLen(1))
			Expect(occ[0].UserID).To(Equal(owner))
		})

		It("rejects an inverted range", func() {
			_, err := service.Calendar(ctx, student, schedule.CalendarQuery{From: at(10, 0), To: at(1, 0)})
			Expect(err).To(HaveOccurred())
		})
	})
})
