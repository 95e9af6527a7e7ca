package borrowing

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal/core/events"
)

type ReminderStats struct {
	Scanned int `json:"scanned"`
	Overdue int `json:"overdue"`
	DueSoon int `json:"due_soon"`
}

// Reminder scans active loans and raises reminder events for the ones that are
// overdue or due tomorrow.
type Reminder struct {
	repo      Repository
	equipment EquipmentReader
	policy    *Policy
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReminder(repo Repository, equipmentReader EquipmentReader, policy *Policy, publisher events.Publisher, logger *slog.Logger) *Reminder {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		repo:      repo,
		equipment: equipmentReader,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Reminder) WithClock(now func() time.Time) *Reminder {
	r.now = now
	return r
}

// WithPublisher swaps where reminder events go.
func (r *Reminder) WithPublisher(publisher events.Publisher) *Reminder {
	r.publisher = publisher
	return r
}

func (r *Reminder) RunOnce(ctx context.Context) (ReminderStats, error) {
	var stats ReminderStats

	active, err := r.repo.ListActive(ctx)
	if err != nil {
		return stats, err
	}

	now := r.now()
	tomorrow := r.policy.Today(now).AddDate(0, 0, 1)
	names := map[int64]string{}

	for _, t := range active {
		stats.Scanned++

		daysLate := r.policy.DaysLate(t.ExpectedReturnDate, now)
		dueTomorrow := r.policy.Today(t.ExpectedReturnDate).Equal(tomorrow)
		if daysLate == 0 && !dueTomorrow {
			continue
		}

		name, ok := names[t.EquipmentID]
		if !ok {
			if item, err := r.equipment.GetByID(ctx, t.EquipmentID); err == nil {
				name = item.Name
			}
			names[t.EquipmentID] = name
		}

		penalty := r.policy.FormatPenalty(r.policy.CalculatePenalty(t.ExpectedReturnDate, now))
		event := events.NewBorrowReminderEvent(t.ID, t.UserID, name, t.ExpectedReturnDate, daysLate > 0, daysLate, penalty)
		if r.publisher != nil {
			if err := r.publisher.Publish(ctx, event); err != nil {
				r.logger.Error("failed to publish reminder", "error", err, "transaction_id", t.ID)
				continue
			}
		}

		if daysLate > 0 {
			stats.Overdue++
		} else {
			stats.DueSoon++
		}
	}

	r.logger.Info("reminder scan finished", "scanned", stats.Scanned, "overdue", stats.Overdue, "due_soon", stats.DueSoon)
	return stats, nil
}

// Run repeats RunOnce on every tick until ctx is done.
func (r *Reminder) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("reminder scan failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("reminder scan failed", "error", err)
			}
		}
	}
}
