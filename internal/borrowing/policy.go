package borrowing

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Limits struct {
	MaxItems int `json:"max_items"`
}

// PenaltySchedule turns whole days late into an amount. Implementations must
// return 0 for zero days and never decrease as days grow.
type PenaltySchedule interface {
	Amount(daysLate int) int64
}

// RateTier charges RatePerDay for every late day from FromDay onward, until the
// next tier starts.
type RateTier struct {
	FromDay    int   `json:"from_day"`
	RatePerDay int64 `json:"rate_per_day"`
}

// TieredRate is the default schedule. A zero Cap means uncapped.
type TieredRate struct {
	Tiers []RateTier
	Cap   int64
}

func NewTieredRate(maxAmount int64, tiers ...RateTier) *TieredRate {
	sorted := make([]RateTier, 0, len(tiers))
	for _, t := range tiers {
		if t.FromDay < 1 || t.RatePerDay < 0 {
			continue
		}
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FromDay < sorted[j].FromDay })
	if maxAmount < 0 {
		maxAmount = 0
	}
	return &TieredRate{Tiers: sorted, Cap: maxAmount}
}

func (r *TieredRate) Amount(daysLate int) int64 {
	if daysLate <= 0 {
		return 0
	}

	var total int64
	for i, tier := range r.Tiers {
		if tier.FromDay > daysLate {
			break
		}
		last := daysLate
		if i+1 < len(r.Tiers) && r.Tiers[i+1].FromDay-1 < last {
			last = r.Tiers[i+1].FromDay - 1
		}
		total += int64(last-tier.FromDay+1) * tier.RatePerDay
	}

	if r.Cap > 0 && total > r.Cap {
		return r.Cap
	}
	return total
}

// Policy bundles the per-role limits and penalty rules.
type Policy struct {
	roleLimits   map[coreuser.Role]int
	defaultLimit int
	schedule     PenaltySchedule
	printer      *message.Printer
	currency     string
	loc          *time.Location
}

type PolicyOption func(*Policy)

func WithSchedule(s PenaltySchedule) PolicyOption {
	return func(p *Policy) { p.schedule = s }
}

func WithLocation(loc *time.Location) PolicyOption {
	return func(p *Policy) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithRoleLimit(role coreuser.Role, maxItems int) PolicyOption {
	return func(p *Policy) { p.roleLimits[role] = maxItems }
}

// DefaultPolicy mirrors the shipped config.yml.
func DefaultPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		roleLimits: map[coreuser.Role]int{
			coreuser.RoleStudent:  3,
			coreuser.RoleLecturer: 5,
			coreuser.RoleLabStaff: 10,
			coreuser.RoleAdmin:    10,
		},
		defaultLimit: 2,
		schedule:     NewTieredRate(0, RateTier{FromDay: 1, RatePerDay: 5000}, RateTier{FromDay: 8, RatePerDay: 10000}),
		printer:      message.NewPrinter(language.Indonesian),
		currency:     "Rp",
		loc:          time.UTC,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func NewPolicyFromConfig(cfg internal.BorrowingConfig) *Policy {
	p := DefaultPolicy(WithLocation(cfg.Location()))

	if cfg.DefaultLimit > 0 {
		p.defaultLimit = cfg.DefaultLimit
	}
	for role, limit := range cfg.RoleLimits {
		p.roleLimits[coreuser.Role(strings.ToLower(role))] = limit
	}

	if len(cfg.Penalty.Tiers) > 0 {
		tiers := make([]RateTier, len(cfg.Penalty.Tiers))
		for i, t := range cfg.Penalty.Tiers {
			tiers[i] = RateTier{FromDay: t.FromDay, RatePerDay: t.RatePerDay}
		}
		p.schedule = NewTieredRate(cfg.Penalty.MaxAmount, tiers...)
	}
	if cfg.Penalty.Locale != "" {
		p.printer = message.NewPrinter(language.Make(cfg.Penalty.Locale))
	}
	if cfg.Penalty.Currency != "" {
		p.currency = cfg.Penalty.Currency
	}
	return p
}

func (p *Policy) LimitsForRole(role coreuser.Role) Limits {
	if limit, ok := p.roleLimits[role]; ok {
		return Limits{MaxItems: limit}
	}
	return Limits{MaxItems: p.defaultLimit}
}

func (p *Policy) Location() *time.Location {
	return p.loc
}

// Today is midnight of now's calendar day in the policy timezone.
func (p *Policy) Today(now time.Time) time.Time {
	return dateOf(now, p.loc)
}

// DaysLate counts whole calendar days between the due date and the actual return.
func (p *Policy) DaysLate(expected, actual time.Time) int {
	due := dateOf(expected, p.loc)
	returned := dateOf(actual, p.loc)
	if !returned.After(due) {
		return 0
	}
	// calendar arithmetic in UTC avoids DST-length days
	dy, dm, dd := due.Date()
	ry, rm, rd := returned.Date()
	a := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (p *Policy) CalculatePenalty(expected, actual time.Time) int64 {
	return p.schedule.Amount(p.DaysLate(expected, actual))
}

// FormatPenalty renders an amount for display, e.g. "Rp 50.000".
func (p *Policy) FormatPenalty(amount int64) string {
	return p.currency + " " + p.printer.Sprintf("%d", amount)
}
