package schedule

import "time"

// MaxOccurrences bounds a single expansion.
const MaxOccurrences = 1000

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Expand materializes the occurrences of r that fall in the day range
// [from, to], both ends inclusive. A one-off reservation is returned when its
// day span touches the range. Recurring ones yield every step whose start
// lies in the range, stepping from the original start so that month-end
// clamping never drifts.
func Expand(r *Reservation, from, to time.Time, loc *time.Location) []Occurrence {
	return expand(r, from, to, loc, false)
}

// ExpandOverlapping is Expand for conflict checks: a recurring step is also
// kept when it starts before the range but is still running inside it.
func ExpandOverlapping(r *Reservation, from, to time.Time, loc *time.Location) []Occurrence {
	return expand(r, from, to, loc, true)
}

func expand(r *Reservation, from, to time.Time, loc *time.Location, spanning bool) []Occurrence {
	if loc == nil {
		loc = time.UTC
	}
	rangeStart := StartOfDay(from, loc)
	rangeEnd := EndOfDay(to, loc)
	if rangeEnd.Before(rangeStart) {
		return nil
	}

	duration := r.EndTime.Sub(r.StartTime)

	if !r.Recurring() {
		if StartOfDay(r.StartTime, loc).After(rangeEnd) || EndOfDay(r.EndTime, loc).Before(rangeStart) {
			return nil
		}
		return []Occurrence{occurrence(r, r.StartTime, duration)}
	}

	interval := r.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}

	limit := rangeEnd
	if r.RecurrenceEnd != nil {
		if end := EndOfDay(*r.RecurrenceEnd, loc); end.Before(limit) {
			limit = end
		}
	}

	start := r.StartTime.In(loc)
	first := rangeStart
	if spanning {
		first = rangeStart.Add(-duration)
	}
	var out []Occurrence
	for k := skipAhead(r.RecurrenceType, start, first, interval); len(out) < MaxOccurrences; k++ {
		at := step(start, r.RecurrenceType, k*interval)
		if at.After(limit) {
			break
		}
		if at.Before(rangeStart) && (!spanning || !at.Add(duration).After(rangeStart)) {
			continue
		}
		out = append(out, occurrence(r, at, duration))
	}
	return out
}

func occurrence(r *Reservation, at time.Time, duration time.Duration) Occurrence {
	return Occurrence{
		ReservationID: r.ID,
		EquipmentID:   r.EquipmentID,
		UserID:        r.UserID,
		Title:         r.Title,
		Kind:          r.Kind,
		Status:        r.Status,
		Start:         at,
		End:           at.Add(duration),
		Recurring:     r.Recurring(),
	}
}

func step(start time.Time, kind RecurrenceType, n int) time.Time {
	switch kind {
	case RecurrenceDaily:
		return start.AddDate(0, 0, n)
	case RecurrenceWeekly:
		return start.AddDate(0, 0, 7*n)
	case RecurrenceMonthly:
		return addMonthsClamped(start, n)
	case RecurrenceYearly:
		return addMonthsClamped(start, 12*n)
	}
	return start
}

// addMonthsClamped moves t by n calendar months, pulling the day back to the
// last day of the target month when it does not exist there.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// skipAhead returns a step index at or before the first one that can land in
// the range, so long-running series do not iterate from their first week.
func skipAhead(kind RecurrenceType, start, rangeStart time.Time, interval int) int {
	if !rangeStart.After(start) {
		return 0
	}

	var k int
	switch kind {
	case RecurrenceDaily, RecurrenceWeekly:
		days := int(rangeStart.Sub(StartOfDay(start, start.Location())).Hours() / 24)
		if kind == RecurrenceWeekly {
			days /= 7
		}
		k = days/interval - 1
	case RecurrenceMonthly:
		months := (rangeStart.Year()-start.Year())*12 + int(rangeStart.Month()-start.Month())
		k = months/interval - 1
	case RecurrenceYearly:
		k = (rangeStart.Year()-start.Year())/interval - 1
	}
	if k < 0 {
		return 0
	}
	return k
}
