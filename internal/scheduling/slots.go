package scheduling

import (
	"sort"
	"time"
)

// SlotInterval is the booking granularity.
const SlotInterval = 30 * time.Minute

// GenerateSlots expands a doctor's recurring weekly hours into the concrete
// bookable instants between now and now + horizonDays. Every instant is
// 30-minute aligned within its window and strictly after now; on the current
// (partially elapsed) day enumeration starts at the next half-hour boundary
// at or after now instead of the window's nominal start. Overlapping windows
// may yield duplicate instants; availability filtering downstream is
// idempotent, so they are left in place.
func GenerateSlots(hours []WeeklyHour, now time.Time, horizonDays int) []time.Time {
	var slots []time.Time

	loc := now.Location()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	last := day.AddDate(0, 0, horizonDays)

	for d := day; !d.After(last); d = d.AddDate(0, 0, 1) {
		weekday := d.Weekday()

		for _, h := range hours {
			if h.Weekday != weekday {
				continue
			}

			current := at(d, h.Start, loc)
			limit := at(d, h.End, loc)

			if current.Before(now) {
				current = ceilToInterval(now, SlotInterval)
			}

			for !current.After(limit) {
				if current.After(now) {
					slots = append(slots, current)
				}
				current = current.Add(SlotInterval)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })

	return slots
}

// at combines a calendar day with the time-of-day carried by t.
func at(day, t time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// ceilToInterval rounds t up to the next multiple of d, leaving t untouched
// when it is already aligned.
func ceilToInterval(t time.Time, d time.Duration) time.Time {
	rounded := t.Truncate(d)
	if rounded.Before(t) {
		rounded = rounded.Add(d)
	}
	return rounded
}
