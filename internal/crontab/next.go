package crontab

import "time"

// searchYears bounds Next. A schedule that cannot fire within this many
// years (such as February 30) is reported as never firing.
const searchYears = 8

// Next returns the earliest minute at or after from that satisfies every
// field of e, in from's location. Seconds of from are ignored. It reports
// false for @reboot entries and for schedules with no occurrence inside the
// search horizon. A minute that falls in a spring-forward gap is returned
// as the normalized wall time one hour later (02:30 becomes 03:30), which
// Matches then rejects.
func (e *Entry) Next(from time.Time) (time.Time, bool) {
	if e.IsReboot() || e.Minute.IsZero() || e.Hour.IsZero() || e.Month.IsZero() {
		return time.Time{}, false
	}
	loc := from.Location()
	floor := floorMinute(from)

	y, mo, d := from.Date()
	h, m, _ := from.Clock()
	mon := int(mo)
	limit := y + searchYears

	for y <= limit {
		next, ok := e.Month.nextFrom(mon, LastMonth)
		if !ok {
			y, mon, d, h, m = y+1, FirstMonth, 1, 0, 0
			continue
		}
		if next != mon {
			mon, d, h, m = next, 1, 0, 0
		}

		if d > daysIn(y, mon) {
			mon, d, h, m = mon+1, 1, 0, 0
			if mon > LastMonth {
				y, mon = y+1, FirstMonth
			}
			continue
		}
		if !e.dayMatches(y, mon, d) {
			d, h, m = d+1, 0, 0
			continue
		}

		hour, ok := e.Hour.nextFrom(h, LastHour)
		if !ok {
			d, h, m = d+1, 0, 0
			continue
		}
		if hour != h {
			h, m = hour, 0
		}

		minute, ok := e.Minute.nextFrom(m, LastMinute)
		if !ok {
			h, m = h+1, 0
			if h > LastHour {
				d, h = d+1, 0
			}
			continue
		}

		t := time.Date(y, time.Month(mon), d, h, minute, 0, 0, loc)
		// Wall clocks repeat when DST ends; never step back past from.
		if t.Before(floor) {
			m = minute + 1
			if m > LastMinute {
				h, m = h+1, 0
				if h > LastHour {
					d, h = d+1, 0
				}
			}
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// NextN returns up to n successive activations starting at from.
func (e *Entry) NextN(from time.Time, n int) []time.Time {
	var out []time.Time
	for len(out) < n {
		t, ok := e.Next(from)
		if !ok {
			break
		}
		out = append(out, t)
		from = t.Add(time.Minute)
	}
	return out
}

// Matches reports whether e fires during the minute containing t. It reads
// t's wall clock as is, so it does not undo the gap shift Next applies.
func (e *Entry) Matches(t time.Time) bool {
	if e.IsReboot() {
		return false
	}
	y, mo, d := t.Date()
	h, m, _ := t.Clock()
	return e.Month.Has(int(mo)) &&
		e.dayMatches(y, int(mo), d) &&
		e.Hour.Has(h) &&
		e.Minute.Has(m)
}

// dayMatches applies the day-of-month / day-of-week rule: if either field
// was written starting with '*' both must match, otherwise either may.
func (e *Entry) dayMatches(y, mon, d int) bool {
	dow := int(time.Date(y, time.Month(mon), d, 12, 0, 0, 0, time.UTC).Weekday())
	domOK := e.Dom.Has(d)
	dowOK := e.Dow.Has(dow)
	if e.Flags.Has(DomStar) || e.Flags.Has(DowStar) {
		return domOK && dowOK
	}
	return domOK || dowOK
}

func daysIn(y, mon int) int {
	return time.Date(y, time.Month(mon)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorMinute(t time.Time) time.Time {
	return t.Add(-time.Duration(t.Second())*time.Second - time.Duration(t.Nanosecond()))
}
