package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/firestige/taskctl/internal/catalog"
)

var weekdayByUnit = map[catalog.ScheduleUnit]time.Weekday{
	catalog.UnitSunday:    time.Sunday,
	catalog.UnitMonday:    time.Monday,
	catalog.UnitTuesday:   time.Tuesday,
	catalog.UnitWednesday: time.Wednesday,
	catalog.UnitThursday:  time.Thursday,
	catalog.UnitFriday:    time.Friday,
	catalog.UnitSaturday:  time.Saturday,
}

// initialNextFire computes a schedule entry's first fire time, given
// the moment the scheduler was (re)started.
//
// seconds/minutes/hours/days: first fire at load_time + interval
// units (spec.md §4.5).
// weekday units: the next occurrence of that weekday at the "at"
// anchor (default 00:00), honoring the interval-in-weeks cadence from
// the load time forward.
func initialNextFire(sched catalog.Schedule, load time.Time) time.Time {
	if sched.Unit.IsWeekday() {
		return nextWeekdayOccurrence(sched, load)
	}
	return load.Add(unitDuration(sched.Unit) * time.Duration(sched.Interval))
}

// nextFireAfter computes the next fire time following a fire that was
// due at prevFire (observed at now).
func nextFireAfter(sched catalog.Schedule, prevFire, now time.Time) time.Time {
	if sched.Unit.IsWeekday() {
		base := prevFire.AddDate(0, 0, 7*maxInt(sched.Interval, 1))
		return nextWeekdayOccurrence(sched, base.Add(-24*time.Hour))
	}
	next := prevFire.Add(unitDuration(sched.Unit) * time.Duration(sched.Interval))
	// Guard against a long scheduler pause (e.g. process suspended):
	// never schedule a fire time still in the past.
	for !next.After(now) {
		next = next.Add(unitDuration(sched.Unit) * time.Duration(sched.Interval))
	}
	return next
}

func unitDuration(u catalog.ScheduleUnit) time.Duration {
	switch u {
	case catalog.UnitSeconds:
		return time.Second
	case catalog.UnitMinutes:
		return time.Minute
	case catalog.UnitHours:
		return time.Hour
	case catalog.UnitDays:
		return 24 * time.Hour
	}
	return time.Second
}

func nextWeekdayOccurrence(sched catalog.Schedule, after time.Time) time.Time {
	target := weekdayByUnit[sched.Unit]
	hour, minute, second := parseAt(sched.At)

	anchor := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, second, 0, after.Location())
	daysAhead := (int(target) - int(after.Weekday()) + 7) % 7
	candidate := anchor.AddDate(0, 0, daysAhead)
	if !candidate.After(after) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func parseAt(at string) (hour, minute, second int) {
	if at == "" {
		return 0, 0, 0
	}
	parts := strings.Split(at, ":")
	if len(parts) >= 1 {
		hour, _ = strconv.Atoi(parts[0])
	}
	if len(parts) >= 2 {
		minute, _ = strconv.Atoi(parts[1])
	}
	if len(parts) >= 3 {
		second, _ = strconv.Atoi(parts[2])
	}
	return hour, minute, second
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
