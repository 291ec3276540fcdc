// Package catalog parses a declarative catalog document into immutable
// Task records (spec component C3).
package catalog

// ArgType is the declared type of a task argument.
type ArgType string

const (
	ArgString ArgType = "str"
	ArgInt    ArgType = "int"
	ArgFloat  ArgType = "float"
	ArgBool   ArgType = "bool"
)

// ArgSpec describes one declared task argument.
type ArgSpec struct {
	Name        string
	Type        ArgType
	Description string
	Default     any // typed value, nil if no (valid) default was declared
}

// ScheduleUnit enumerates the valid schedule-triple units.
type ScheduleUnit string

const (
	UnitSeconds   ScheduleUnit = "seconds"
	UnitMinutes   ScheduleUnit = "minutes"
	UnitHours     ScheduleUnit = "hours"
	UnitDays      ScheduleUnit = "days"
	UnitMonday    ScheduleUnit = "monday"
	UnitTuesday   ScheduleUnit = "tuesday"
	UnitWednesday ScheduleUnit = "wednesday"
	UnitThursday  ScheduleUnit = "thursday"
	UnitFriday    ScheduleUnit = "friday"
	UnitSaturday  ScheduleUnit = "saturday"
	UnitSunday    ScheduleUnit = "sunday"
)

var validUnits = map[ScheduleUnit]bool{
	UnitSeconds: true, UnitMinutes: true, UnitHours: true, UnitDays: true,
	UnitMonday: true, UnitTuesday: true, UnitWednesday: true, UnitThursday: true,
	UnitFriday: true, UnitSaturday: true, UnitSunday: true,
}

// IsWeekday reports whether u names a day of the week rather than a
// plain duration unit.
func (u ScheduleUnit) IsWeekday() bool {
	switch u {
	case UnitMonday, UnitTuesday, UnitWednesday, UnitThursday, UnitFriday, UnitSaturday, UnitSunday:
		return true
	}
	return false
}

// Schedule is one `every <interval> <unit> [at "HH:MM[:SS]"]` triple.
type Schedule struct {
	Interval int
	Unit     ScheduleUnit
	At       string // "HH:MM" or "HH:MM:SS", only meaningful for weekday units
}

// Task is an immutable catalog entry.
type Task struct {
	Name        string
	Type        string // only "subprocess" is specified
	Description string
	Command     []string // templated command vector
	Args        []ArgSpec
	Singleton   bool
	Conflict    []string
	Schedule    []Schedule
}

// DefaultArgs derives the name -> typed-default mapping from Args,
// omitting any argument with no (valid) default.
func (t *Task) DefaultArgs() map[string]any {
	out := make(map[string]any, len(t.Args))
	for _, a := range t.Args {
		if a.Default != nil {
			out[a.Name] = a.Default
		}
	}
	return out
}

// ArgNames returns argument names in the order of Args; parse.go builds
// Args sorted by name, not in the order the catalog document lists them.
func (t *Task) ArgNames() []string {
	names := make([]string, len(t.Args))
	for i, a := range t.Args {
		names[i] = a.Name
	}
	return names
}

// HasConflictWith reports whether name appears in t's conflict set.
func (t *Task) HasConflictWith(name string) bool {
	for _, c := range t.Conflict {
		if c == name {
			return true
		}
	}
	return false
}
