package duty

import (
	"fmt"
	"time"
)

const autoKeyDateLayout = "2006-01-02"

type RunTime struct {
	Hour   int
	Minute int
}

func (rt RunTime) String() string {
	return fmt.Sprintf("%02d:%02d", rt.Hour, rt.Minute)
}

// DefaultRunTimes are the morning and afternoon auto-draw times.
var DefaultRunTimes = []RunTime{
	{Hour: 8, Minute: 15},
	{Hour: 13, Minute: 15},
}

// Schedule decides when an automatic draw may run. All checks happen in Location.
type Schedule struct {
	Location *time.Location
	RunTimes []RunTime // ascending
}

func NewSchedule(loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return Schedule{Location: loc, RunTimes: DefaultRunTimes}
}

func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SlotAt maps a run time to its slot: the 8 o'clock run is the morning one,
// anything else is the afternoon one.
func SlotAt(t time.Time) Slot {
	if t.Hour() == 8 {
		return SlotMorning
	}
	return SlotAfternoon
}

// Check reports whether an automatic draw may run at now. The match is exact to the minute.
func (s Schedule) Check(now time.Time) (Slot, bool, string) {
	local := now.In(s.Location)
	if !IsBusinessDay(local) {
		return "", false, fmt.Sprintf("not a business day (%s)", local.Weekday())
	}
	for _, rt := range s.RunTimes {
		if local.Hour() == rt.Hour && local.Minute() == rt.Minute {
			return SlotAt(local), true, ""
		}
	}
	return "", false, fmt.Sprintf("not the right time (%s, runs at %s)", local.Format("15:04"), s.runTimesString())
}

// NextRun returns the first run time strictly after now, skipping weekends.
func (s Schedule) NextRun(now time.Time) time.Time {
	local := now.In(s.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Location)
	for i := 0; i < 8; i++ {
		d := day.AddDate(0, 0, i)
		if !IsBusinessDay(d) {
			continue
		}
		for _, rt := range s.RunTimes {
			run := time.Date(d.Year(), d.Month(), d.Day(), rt.Hour, rt.Minute, 0, 0, s.Location)
			if run.After(local) {
				return run
			}
		}
	}
	// unreachable with at least one run time
	return time.Time{}
}

// AutoKey identifies the auto selection of one slot on one local day.
func (s Schedule) AutoKey(t time.Time, slot Slot) string {
	return t.In(s.Location).Format(autoKeyDateLayout) + "/" + string(slot)
}

func (s Schedule) runTimesString() string {
	var out string
	for i, rt := range s.RunTimes {
		if i > 0 {
			out += ", "
		}
		out += rt.String()
	}
	return out
}
