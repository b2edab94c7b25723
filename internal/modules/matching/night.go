package matching

import "time"

const (
	defaultNightStartHour = 22
	defaultNightEndHour   = 6
)

// IsNightHour reports whether a wall-clock hour (0-23) falls in the default 22:00-06:00
// night window. The start hour is inclusive and the end hour exclusive.
func IsNightHour(hour int) bool {
	return DefaultNightWindow(time.UTC).containsHour(hour)
}

// NightWindow is a wall-clock interval evaluated in Location. When StartHour > EndHour the
// window wraps past midnight.
type NightWindow struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

func DefaultNightWindow(loc *time.Location) NightWindow {
	return NightWindow{StartHour: defaultNightStartHour, EndHour: defaultNightEndHour, Location: loc}
}

// Contains reports whether t falls inside the window, using t's wall clock in w.Location.
func (w NightWindow) Contains(t time.Time) bool {
	return w.containsHour(t.In(w.location()).Hour())
}

func (w NightWindow) containsHour(hour int) bool {
	switch {
	case w.StartHour == w.EndHour:
		return false
	case w.StartHour < w.EndHour:
		return hour >= w.StartHour && hour < w.EndHour
	default:
		return hour >= w.StartHour || hour < w.EndHour
	}
}

// RosterDate is the calendar date whose night-guard roster applies at t.
func (w NightWindow) RosterDate(t time.Time) time.Time {
	local := t.In(w.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (w NightWindow) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}
