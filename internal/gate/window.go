package gate

import (
	"context"
	"fmt"
	"time"
)

// TimeWindowGate restricts stage execution to a window of UTC hours.
// With StartHour > EndHour the window wraps around midnight
// (e.g. 22:00-06:00).
//
// Each check re-reads the clock, so tests must inject a fixed one.
type TimeWindowGate struct {
	startHour int
	endHour   int
	enabled   bool
	clock     func() time.Time
}

// NewTimeWindowGate creates an enabled gate allowing execution when
// startHour <= current UTC hour < endHour.
func NewTimeWindowGate(startHour, endHour int) *TimeWindowGate {
	return &TimeWindowGate{
		startHour: startHour,
		endHour:   endHour,
		enabled:   true,
		clock:     time.Now,
	}
}

// WithClock replaces the wall clock, for deterministic tests.
func (g *TimeWindowGate) WithClock(clock func() time.Time) *TimeWindowGate {
	g.clock = clock
	return g
}

// SetEnabled toggles the gate. A disabled gate allows everything.
func (g *TimeWindowGate) SetEnabled(enabled bool) *TimeWindowGate {
	g.enabled = enabled
	return g
}

func (g *TimeWindowGate) Name() string { return "time-window" }
func (g *TimeWindowGate) Type() Type   { return TypeTime }

// Allow checks the current UTC hour against the configured window.
func (g *TimeWindowGate) Allow(ctx context.Context, stage Descriptor) Decision {
	if !g.enabled {
		return Allow("gate disabled")
	}

	hour := g.clock().UTC().Hour()

	var allowed bool
	if g.startHour <= g.endHour {
		allowed = g.startHour <= hour && hour < g.endHour
	} else {
		// Overnight window, e.g. 22:00 to 06:00.
		allowed = hour >= g.startHour || hour < g.endHour
	}

	window := fmt.Sprintf("%02d:00-%02d:00 UTC", g.startHour, g.endHour)
	if !allowed {
		return Deny(fmt.Sprintf("current hour %d outside window %s", hour, window))
	}
	return Allow(fmt.Sprintf("within window %s", window))
}

// TimeOfDay is a minute-resolution time of day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ScheduleGate is the finer-grained variant of TimeWindowGate: explicit
// hour:minute bounds, an allowed-weekday set, and a fixed UTC offset for
// "local" time. Useful for maintenance windows and SOC staffing hours.
type ScheduleGate struct {
	start          TimeOfDay
	end            TimeOfDay
	allowedDays    map[time.Weekday]bool
	utcOffsetHours int
	clock          func() time.Time
}

// NewScheduleGate creates a gate allowing execution on the given weekdays
// between start (inclusive) and end (exclusive) in the offset-shifted
// local time. A nil days slice defaults to Monday through Friday.
func NewScheduleGate(start, end TimeOfDay, days []time.Weekday, utcOffsetHours int) *ScheduleGate {
	if days == nil {
		days = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	allowed := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		allowed[d] = true
	}
	return &ScheduleGate{
		start:          start,
		end:            end,
		allowedDays:    allowed,
		utcOffsetHours: utcOffsetHours,
		clock:          time.Now,
	}
}

// WithClock replaces the wall clock, for deterministic tests.
func (g *ScheduleGate) WithClock(clock func() time.Time) *ScheduleGate {
	g.clock = clock
	return g
}

func (g *ScheduleGate) Name() string { return "schedule" }
func (g *ScheduleGate) Type() Type   { return TypeTime }

// Allow checks the offset-shifted weekday and time of day.
func (g *ScheduleGate) Allow(ctx context.Context, stage Descriptor) Decision {
	local := g.clock().UTC().Add(time.Duration(g.utcOffsetHours) * time.Hour)

	if !g.allowedDays[local.Weekday()] {
		return Deny(fmt.Sprintf("%s not in allowed days", local.Weekday()))
	}

	now := local.Hour()*60 + local.Minute()
	if now < g.start.minutes() || now >= g.end.minutes() {
		return Deny(fmt.Sprintf("%02d:%02d outside window %s-%s",
			local.Hour(), local.Minute(), g.start, g.end))
	}

	return Allow(fmt.Sprintf("within window %s-%s", g.start, g.end))
}
