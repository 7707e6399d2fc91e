package domain

import (
	"errors"
	"sort"
	"time"
)

// CalendarPolicy is the fixed weekly grid of bookable hours shared by every provider.
type CalendarPolicy struct {
	Hours       []int
	WorkingDays []time.Weekday
	Location    *time.Location
}

func DefaultCalendarPolicy() CalendarPolicy {
	return CalendarPolicy{
		Hours: []int{9, 10, 11, 12, 14, 15, 16},
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		Location: time.Local,
	}
}

func NewCalendarPolicy(hours []int, days []time.Weekday, loc *time.Location) (CalendarPolicy, error) {
	if len(hours) == 0 {
		return CalendarPolicy{}, errors.New("calendar: at least one bookable hour is required")
	}
	if len(days) == 0 {
		return CalendarPolicy{}, errors.New("calendar: at least one working day is required")
	}

	seen := make(map[int]struct{}, len(hours))
	normalized := make([]int, 0, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 {
			return CalendarPolicy{}, errors.New("calendar: hour out of range")
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		normalized = append(normalized, h)
	}
	sort.Ints(normalized)

	if loc == nil {
		loc = time.Local
	}
	return CalendarPolicy{
		Hours:       normalized,
		WorkingDays: append([]time.Weekday(nil), days...),
		Location:    loc,
	}, nil
}

func (p CalendarPolicy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p CalendarPolicy) IsWorkingDay(d time.Weekday) bool {
	for _, wd := range p.WorkingDays {
		if wd == d {
			return true
		}
	}
	return false
}

// Day returns midnight in the policy's clock of the date t carries in its own zone.
// Neither t's zone nor its time of day can move it to a neighbouring date.
func (p CalendarPolicy) Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.location())
}

// SlotsOn returns the bookable start times of day in ascending order. Only the calendar
// date of day is read.
func (p CalendarPolicy) SlotsOn(day time.Time) []time.Time {
	d := p.Day(day)
	if !p.IsWorkingDay(d.Weekday()) {
		return nil
	}
	out := make([]time.Time, 0, len(p.Hours))
	for _, h := range p.Hours {
		out = append(out, time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, p.location()))
	}
	return out
}

func (p CalendarPolicy) onGrid(t time.Time) bool {
	t = t.In(p.location())
	if t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	for _, h := range p.Hours {
		if h == t.Hour() {
			return true
		}
	}
	return false
}

// IsBookable reports whether t is one of the grid's slot starts. It does not look at the clock.
func (p CalendarPolicy) IsBookable(t time.Time) bool {
	return p.IsWorkingDay(t.In(p.location()).Weekday()) && p.onGrid(t)
}

// CheckSlot explains why t is not bookable at instant now, or returns nil.
func (p CalendarPolicy) CheckSlot(t, now time.Time) error {
	if !p.IsWorkingDay(t.In(p.location()).Weekday()) {
		return ErrNotWorkingDay
	}
	if !p.onGrid(t) {
		return ErrOffGrid
	}
	if !t.After(now) {
		return ErrInPast
	}
	return nil
}

var (
	ErrNotWorkingDay = errors.New("scheduled_at is not on a working day")
	ErrOffGrid       = errors.New("scheduled_at is not a bookable hour")
	ErrInPast        = errors.New("scheduled_at must be in the future")
)
