// Package timemodel converts between the venue's fixed local offset and UTC
// instants and handles the midnight end-of-day encoding.
package timemodel

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const MinutesPerDay = 24 * 60

var (
	datePattern  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	clockPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
)

// Date is a local calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Label renders DD/MM/YYYY.
func (d Date) Label() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Model is the fixed-offset venue clock.
type Model struct {
	loc *time.Location
}

// New builds a model for a fixed offset in minutes east of UTC (-180 for UTC-3).
func New(offsetMinutes int) *Model {
	name := fmt.Sprintf("UTC%+03d:%02d", offsetMinutes/60, abs(offsetMinutes%60))
	return &Model{loc: time.FixedZone(name, offsetMinutes*60)}
}

func (m *Model) Location() *time.Location {
	return m.loc
}

// ToUTC returns the instant of the given local wall-clock time.
func (m *Model) ToUTC(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, m.loc).UTC()
}

// MinutesOfDay returns the local time of day of t in [0, 1440).
func (m *Model) MinutesOfDay(t time.Time) int {
	local := t.In(m.loc)
	return local.Hour()*60 + local.Minute()
}

// DateOf returns the local calendar day of t.
func (m *Model) DateOf(t time.Time) Date {
	local := t.In(m.loc)
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// DateLabel renders the local day of t as DD/MM/YYYY.
func (m *Model) DateLabel(t time.Time) string {
	return m.DateOf(t).Label()
}

// ClockLabel renders the local time of t as HH:mm.
func (m *Model) ClockLabel(t time.Time) string {
	return t.In(m.loc).Format("15:04")
}

// DayBounds returns [00:00, next 00:00) of a local day as UTC instants.
func (m *Model) DayBounds(d Date) (time.Time, time.Time) {
	start := m.ToUTC(d.Year, d.Month, d.Day, 0, 0)
	next := d.AddDays(1)
	return start, m.ToUTC(next.Year, next.Month, next.Day, 0, 0)
}

// At returns the instant of minute-of-day on d. 1440 is the next midnight.
func (m *Model) At(d Date, minuteOfDay int) time.Time {
	if minuteOfDay >= MinutesPerDay {
		next := d.AddDays(minuteOfDay / MinutesPerDay)
		minuteOfDay %= MinutesPerDay
		return m.ToUTC(next.Year, next.Month, next.Day, minuteOfDay/60, minuteOfDay%60)
	}
	return m.ToUTC(d.Year, d.Month, d.Day, minuteOfDay/60, minuteOfDay%60)
}

// Interval converts a local [start, end) on d into UTC instants. An end of
// 00:00 means midnight of the following day.
func (m *Model) Interval(d Date, startMinute, endMinute int) (time.Time, time.Time) {
	return m.At(d, startMinute), m.At(d, NormalizeEnd(endMinute))
}

// EndMinutes returns the local minute-of-day of end relative to day d, so that
// an end at the next midnight yields 1440 rather than 0.
func (m *Model) EndMinutes(d Date, end time.Time) int {
	dayStart, dayEnd := m.DayBounds(d)
	if !end.Before(dayEnd) {
		return MinutesPerDay
	}
	if !end.After(dayStart) {
		return 0
	}
	return m.MinutesOfDay(end)
}

// StartMinutes returns the local minute-of-day of start relative to day d,
// clamped to 0 for bookings that began on a previous day.
func (m *Model) StartMinutes(d Date, start time.Time) int {
	dayStart, dayEnd := m.DayBounds(d)
	if !start.After(dayStart) {
		return 0
	}
	if !start.Before(dayEnd) {
		return MinutesPerDay
	}
	return m.MinutesOfDay(start)
}

// Today returns the local day of now.
func (m *Model) Today(now time.Time) Date {
	return m.DateOf(now)
}

// NormalizeEnd maps an end of 0 to 1440 (midnight, end of day).
func NormalizeEnd(endMinute int) int {
	if endMinute == 0 {
		return MinutesPerDay
	}
	return endMinute
}

// ParseDate validates YYYY-MM-DD and returns the calendar day.
func ParseDate(s string) (Date, error) {
	match := datePattern.FindStringSubmatch(s)
	if match == nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	year, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	day, _ := strconv.Atoi(match[3])

	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %q: no such day", s)
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// ParseClock validates HH:mm and returns minutes since midnight.
func ParseClock(s string) (int, error) {
	match := clockPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:mm", s)
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as HH:mm; 1440 renders as 00:00.
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
