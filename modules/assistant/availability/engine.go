// Package availability detects booking overlaps on a court and computes the
// free parts of a day. It never writes.
package availability

import (
	"context"
	"sort"

	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/booking/entity"

	"github.com/google/uuid"
)

// Interval is a local [Start, End) span in minutes since midnight, End <= 1440.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (i Interval) Len() int {
	return i.End - i.Start
}

func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Overlaps reports whether [a.Start,a.End) and [b.Start,b.End) intersect.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// FreeIntervals walks busy spans in start order and returns the gaps of the
// day, dropping gaps shorter than minLength.
func FreeIntervals(busy []Interval, minLength int) []Interval {
	spans := make([]Interval, 0, len(busy))
	for _, b := range busy {
		b = clip(b)
		if !b.Empty() {
			spans = append(spans, b)
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start == spans[j].Start {
			return spans[i].End < spans[j].End
		}
		return spans[i].Start < spans[j].Start
	})

	free := []Interval{}
	lastEnd := 0
	for _, b := range spans {
		if b.Start > lastEnd {
			free = appendIfLongEnough(free, Interval{Start: lastEnd, End: b.Start}, minLength)
		}
		if b.End > lastEnd {
			lastEnd = b.End
		}
	}
	if lastEnd < timemodel.MinutesPerDay {
		free = appendIfLongEnough(free, Interval{Start: lastEnd, End: timemodel.MinutesPerDay}, minLength)
	}
	return free
}

func appendIfLongEnough(free []Interval, gap Interval, minLength int) []Interval {
	if gap.Len() < minLength {
		return free
	}
	return append(free, gap)
}

func clip(i Interval) Interval {
	if i.Start < 0 {
		i.Start = 0
	}
	if i.End > timemodel.MinutesPerDay {
		i.End = timemodel.MinutesPerDay
	}
	return i
}

// BookingLister is the read the engine needs from storage.
type BookingLister interface {
	ListBookings(ctx context.Context, tenantID uuid.UUID, filter entity.BookingFilter) ([]entity.Booking, error)
}

// Check is the outcome of an availability check.
type Check struct {
	Conflict  bool
	Conflicts []entity.Booking
	Busy      []Interval
	Free      []Interval
}

type Engine struct {
	repo      BookingLister
	clock     *timemodel.Model
	minLength int
}

func NewEngine(repo BookingLister, clock *timemodel.Model, minFreeMinutes int) *Engine {
	return &Engine{repo: repo, clock: clock, minLength: minFreeMinutes}
}

// activeStatuses are the statuses that occupy a court.
var activeStatuses = []entity.BookingStatus{
	entity.BookingStatusScheduled,
	entity.BookingStatusConfirmed,
	entity.BookingStatusInProgress,
	entity.BookingStatusFinished,
}

// CheckDay compares the requested interval with the non-canceled bookings of
// the court on day. requested.End of 0 is read as 1440. excludeID skips one
// booking, used when re-timing an existing booking.
func (e *Engine) CheckDay(ctx context.Context, tenantID, courtID uuid.UUID, day timemodel.Date, requested Interval, excludeID *uuid.UUID) (*Check, error) {
	requested.End = timemodel.NormalizeEnd(requested.End)

	from, to := e.clock.DayBounds(day)
	bookings, err := e.repo.ListBookings(ctx, tenantID, entity.BookingFilter{
		From:     &from,
		To:       &to,
		CourtID:  &courtID,
		Statuses: activeStatuses,
	})
	if err != nil {
		return nil, err
	}

	result := &Check{}
	for _, b := range bookings {
		if b.Status == entity.BookingStatusCanceled || b.CourtID != courtID {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		span := Interval{
			Start: e.clock.StartMinutes(day, b.StartsAt),
			End:   e.clock.EndMinutes(day, b.EndsAt),
		}
		if span.Empty() {
			continue
		}
		result.Busy = append(result.Busy, span)
		if Overlaps(requested, span) {
			result.Conflict = true
			result.Conflicts = append(result.Conflicts, b)
		}
	}

	if result.Conflict {
		result.Free = FreeIntervals(result.Busy, e.minLength)
	}
	return result, nil
}
