package mapper

import (
	"courtbook-api/modules/assistant/availability"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/booking/entity"
)

func ToBookingView(clock *timemodel.Model, booking *entity.Booking) dto.BookingView {
	day := clock.DateOf(booking.StartsAt)
	view := dto.BookingView{
		ID:          booking.ID.String(),
		Responsible: booking.Responsible(),
		CourtID:     booking.CourtID.String(),
		Court:       booking.CourtName,
		Modality:    booking.Modality,
		Status:      string(booking.Status),
		Date:        day.Label(),
		StartTime:   clock.ClockLabel(booking.StartsAt),
		EndTime:     timemodel.FormatClock(clock.EndMinutes(day, booking.EndsAt)),
		StartsAt:    booking.StartsAt.UTC(),
		EndsAt:      booking.EndsAt.UTC(),
	}
	if booking.ClientID != nil {
		view.ClientID = booking.ClientID.String()
	}
	return view
}

func ToBookingViews(clock *timemodel.Model, bookings []entity.Booking) []dto.BookingView {
	views := make([]dto.BookingView, len(bookings))
	for i := range bookings {
		views[i] = ToBookingView(clock, &bookings[i])
	}
	return views
}

func ToClientView(client *entity.Client) dto.ClientView {
	view := dto.ClientView{
		ID:   client.ID.String(),
		Code: client.Code,
		Name: client.Name,
	}
	if client.Phone != nil {
		view.Phone = *client.Phone
	}
	if client.Email != nil {
		view.Email = *client.Email
	}
	return view
}

func ToClientViews(clients []entity.Client) []dto.ClientView {
	views := make([]dto.ClientView, len(clients))
	for i := range clients {
		views[i] = ToClientView(&clients[i])
	}
	return views
}

// ToCourtViews numbers courts from 1 in the given order.
func ToCourtViews(courts []entity.Court) []dto.CourtView {
	views := make([]dto.CourtView, len(courts))
	for i, c := range courts {
		modalities := []string(c.Modalities)
		if modalities == nil {
			modalities = []string{}
		}
		views[i] = dto.CourtView{
			Ordinal:    i + 1,
			ID:         c.ID.String(),
			Name:       c.Name,
			Status:     string(c.Status),
			Modalities: modalities,
		}
	}
	return views
}

// ToCourtOptions maps a subset of the catalogue keeping each court's ordinal
// in the full catalogue, so a numeric reply picks the court that was shown.
func ToCourtOptions(candidates, catalogue []entity.Court) []dto.CourtView {
	all := ToCourtViews(catalogue)
	views := make([]dto.CourtView, 0, len(candidates))
	for _, c := range candidates {
		for _, v := range all {
			if v.ID == c.ID.String() {
				views = append(views, v)
				break
			}
		}
	}
	return views
}

func ToFreeSlots(free []availability.Interval) []dto.FreeSlot {
	slots := make([]dto.FreeSlot, len(free))
	for i, f := range free {
		slots[i] = dto.FreeSlot{
			StartTime: timemodel.FormatClock(f.Start),
			EndTime:   timemodel.FormatClock(f.End),
		}
	}
	return slots
}
