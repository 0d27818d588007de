package tools

import (
	"fmt"
	"strings"
)

// Summarize renders a one-line diagnostic description of a result.
func Summarize(name string, r *Result) string {
	if r == nil {
		return name + ": sem resultado"
	}
	if !r.OK {
		parts := []string{string(r.Policy)}
		if r.Reason != "" {
			parts = append(parts, string(r.Reason))
		}
		if r.Error != "" {
			parts = append(parts, r.Error)
		}
		return strings.Join(parts, ": ")
	}

	switch name {
	case ListBookings:
		return fmt.Sprintf("%d agendamento(s)", len(r.Bookings))
	case ListClients:
		if len(r.Candidates) > 1 {
			return fmt.Sprintf("%d cliente(s), %d empatados", len(r.Clients), len(r.Candidates))
		}
		return fmt.Sprintf("%d cliente(s)", len(r.Clients))
	case ListCourts:
		return fmt.Sprintf("%d quadra(s)", len(r.Courts))
	case CreateBooking:
		if r.Booking != nil {
			return fmt.Sprintf("criado: %s %s %s-%s", r.Booking.Court, r.Booking.Date, r.Booking.StartTime, r.Booking.EndTime)
		}
	case UpdateBooking:
		return "atualizado: " + strings.Join(r.Applied, ", ")
	}
	return string(r.Policy)
}
