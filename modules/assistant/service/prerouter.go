package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"courtbook-api/core/constants"
	"courtbook-api/core/logger"
	"courtbook-api/core/metrics"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/assistant/tools"
	"courtbook-api/modules/booking/entity"
)

// routeRule answers a turn without the model. It returns false when the turn
// is not its pattern.
type routeRule struct {
	name  string
	apply func(s *assistantService, ctx context.Context, t *turn) (string, bool)
}

// routeRules are tried in order; confirmations come first because a bare
// "sim" means nothing on its own.
var routeRules = []routeRule{
	{name: "confirm_cancel", apply: (*assistantService).confirmCancel},
	{name: "confirm_end_time", apply: (*assistantService).confirmEndTime},
	{name: "change_end_today", apply: (*assistantService).changeEndToday},
	{name: "list_today", apply: (*assistantService).listToday},
}

func (s *assistantService) preRoute(ctx context.Context, t *turn) (*draft, bool) {
	for _, rule := range routeRules {
		reply, ok := rule.apply(s, ctx, t)
		if !ok {
			continue
		}
		metrics.PreRouterHits.WithLabelValues(rule.name).Inc()
		logger.Info("AssistantService:PreRoute:Hit", "rule", rule.name, "tenant_id", t.scope.TenantID, "tools", len(t.invocations))
		return &draft{reply: reply, source: constants.SourceToolsDirect, deterministic: true}, true
	}
	return nil, false
}

// previousAssistant returns the assistant message right before the current
// one, skipping tool turns. It is empty when the previous speaker was not the
// assistant.
func previousAssistant(history []dto.ChatTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		if h.Role == "tool" || h.Tool != nil {
			continue
		}
		if h.Role == "assistant" {
			return h.Content
		}
		return ""
	}
	return ""
}

func (s *assistantService) confirmCancel(ctx context.Context, t *turn) (string, bool) {
	if !IsAffirmative(t.message) {
		return "", false
	}
	prev := previousAssistant(t.history)
	if !HasCancelIntent(prev) {
		return "", false
	}
	entries := ParseListingEntries(prev)
	if len(entries) == 0 {
		return "", false
	}

	matches, ok := s.bookingsForEntries(ctx, t, entries, prev)
	if !ok {
		return msgStorageFailure, true
	}
	if len(matches) == 0 {
		return "Não encontrei mais os agendamentos listados. Nada foi cancelado.", true
	}

	var done []dto.BookingView
	for _, b := range matches {
		res := s.invoke(ctx, t, tools.UpdateBooking, map[string]any{
			"agendamento_id": b.ID,
			"campos":         map[string]any{"status": string(entity.BookingStatusCanceled)},
		})
		if res.Written() && res.Booking != nil {
			done = append(done, *res.Booking)
		}
	}
	if len(done) == 0 {
		return "Nenhum agendamento foi cancelado.", true
	}
	if len(done) == 1 {
		return "Agendamento cancelado:\n" + numberedBookings(done), true
	}
	return fmt.Sprintf("%d agendamentos cancelados:\n%s", len(done), numberedBookings(done)), true
}

func (s *assistantService) confirmEndTime(ctx context.Context, t *turn) (string, bool) {
	if !IsAffirmative(t.message) {
		return "", false
	}
	prev := previousAssistant(t.history)
	if prev == "" || HasCancelIntent(prev) {
		return "", false
	}
	prose := stripListing(prev)
	if !HasEndChangeIntent(prose) {
		return "", false
	}
	end, _, ok := ExtractEndTime(prose)
	if !ok {
		return "", false
	}

	entries := ParseListingEntries(prev)
	var candidates []dto.BookingView
	if len(entries) > 0 {
		candidates, ok = s.bookingsForEntries(ctx, t, entries, prev)
	} else {
		day, found := ParseListingDate(prose)
		if !found {
			day = t.today(s.clock)
		}
		candidates, ok = s.bookingsOn(ctx, t, day)
	}
	if !ok {
		return msgStorageFailure, true
	}

	switch len(candidates) {
	case 0:
		return "Não encontrei o agendamento a alterar. " + msgNothingChanged, true
	case 1:
		return s.applyEnd(ctx, t, candidates[0], end), true
	}
	return bookingListing("Há mais de um agendamento possível:", candidates) + "\n" + msgWhichBooking + " " + msgNothingChanged, true
}

func (s *assistantService) changeEndToday(ctx context.Context, t *turn) (string, bool) {
	if !HasEndChangeIntent(t.message) || HasCreateIntent(t.message) || !MentionsToday(t.message) {
		return "", false
	}
	end, _, ok := ExtractEndTime(t.message)
	if !ok {
		return "", false
	}

	today := t.today(s.clock)
	bookings, ok := s.bookingsOn(ctx, t, today)
	if !ok {
		return msgStorageFailure, true
	}
	if len(bookings) == 0 {
		return msgNoBookingsToday + " " + msgNothingChanged, true
	}
	if len(bookings) > 1 {
		bookings = mentionedIn(t.message, bookings)
	}
	if len(bookings) == 1 {
		return s.applyEnd(ctx, t, bookings[0], end), true
	}
	if len(bookings) == 0 {
		bookings, _ = s.bookingsOn(ctx, t, today)
	}
	return fmt.Sprintf("Encontrei %d agendamentos para hoje. Qual deles deve terminar às %s?\n%s\n%s",
		len(bookings), FormatEnd(end), numberedBookings(bookings), msgNothingChanged), true
}

func (s *assistantService) listToday(ctx context.Context, t *turn) (string, bool) {
	if !IsTodayListRequest(t.message) {
		return "", false
	}
	return s.todayReply(ctx, t), true
}

func (s *assistantService) todayReply(ctx context.Context, t *turn) string {
	today := t.today(s.clock)
	bookings, ok := s.bookingsOn(ctx, t, today)
	if !ok {
		return msgStorageFailure
	}
	return todayListing(today.Label(), bookings)
}

func (s *assistantService) applyEnd(ctx context.Context, t *turn, b dto.BookingView, end int) string {
	res := s.invoke(ctx, t, tools.UpdateBooking, map[string]any{
		"agendamento_id": b.ID,
		"campos":         map[string]any{"end": FormatEnd(end)},
	})
	if !res.Written() || res.Booking == nil {
		return describeRejection(res) + " " + msgNothingChanged
	}
	return fmt.Sprintf("Pronto! O agendamento agora termina às %s.\n%s", res.Booking.EndTime, bookingLine(*res.Booking))
}

func (s *assistantService) bookingsOn(ctx context.Context, t *turn, day timemodel.Date) ([]dto.BookingView, bool) {
	res := s.invoke(ctx, t, tools.ListBookings, map[string]any{
		"data_inicio": day.String(),
		"limite":      100,
	})
	if !res.OK {
		return nil, false
	}
	return res.Bookings, true
}

// bookingsForEntries re-reads the bookings a prior listing showed and keeps
// the ones that still match a line of it by name, and by date and start when
// the line carries them.
func (s *assistantService) bookingsForEntries(ctx context.Context, t *turn, entries []ListingEntry, text string) ([]dto.BookingView, bool) {
	fallback, found := ParseListingDate(text)
	if !found {
		fallback = t.today(s.clock)
	}

	days := map[string]timemodel.Date{}
	for _, e := range entries {
		day := fallback
		if e.Date != "" {
			if d, ok := ParseListingDate(e.Date); ok {
				day = d
			}
		}
		days[day.String()] = day
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var matches []dto.BookingView
	seen := map[string]bool{}
	for _, k := range keys {
		bookings, ok := s.bookingsOn(ctx, t, days[k])
		if !ok {
			return nil, false
		}
		for _, b := range bookings {
			if seen[b.ID] || !matchesEntry(b, entries) {
				continue
			}
			seen[b.ID] = true
			matches = append(matches, b)
		}
	}
	return matches, true
}

func matchesEntry(b dto.BookingView, entries []ListingEntry) bool {
	name := resolver.Normalize(b.Responsible)
	for _, e := range entries {
		if resolver.Normalize(e.Name) != name {
			continue
		}
		if e.Date != "" && e.Date != b.Date {
			continue
		}
		if e.Start != "" && e.Start != b.StartTime {
			continue
		}
		return true
	}
	return false
}

// mentionedIn keeps the bookings whose responsible name shares the most words
// with the message.
func mentionedIn(message string, bookings []dto.BookingView) []dto.BookingView {
	words := map[string]bool{}
	for _, w := range strings.Fields(resolver.Normalize(message)) {
		words[w] = true
	}
	best := 0
	var kept []dto.BookingView
	for _, b := range bookings {
		hits := 0
		for _, w := range strings.Fields(resolver.Normalize(b.Responsible)) {
			if len(w) > 2 && words[w] {
				hits++
			}
		}
		switch {
		case hits == 0 || hits < best:
		case hits > best:
			best = hits
			kept = []dto.BookingView{b}
		default:
			kept = append(kept, b)
		}
	}
	return kept
}
