package tools

import (
	"context"
	"sort"

	"courtbook-api/core/params"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/mapper"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/booking/entity"
)

var listableStatuses = []entity.BookingStatus{
	entity.BookingStatusScheduled,
	entity.BookingStatusConfirmed,
	entity.BookingStatusInProgress,
	entity.BookingStatusFinished,
}

func (e *Executor) listBookings(ctx context.Context, scope Scope, args map[string]any) *Result {
	clientName := resolver.Normalize(stringArg(args, "cliente"))
	fromArg, toArg := stringArg(args, "data_inicio"), stringArg(args, "data_fim")

	filter := entity.BookingFilter{ClientName: clientName, Statuses: listableStatuses}
	if status := stringArg(args, "status"); status != "" {
		filter.Statuses = []entity.BookingStatus{entity.BookingStatus(status)}
	}

	// A client-scoped query without dates spans all dates.
	var rng *dto.DateRange
	if fromArg != "" || toArg != "" || clientName == "" {
		first, last, err := e.dateRange(scope, fromArg, toArg)
		if err != nil {
			return failed(DomainBookings, PolicyReadOnly, ReasonInvalidArguments, err.Error())
		}
		from, _ := e.clock.DayBounds(first)
		_, to := e.clock.DayBounds(last)
		filter.From, filter.To = &from, &to
		rng = &dto.DateRange{From: first.Label(), To: last.Label()}
	}

	if ref := stringArg(args, "quadra"); ref != "" {
		court, err := e.resolver.ResolveCourt(ctx, scope.TenantID, ref, "")
		if err != nil {
			return failed(DomainBookings, PolicyReadOnly, ReasonStorage, "falha ao consultar quadras")
		}
		if court.Outcome != resolver.OutcomeAuto {
			res := failed(DomainBookings, PolicyReadOnly, ReasonCourtNotFound, "quadra nao identificada: "+ref)
			res.CourtOptions = mapper.ToCourtOptions(court.Candidates, court.Courts)
			return res
		}
		filter.CourtID = &court.Court.ID
	}

	page := params.NewQueryParams(intArg(args, "pagina"), intArg(args, "limite"), e.opts.DefaultPageSize, e.opts.MaxPageSize)
	filter.Limit = page.PageSize
	filter.Offset = page.Offset()

	bookings, err := e.repo.ListBookings(ctx, scope.TenantID, filter)
	if err != nil {
		return failed(DomainBookings, PolicyReadOnly, ReasonStorage, "falha ao consultar agendamentos")
	}

	res := readOnly(DomainBookings)
	res.Bookings = mapper.ToBookingViews(e.clock, bookings)
	res.Range = rng
	res.Page = &dto.Page{Number: page.PageNumber, Size: page.PageSize, Count: len(bookings)}
	return res
}

// dateRange resolves the local days covered by a listing. With no dates it is
// today; a single date is a single day.
func (e *Executor) dateRange(scope Scope, fromArg, toArg string) (timemodel.Date, timemodel.Date, error) {
	today := e.clock.Today(scope.Now)
	if fromArg == "" && toArg == "" {
		return today, today, nil
	}
	if fromArg == "" {
		fromArg = toArg
	}
	if toArg == "" {
		toArg = fromArg
	}
	first, err := timemodel.ParseDate(fromArg)
	if err != nil {
		return today, today, err
	}
	last, err := timemodel.ParseDate(toArg)
	if err != nil {
		return today, today, err
	}
	if last.String() < first.String() {
		first, last = last, first
	}
	return first, last, nil
}

func (e *Executor) listClients(ctx context.Context, scope Scope, args map[string]any) *Result {
	term := stringArg(args, "busca")
	limit := intArg(args, "limite")
	if limit <= 0 {
		limit = e.opts.DefaultPageSize
	}

	clients, err := e.repo.SearchClients(ctx, scope.TenantID, resolver.Normalize(term), limit)
	if err != nil {
		return failed(DomainClients, PolicyReadOnly, ReasonStorage, "falha ao consultar clientes")
	}

	names := make([]string, len(clients))
	scores := make([]int, len(clients))
	for i := range clients {
		names[i] = clients[i].Name
		scores[i] = resolver.Score(term, clients[i].Name)
	}
	outcome, top := resolver.Rank(term, names)

	order := make([]int, len(clients))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	sorted := make([]entity.Client, len(clients))
	for i, idx := range order {
		sorted[i] = clients[idx]
	}

	res := readOnly(DomainClients)
	res.Clients = mapper.ToClientViews(sorted)
	if outcome == resolver.OutcomeAmbiguous {
		tied := make([]entity.Client, 0, len(top))
		for _, c := range top {
			tied = append(tied, clients[c.Index])
		}
		res.Candidates = mapper.ToClientViews(tied)
		res.Note = "mais de um cliente corresponde ao nome; pergunte qual deles"
	}
	return res
}

func (e *Executor) listCourts(ctx context.Context, scope Scope, args map[string]any) *Result {
	courts, err := e.resolver.ActiveCourts(ctx, scope.TenantID)
	if err != nil {
		return failed(DomainCourts, PolicyReadOnly, ReasonStorage, "falha ao consultar quadras")
	}

	views := mapper.ToCourtViews(courts)
	if modality := stringArg(args, "modalidade"); modality != "" {
		filtered := views[:0]
		for i, v := range views {
			if _, ok := resolver.MatchModality(courts[i].Modalities, modality); ok {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	res := readOnly(DomainCourts)
	res.Courts = views
	return res
}
