package tools

import (
	"encoding/json"

	"courtbook-api/modules/assistant/dto"
)

const (
	ListBookings  = "listar_agendamentos"
	ListClients   = "listar_clientes"
	ListCourts    = "listar_quadras"
	CreateBooking = "criar_agendamento"
	UpdateBooking = "atualizar_agendamento"
)

type Policy string

const (
	PolicyReadOnly      Policy = "read-only"
	PolicyWriteAllowed  Policy = "write-allowed"
	PolicyWriteRejected Policy = "write-rejected"
	PolicyWriteError    Policy = "write-error"
	PolicyWriteNoOp     Policy = "write-no-op"
)

// Reason tags a rejection so callers can render it without parsing text.
type Reason string

const (
	ReasonInvalidArguments Reason = "invalid_arguments"
	ReasonUnknownTool      Reason = "unknown_tool"
	ReasonInvalidInterval  Reason = "invalid_interval"
	ReasonAmbiguousClient  Reason = "ambiguous_client"
	ReasonClientNotFound   Reason = "client_not_found"
	ReasonMustChooseCourt  Reason = "must_choose_court"
	ReasonCourtNotFound    Reason = "court_not_found"
	ReasonModalityRequired Reason = "modality_required"
	ReasonInvalidModality  Reason = "invalid_modality"
	ReasonTimeConflict     Reason = "time_conflict"
	ReasonNoAllowedFields  Reason = "no_allowed_fields"
	ReasonNotFound         Reason = "not_found"
	ReasonBookingCanceled  Reason = "booking_canceled"
	ReasonStorage          Reason = "storage_error"
	ReasonInternal         Reason = "internal_error"
)

const (
	DomainBookings = "agendamentos"
	DomainClients  = "clientes"
	DomainCourts   = "quadras"
)

// Result is the structured outcome of one tool invocation. It is what the
// model sees as the tool turn and what the guardrail inspects.
type Result struct {
	OK     bool   `json:"ok"`
	Policy Policy `json:"policy"`
	Domain string `json:"domain"`
	Reason Reason `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`

	Bookings []dto.BookingView `json:"agendamentos,omitempty"`
	Clients  []dto.ClientView  `json:"clientes,omitempty"`
	Courts   []dto.CourtView   `json:"quadras,omitempty"`
	Range    *dto.DateRange    `json:"periodo,omitempty"`
	Page     *dto.Page         `json:"paginacao,omitempty"`

	Booking *dto.BookingView `json:"agendamento,omitempty"`
	Applied []string         `json:"campos_aplicados,omitempty"`
	Ignored []string         `json:"campos_ignorados,omitempty"`

	// Candidates holds the tied clients when a name is ambiguous.
	Candidates []dto.ClientView `json:"candidatos,omitempty"`
	// CourtOptions is the ordered court list when the caller must pick one.
	CourtOptions []dto.CourtView `json:"opcoes_quadras,omitempty"`
	Modalities   []string        `json:"modalidades,omitempty"`

	Conflict           bool              `json:"conflict,omitempty"`
	Conflicts          []dto.BookingView `json:"conflitos,omitempty"`
	AvailableIntervals []dto.FreeSlot    `json:"available_intervals,omitempty"`

	Note string `json:"observacao,omitempty"`
}

// Written reports whether the invocation changed stored data.
func (r *Result) Written() bool {
	return r != nil && r.OK && r.Policy == PolicyWriteAllowed
}

// JSON renders the result for a tool turn.
func (r *Result) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"error":"unserializable result"}`
	}
	return string(raw)
}

// Invocation records one executed tool call.
type Invocation struct {
	CallID    string
	Name      string
	Arguments map[string]any
	Result    *Result
	Summary   string
}

func readOnly(domain string) *Result {
	return &Result{OK: true, Policy: PolicyReadOnly, Domain: domain}
}

func rejected(domain string, reason Reason, message string) *Result {
	return &Result{OK: false, Policy: PolicyWriteRejected, Domain: domain, Reason: reason, Error: message}
}

func failed(domain string, policy Policy, reason Reason, message string) *Result {
	return &Result{OK: false, Policy: policy, Domain: domain, Reason: reason, Error: message}
}
