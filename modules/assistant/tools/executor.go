// Package tools holds the fixed catalogue of booking operations exposed to the
// language model and to the deterministic router.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"courtbook-api/core/llm"
	"courtbook-api/core/logger"
	"courtbook-api/core/metrics"
	"courtbook-api/core/utils"
	"courtbook-api/modules/assistant/availability"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/booking/repository"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// Scope is the caller context every handler is bound to.
type Scope struct {
	TenantID uuid.UUID
	Now      time.Time
}

type handlerFunc func(ctx context.Context, scope Scope, args map[string]any) *Result

type tool struct {
	name        string
	description string
	schema      *openapi3.Schema
	write       bool
	domain      string
	aliases     map[string]string
	handler     handlerFunc
}

type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Executor validates tool arguments and dispatches to the handlers.
type Executor struct {
	repo     repository.BookingRepositoryInterface
	resolver *resolver.Resolver
	engine   *availability.Engine
	clock    *timemodel.Model
	opts     Options
	tools    map[string]*tool
	order    []string
}

func NewExecutor(
	repo repository.BookingRepositoryInterface,
	res *resolver.Resolver,
	engine *availability.Engine,
	clock *timemodel.Model,
	opts Options,
) *Executor {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}

	e := &Executor{
		repo:     repo,
		resolver: res,
		engine:   engine,
		clock:    clock,
		opts:     opts,
		tools:    map[string]*tool{},
	}

	e.register(&tool{
		name:        ListBookings,
		description: "Lista agendamentos por periodo, status, quadra ou cliente. Sem periodo e sem cliente, lista os de hoje.",
		schema:      listBookingsSchema(),
		domain:      DomainBookings,
		handler:     e.listBookings,
	})
	e.register(&tool{
		name:        ListClients,
		description: "Busca clientes cadastrados pelo nome. Use antes de vincular um agendamento a um cliente.",
		schema:      listClientsSchema(),
		domain:      DomainClients,
		aliases:     map[string]string{"nome": "busca", "termo": "busca"},
		handler:     e.listClients,
	})
	e.register(&tool{
		name:        ListCourts,
		description: "Lista as quadras ativas, numeradas, com suas modalidades.",
		schema:      listCourtsSchema(),
		domain:      DomainCourts,
		handler:     e.listCourts,
	})
	e.register(&tool{
		name:        CreateBooking,
		description: "Cria um agendamento. Verifica conflito de horario antes de gravar.",
		schema:      createBookingSchema(),
		write:       true,
		domain:      DomainBookings,
		aliases:     map[string]string{"date": "data", "court": "quadra", "modality": "modalidade"},
		handler:     e.createBooking,
	})
	e.register(&tool{
		name:        UpdateBooking,
		description: "Altera um agendamento existente: horario (start/end), status ou modalidade. Para cancelar use status canceled.",
		schema:      updateBookingSchema(),
		write:       true,
		domain:      DomainBookings,
		aliases:     map[string]string{"id": "agendamento_id", "fields": "campos"},
		handler:     e.updateBooking,
	})
	return e
}

func (e *Executor) register(t *tool) {
	e.tools[t.name] = t
	e.order = append(e.order, t.name)
}

// Definitions returns the tool declarations sent to the model, in a fixed order.
func (e *Executor) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(e.order))
	for _, name := range e.order {
		t := e.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.name,
			Description: t.description,
			Parameters:  toJSONSchema(t.schema),
		})
	}
	return defs
}

// IsWrite reports whether the named tool mutates data.
func (e *Executor) IsWrite(name string) bool {
	t, ok := e.tools[name]
	return ok && t.write
}

// Execute runs one tool call. It never returns an error: every failure ends up
// in the invocation's Result.
func (e *Executor) Execute(ctx context.Context, scope Scope, call llm.ToolCall) Invocation {
	started := time.Now()
	inv := Invocation{CallID: call.ID, Name: call.Name, Arguments: map[string]any{}}
	if inv.CallID == "" {
		inv.CallID = utils.GenerateCallID()
	}

	inv.Result = e.run(ctx, scope, call, &inv)
	inv.Summary = Summarize(inv.Name, inv.Result)

	metrics.ToolInvocations.WithLabelValues(inv.Name, string(inv.Result.Policy), strconv.FormatBool(inv.Result.OK)).Inc()
	logger.Info("ToolExecutor:Execute",
		"tool", inv.Name,
		"tenant_id", scope.TenantID,
		"ok", inv.Result.OK,
		"policy", inv.Result.Policy,
		"reason", inv.Result.Reason,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return inv
}

// Run is Execute for callers that build arguments in code.
func (e *Executor) Run(ctx context.Context, scope Scope, name string, args map[string]any) Invocation {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte("{}")
	}
	return e.Execute(ctx, scope, llm.ToolCall{Name: name, Arguments: string(raw)})
}

func (e *Executor) run(ctx context.Context, scope Scope, call llm.ToolCall, inv *Invocation) (result *Result) {
	t, ok := e.tools[call.Name]
	if !ok {
		return failed("", PolicyReadOnly, ReasonUnknownTool, fmt.Sprintf("ferramenta desconhecida: %s", call.Name))
	}

	invalid := func(msg string) *Result {
		if t.write {
			return rejected(t.domain, ReasonInvalidArguments, msg)
		}
		return failed(t.domain, PolicyReadOnly, ReasonInvalidArguments, msg)
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return invalid("argumentos invalidos: " + err.Error())
	}
	for from, to := range t.aliases {
		if v, ok := args[from]; ok {
			if _, taken := args[to]; !taken {
				args[to] = v
			}
			delete(args, from)
		}
	}
	inv.Arguments = args

	if err := validate(t.schema, args); err != nil {
		return invalid("argumentos invalidos: " + err.Error())
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("ToolExecutor:Execute:Panic", "tool", t.name, "panic", fmt.Sprint(r))
			policy := PolicyReadOnly
			if t.write {
				policy = PolicyWriteError
			}
			result = failed(t.domain, policy, ReasonInternal, "falha interna ao executar a ferramenta")
		}
	}()

	result = t.handler(ctx, scope, args)
	if result.Domain == "" {
		result.Domain = t.domain
	}
	return result
}

func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}
