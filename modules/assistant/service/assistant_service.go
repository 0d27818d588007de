package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"courtbook-api/core/constants"
	"courtbook-api/core/errors"
	"courtbook-api/core/llm"
	"courtbook-api/core/logger"
	"courtbook-api/core/metrics"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/assistant/tools"
	"courtbook-api/modules/booking/entity"
	"courtbook-api/modules/booking/repository"
)

type AssistantServiceInterface interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, *errors.AppError)
}

type Options struct {
	RequestTimeout time.Duration
	MaxToolCalls   int
	// Now is the wall clock; tests pin it.
	Now func() time.Time
}

type assistantService struct {
	repo     repository.BookingRepositoryInterface
	executor *tools.Executor
	clock    *timemodel.Model
	model    llm.Client
	opts     Options
}

func NewAssistantService(
	repo repository.BookingRepositoryInterface,
	executor *tools.Executor,
	clock *timemodel.Model,
	model llm.Client,
	opts Options,
) AssistantServiceInterface {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = constants.DefaultRequestTimeout
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = 6
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &assistantService{
		repo:     repo,
		executor: executor,
		clock:    clock,
		model:    model,
		opts:     opts,
	}
}

// turn is the state of one chat request.
type turn struct {
	message     string
	history     []dto.ChatTurn
	tenant      *entity.Tenant
	scope       tools.Scope
	userName    string
	invocations []tools.Invocation
}

func (t *turn) today(clock *timemodel.Model) timemodel.Date {
	return clock.Today(t.scope.Now)
}

// draft is a reply before the guardrail has seen it. Deterministic drafts come
// from code paths that never consult the model.
type draft struct {
	reply         string
	source        string
	deterministic bool
}

// Chat answers one conversational turn. Model and tool failures never surface
// as errors: only a structurally invalid request does.
func (s *assistantService) Chat(ctx context.Context, req *dto.ChatRequest) (resp *dto.ChatResponse, appErr *errors.AppError) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidRequestData, "message is required", nil)
	}
	if strings.TrimSpace(req.TenantCode) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidRequestData, "tenantCode is required", nil)
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	logger.Info("AssistantService:Chat:Start", "tenant_code", req.TenantCode, "history", len(req.History))

	t := &turn{
		message:  strings.TrimSpace(req.Message),
		history:  req.History,
		userName: strings.TrimSpace(req.UserName),
		scope:    tools.Scope{Now: s.opts.Now()},
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("AssistantService:Chat:Panic", "tenant_code", req.TenantCode, "panic", fmt.Sprint(r))
			resp = s.respond(t, &draft{reply: msgFallback, source: constants.SourceFallback, deterministic: true}, msgFallback, started)
			appErr = nil
		}
	}()

	tenant, err := s.repo.GetTenantByCode(ctx, strings.TrimSpace(req.TenantCode))
	if err != nil {
		logger.Error("AssistantService:Chat:GetTenantByCode:Error", "tenant_code", req.TenantCode, "error", err)
		return s.respond(t, &draft{reply: msgFallback, source: constants.SourceFallback, deterministic: true}, msgFallback, started), nil
	}
	if tenant == nil {
		logger.Warn("AssistantService:Chat:TenantNotFound", "tenant_code", req.TenantCode)
		return s.respond(t, &draft{reply: msgUnknownTenant, source: constants.SourceFallback, deterministic: true}, msgUnknownTenant, started), nil
	}
	t.tenant = tenant
	t.scope.TenantID = tenant.ID

	d, routed := s.preRoute(ctx, t)
	if !routed {
		d = s.runLoop(ctx, t)
	}
	reply := s.guard(t, d)

	return s.respond(t, d, reply, started), nil
}

func (s *assistantService) respond(t *turn, d *draft, reply string, started time.Time) *dto.ChatResponse {
	resp := &dto.ChatResponse{
		Reply:   reply,
		Replies: []string{},
		Source:  d.source,
		Debug:   dto.ChatDebug{Tools: make([]dto.ToolTrace, 0, len(t.invocations))},
	}
	if reply != "" {
		resp.Replies = append(resp.Replies, reply)
	}
	for _, inv := range t.invocations {
		resp.Debug.Tools = append(resp.Debug.Tools, dto.ToolTrace{
			Name:      inv.Name,
			Arguments: inv.Arguments,
			Summary:   inv.Summary,
		})
	}

	metrics.ChatRequests.WithLabelValues(d.source).Inc()
	metrics.ChatDuration.Observe(time.Since(started).Seconds())
	logger.Info("AssistantService:Chat:Success",
		"tenant_id", t.scope.TenantID,
		"source", d.source,
		"tools", len(t.invocations),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return resp
}

// invoke runs a tool on behalf of deterministic code and records it.
func (s *assistantService) invoke(ctx context.Context, t *turn, name string, args map[string]any) *tools.Result {
	inv := s.executor.Run(ctx, t.scope, name, args)
	t.invocations = append(t.invocations, inv)
	return inv.Result
}
