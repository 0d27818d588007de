package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"courtbook-api/core/constants"
	"courtbook-api/core/llm"
	"courtbook-api/core/logger"
	"courtbook-api/core/metrics"
	"courtbook-api/core/utils"
	"courtbook-api/modules/assistant/dto"
)

const (
	phaseDecision    = "decision"
	phaseComposition = "composition"
)

// runLoop is the general path: one model call that may request tools, the
// tools run in order, then one model call without tools to compose the reply.
func (s *assistantService) runLoop(ctx context.Context, t *turn) *draft {
	messages := append(historyMessages(t.history), llm.Message{Role: llm.RoleUser, Content: t.message})
	prompt := systemPrompt(t.tenant, t.userName, t.scope.Now.In(s.clock.Location()))

	decision, err := s.complete(ctx, phaseDecision, &llm.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     messages,
		Tools:        s.executor.Definitions(),
	})
	if err != nil {
		if llm.IsTransient(err) && IsTodayQuestion(t.message) {
			logger.Warn("AssistantService:Loop:DirectListing", "tenant_id", t.scope.TenantID, "error", err)
			readCtx, cancel := directReadContext(ctx)
			defer cancel()
			return &draft{reply: s.todayReply(readCtx, t), source: constants.SourceToolsDirect, deterministic: true}
		}
		return &draft{reply: msgFallback, source: constants.SourceFallback, deterministic: true}
	}

	if len(decision.ToolCalls) == 0 {
		text := strings.TrimSpace(decision.Content)
		if text == "" {
			return &draft{reply: msgFallback, source: constants.SourceFallback, deterministic: true}
		}
		return &draft{reply: text, source: constants.SourceModel}
	}

	calls := make([]llm.ToolCall, len(decision.ToolCalls))
	copy(calls, decision.ToolCalls)
	for i := range calls {
		if strings.TrimSpace(calls[i].ID) == "" {
			calls[i].ID = utils.GenerateCallID()
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: decision.Content, ToolCalls: calls})

	for i, call := range calls {
		content := overLimitResult
		if i < s.opts.MaxToolCalls {
			inv := s.executor.Execute(ctx, t.scope, call)
			t.invocations = append(t.invocations, inv)
			content = inv.Result.JSON()
		} else {
			logger.Warn("AssistantService:Loop:ToolLimit", "tool", call.Name, "limit", s.opts.MaxToolCalls)
		}
		messages = append(messages, llm.Message{Role: llm.RoleTool, Content: content, ToolCallID: call.ID})
	}

	composed, err := s.complete(ctx, phaseComposition, &llm.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     messages,
	})
	if err != nil || strings.TrimSpace(composed.Content) == "" {
		return &draft{reply: summarizeInvocations(t.invocations), source: constants.SourceFallback}
	}
	return &draft{reply: strings.TrimSpace(composed.Content), source: constants.SourceModelWithTools}
}

const overLimitResult = `{"ok":false,"policy":"read-only","reason":"invalid_arguments","error":"limite de chamadas de ferramenta por mensagem atingido; esta chamada nao foi executada"}`

// directReadContext keeps the request context while it is alive. A model call
// that used up the request deadline still leaves a short window for the read.
func directReadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), constants.DirectReadTimeout)
}

func (s *assistantService) complete(ctx context.Context, phase string, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.model == nil {
		return nil, llm.ErrNotConfigured
	}
	started := time.Now()
	resp, err := s.model.Complete(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if llm.IsTransient(err) {
			outcome = "transient"
		}
	}
	metrics.ModelCalls.WithLabelValues(phase, outcome).Observe(time.Since(started).Seconds())
	if err != nil {
		logger.Warn("AssistantService:Loop:ModelCall:Error", "phase", phase, "outcome", outcome, "error", err)
		return nil, err
	}
	logger.Debug("AssistantService:Loop:ModelCall", "phase", phase, "tool_calls", len(resp.ToolCalls), "duration_ms", time.Since(started).Milliseconds())
	return resp, nil
}

// historyMessages replays prior turns. Tool turns become assistant notes since
// their call ids belong to earlier requests; caller-supplied system turns are
// dropped.
func historyMessages(history []dto.ChatTurn) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, h := range history {
		switch {
		case h.Role == "tool" || h.Tool != nil:
			if note := toolNote(h); note != "" {
				messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: note})
			}
		case h.Role == "assistant":
			if strings.TrimSpace(h.Content) != "" {
				messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: h.Content})
			}
		case h.Role == "user":
			if strings.TrimSpace(h.Content) != "" {
				messages = append(messages, llm.Message{Role: llm.RoleUser, Content: h.Content})
			}
		}
	}
	return messages
}

func toolNote(h dto.ChatTurn) string {
	body := strings.TrimSpace(h.Content)
	name := "ferramenta"
	if h.Tool != nil {
		if h.Tool.Name != "" {
			name = h.Tool.Name
		}
		if body == "" && h.Tool.Result != nil {
			if raw, err := json.Marshal(h.Tool.Result); err == nil {
				body = string(raw)
			}
		}
	}
	if body == "" {
		return ""
	}
	return "[resultado anterior de " + name + "] " + body
}
