package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"courtbook-api/core/errors"
	"courtbook-api/modules/assistant/controller"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/router"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	got *dto.ChatRequest
}

func (f *fakeService) Chat(_ context.Context, req *dto.ChatRequest) (*dto.ChatResponse, *errors.AppError) {
	f.got = req
	if req.Message == "" {
		return nil, errors.NewAppError(errors.ErrInvalidRequestData, "message is required", nil)
	}
	return &dto.ChatResponse{
		Reply:   "Agendamentos de hoje (22/11/2025):",
		Replies: []string{"Agendamentos de hoje (22/11/2025):"},
		Source:  "tools-direct",
		Debug:   dto.ChatDebug{Tools: []dto.ToolTrace{{Name: "listar_agendamentos", Summary: "0 agendamentos"}}},
	}, nil
}

func newServer(svc *fakeService) *echo.Echo {
	e := echo.New()
	router.NewAssistantRouter(controller.NewAssistantController(svc)).Register(e.Group("/api/v1"))
	return e
}

func do(e *echo.Echo, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/assistant/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChat_ReturnsServiceResponseAsBody(t *testing.T) {
	svc := &fakeService{}
	rec := do(newServer(svc), http.MethodPost, `{"message":"agendamentos de hoje","tenantCode":"arena","history":[{"role":"user","content":"oi"}],"userName":"Ana"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tools-direct", body["source"])
	assert.Equal(t, []any{"Agendamentos de hoje (22/11/2025):"}, body["replies"])
	tools := body["debug"].(map[string]any)["tools"].([]any)
	assert.Equal(t, "listar_agendamentos", tools[0].(map[string]any)["name"])

	require.NotNil(t, svc.got)
	assert.Equal(t, "arena", svc.got.TenantCode)
	assert.Equal(t, "Ana", svc.got.UserName)
	require.Len(t, svc.got.History, 1)
	assert.Equal(t, "oi", svc.got.History[0].Content)
}

func TestChat_InvalidRequestIs400(t *testing.T) {
	e := newServer(&fakeService{})

	rec := do(e, http.MethodPost, `{"tenantCode":"arena"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(errors.ErrInvalidRequestData))

	rec = do(e, http.MethodPost, `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_OtherMethodsAre405(t *testing.T) {
	e := newServer(&fakeService{})
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := do(e, method, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, http.MethodPost, rec.Header().Get(echo.HeaderAllow), method)
	}
}
