package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"courtbook-api/core/config"
	"courtbook-api/core/constants"
	"courtbook-api/core/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEcho(config.Default(), Dependencies{DB: database.New(sqlx.NewDb(db, "postgres"))}), mock
}

func TestHealthz(t *testing.T) {
	e, _ := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(constants.HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(constants.HeaderRequestID))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRequestIDIsIssued(t *testing.T) {
	e, _ := newTestEcho(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(constants.HeaderRequestID), constants.RequestIDLength)
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestEcho(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestChatWithUnknownTenantStill200(t *testing.T) {
	e, mock := newTestEcho(t)
	mock.ExpectQuery(`FROM tenants WHERE code = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader(`{"message":"oi","tenantCode":"ghost"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Reply   string   `json:"reply"`
		Replies []string `json:"replies"`
		Source  string   `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, constants.SourceFallback, body.Source)
	assert.NotEmpty(t, body.Reply)
	assert.Equal(t, []string{body.Reply}, body.Replies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRejectsGet(t *testing.T) {
	e, _ := newTestEcho(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/assistant/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
