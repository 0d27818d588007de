package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"courtbook-api/core/constants"
	"courtbook-api/core/controller"
	"courtbook-api/core/errors"
	"courtbook-api/core/logger"
	"courtbook-api/core/utils"

	"github.com/labstack/echo/v4"
)

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// RequestID reuses the caller's X-Request-ID or issues a new one, and stores
// it on the context and the response.
func (m *Middleware) RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(constants.HeaderRequestID)
			if id == "" {
				id = utils.GenerateID()
			}
			c.Set(constants.ContextRequestID, id)
			c.Response().Header().Set(constants.HeaderRequestID, id)
			return next(c)
		}
	}
}

func (m *Middleware) AccessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.Info("HTTP:Request:Done",
				"method", req.Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", RequestIDFrom(c),
			)
			return nil
		}
	}
}

// Recover turns a handler panic into a 500 envelope. The chat service has its
// own recovery, so this only guards the HTTP plumbing.
func (m *Middleware) Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("HTTP:Request:Panic",
						"panic", fmt.Sprint(r),
						"path", c.Path(),
						"request_id", RequestIDFrom(c),
						"stack", string(debug.Stack()),
					)
					err = controller.NewErrorResponse(http.StatusInternalServerError, errors.ErrInternalServer, "internal server error")
				}
			}()
			return next(c)
		}
	}
}

func RequestIDFrom(c echo.Context) string {
	if id, ok := c.Get(constants.ContextRequestID).(string); ok {
		return id
	}
	return ""
}
