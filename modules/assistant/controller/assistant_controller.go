package controller

import (
	"courtbook-api/core/controller"
	"courtbook-api/core/errors"
	"courtbook-api/core/logger"
	"courtbook-api/core/middleware"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/service"

	"github.com/labstack/echo/v4"
)

type AssistantController struct {
	service service.AssistantServiceInterface
	controller.BaseController
}

func NewAssistantController(service service.AssistantServiceInterface) *AssistantController {
	return &AssistantController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// Chat answers one turn of the scheduling conversation.
// Every reachable outcome is a 200 with renderable text; only a request
// without message or tenantCode is rejected.
func (c *AssistantController) Chat(ctx echo.Context) error {
	req := new(dto.ChatRequest)
	if err := ctx.Bind(req); err != nil {
		logger.Warn("AssistantController:Chat:Bind", "request_id", middleware.RequestIDFrom(ctx), "error", err)
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	resp, appErr := c.service.Chat(ctx.Request().Context(), req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.RawResponse(ctx, resp)
}
