package router

import (
	"net/http"

	"courtbook-api/modules/assistant/controller"

	"github.com/labstack/echo/v4"
)

type AssistantRouter struct {
	controller *controller.AssistantController
}

func NewAssistantRouter(controller *controller.AssistantController) *AssistantRouter {
	return &AssistantRouter{controller: controller}
}

var nonPost = []string{
	http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions,
}

func (r *AssistantRouter) Register(e *echo.Group) {
	group := e.Group("/assistant")
	group.POST("/chat", r.controller.Chat)
	group.Match(nonPost, "/chat", r.controller.MethodNotAllowed)
}
