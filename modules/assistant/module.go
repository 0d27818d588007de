package assistant

import (
	"courtbook-api/core/config"
	"courtbook-api/core/llm"
	"courtbook-api/modules/assistant/availability"
	"courtbook-api/modules/assistant/controller"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/router"
	"courtbook-api/modules/assistant/service"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/assistant/tools"
	"courtbook-api/modules/booking/repository"

	"github.com/labstack/echo/v4"
)

// Init wires the assistant and registers its routes. model may be nil, in
// which case every turn the pre-router cannot answer gets the fallback reply.
func Init(e *echo.Group, repo repository.BookingRepositoryInterface, model llm.Client, cfg config.AssistantConfig) service.AssistantServiceInterface {
	clock := timemodel.New(cfg.UTCOffsetMinutes)
	res := resolver.New(repo, resolver.Options{
		InferSingleCourt:    cfg.InferSingleCourt,
		InferSingleModality: cfg.InferSingleModality,
		ClientSearchLimit:   cfg.ClientSearchLimit,
	})
	engine := availability.NewEngine(repo, clock, cfg.MinFreeMinutes)
	executor := tools.NewExecutor(repo, res, engine, clock, tools.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})

	svc := service.NewAssistantService(repo, executor, clock, model, service.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxToolCalls:   cfg.MaxToolCalls,
	})
	ctrl := controller.NewAssistantController(svc)
	router.NewAssistantRouter(ctrl).Register(e)

	return svc
}
