package controller

import (
	"ai-docqa-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDiagnosticsController interface {
	RegisterRoutes(r fiber.Router)
	ListCollections(ctx *fiber.Ctx) error
	SessionCollections(ctx *fiber.Ctx) error
	Diagnostics(ctx *fiber.Ctx) error
	StoreDiagnostics(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type diagnosticsController struct {
	service service.IDiagnosticsService
}

func NewDiagnosticsController(service service.IDiagnosticsService) IDiagnosticsController {
	return &diagnosticsController{service: service}
}

func (c *diagnosticsController) RegisterRoutes(r fiber.Router) {
	r.Get("/list-collections", c.ListCollections)
	r.Get("/session-collections", c.SessionCollections)
	r.Get("/diagnostics", c.Diagnostics)
	r.Get("/store-diagnostics", c.StoreDiagnostics)
	r.Get("/health", c.Health)
}

func (c *diagnosticsController) ListCollections(ctx *fiber.Ctx) error {
	res, err := c.service.ListCollections(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *diagnosticsController) SessionCollections(ctx *fiber.Ctx) error {
	res, err := c.service.SessionCollections(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *diagnosticsController) Diagnostics(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Diagnostics(ctx.UserContext()))
}

func (c *diagnosticsController) StoreDiagnostics(ctx *fiber.Ctx) error {
	res, err := c.service.StoreDiagnostics(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *diagnosticsController) Health(ctx *fiber.Ctx) error {
	res := c.service.Health(ctx.UserContext())
	if !res.EmbeddingOk {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(res)
	}
	return ctx.JSON(res)
}
