package controller

import (
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/serverutils"
	"ai-docqa-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	ClearDocuments(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{chatbotService: chatbotService}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	r.Post("/ask", c.Ask)
	r.Delete("/documents", c.ClearDocuments)
	r.Delete("/session", c.DeleteSession)
}

func (c *chatbotController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.chatbotService.Ask(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *chatbotController) ClearDocuments(ctx *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.chatbotService.ClearDocuments(ctx.UserContext(), req.SessionId)
	if !res.Success {
		return ctx.Status(fiber.StatusInternalServerError).JSON(res)
	}
	return ctx.JSON(res)
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.Reset(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
