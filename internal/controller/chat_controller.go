package controller

import (
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/dto"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/pkg/serverutils"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Turn(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	State(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("turn", c.Turn)
	h.Post("reset", c.Reset)
	h.Get("session/:id", c.State)
}

func (c *chatController) Turn(ctx *fiber.Ctx) error {
	userId, _ := ctx.Locals("user_id").(string)

	var req dto.ChatTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.chatService.Turn(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat turn", res))
}

func (c *chatController) Reset(ctx *fiber.Ctx) error {
	userId, _ := ctx.Locals("user_id").(string)

	var req dto.ResetSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.chatService.Reset(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}

func (c *chatController) State(ctx *fiber.Ctx) error {
	userId, _ := ctx.Locals("user_id").(string)
	sessionId := ctx.Params("id")
	if sessionId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing session id")
	}

	res, err := c.chatService.State(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}
