package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sgidt-documentos/internal/application/chat"
	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
)

// ChatHandler chat de ayuda.
type ChatHandler struct {
	uc *chat.UseCase
}

// NewChatHandler construye el handler.
func NewChatHandler(uc *chat.UseCase) *ChatHandler {
	return &ChatHandler{uc: uc}
}

// Ask godoc
// @Summary      Preguntar al chat de ayuda
// @Tags         ayuda
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ChatRequest  true  "mensaje"
// @Success      200   {object}  dto.ChatResponse
// @Failure      413   {object}  dto.ChatResponse
// @Failure      429   {object}  dto.ChatResponse
// @Router       /api/v1/ayuda/chat/ [post]
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ChatResponse{Reply: "No entendí tu mensaje. ¿Puedes reformularlo?"})
	}
	res, err := h.uc.Ask(c.UserContext(), GetUserID(c), req.Message)
	switch {
	case errors.Is(err, chat.ErrMessageTooLong):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ChatResponse{Reply: "El mensaje es demasiado largo."})
	case errors.Is(err, chat.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ChatResponse{Reply: "Demasiadas consultas seguidas. Espera un momento."})
	case err != nil:
		return writeError(c, err)
	}
	return c.JSON(res)
}
