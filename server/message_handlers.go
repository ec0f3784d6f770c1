package server

import (
	"strings"

	"agora/models"

	"github.com/gofiber/fiber/v2"
)

const messagePageSize = 50

func (h *handlers) sendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	me := currentUser(c)
	if req.RecipientId == me.ID {
		return fail(c, fiber.StatusBadRequest, "Cannot message yourself")
	}

	message, err := h.Store.CreateMessage(c.UserContext(), models.Message{
		SenderId:    me.ID,
		RecipientId: req.RecipientId,
		Content:     strings.TrimSpace(req.Content),
	})
	if err != nil {
		return storeError(c, err, "Recipient not found")
	}

	h.publish(models.MessageEvent{Message: message})
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *handlers) conversations(c *fiber.Ctx) error {
	conversations, err := h.Store.GetConversations(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return internalError(c, err, "Error getting conversations")
	}
	return c.JSON(conversations)
}

// thread returns a page of messages with one partner and marks the
// partner's messages as read
func (h *handlers) thread(c *fiber.Ctx) error {
	me := currentUser(c).ID
	partner := c.Params("userId")

	messages, err := h.Store.GetThread(c.UserContext(), me, partner, page(c), messagePageSize)
	if err != nil {
		return internalError(c, err, "Error getting messages")
	}
	if err := h.Store.MarkThreadRead(c.UserContext(), me, partner); err != nil {
		return internalError(c, err, "Error marking messages read")
	}
	return c.JSON(messages)
}
