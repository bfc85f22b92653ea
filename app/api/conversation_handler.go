package api

import (
	"ragchat/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	conversations store.ConversationStore
}

func NewConversationHandler(conversations store.ConversationStore) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) HandleCreate(c *fiber.Ctx) error {
	id, err := h.conversations.CreateConversation(c.Context())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *ConversationHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}
	turns, err := h.conversations.GetConversation(c.Context(), id)
	if err != nil {
		return ErrNotFound(id, "conversation")
	}
	return c.JSON(fiber.Map{"id": id, "turns": turns})
}
