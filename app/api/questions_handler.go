package api

import (
	"github.com/gofiber/fiber/v2"
)

// Starter questions shown by clients before the first exchange.
var defaultQuestions = []string{
	"What documents do you have knowledge about?",
	"Give me a short summary of the ingested material.",
	"What topics can I ask you about?",
}

type QuestionsHandler struct{}

func NewQuestionsHandler() *QuestionsHandler {
	return &QuestionsHandler{}
}

func (h QuestionsHandler) HandleQuestions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"questions": defaultQuestions})
}
