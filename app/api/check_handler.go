package api

import (
	"github.com/gofiber/fiber/v2"

	"manualqa/store"
)

type CheckHandler struct {
	corpus *store.Corpus
}

func NewCheckHandler(corpus *store.Corpus) *CheckHandler {
	return &CheckHandler{corpus: corpus}
}

func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"docs":        h.corpus.Len(),
		"vector_rows": h.corpus.VectorRows(c.Context()),
	})
}
