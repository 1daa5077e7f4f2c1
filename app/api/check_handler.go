package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// GenerationProber checks the inference endpoint with a trivial prompt.
type GenerationProber interface {
	Health(ctx context.Context) error
}

// IndexProber checks the vector index and reports its document count.
type IndexProber interface {
	Health(ctx context.Context) (int, error)
}

type CheckHandler struct {
	llm   GenerationProber
	index IndexProber
}

func NewCheckHandler(llm GenerationProber, index IndexProber) *CheckHandler {
	return &CheckHandler{
		llm:   llm,
		index: index,
	}
}

// HandleLive answers without touching any external service.
func (h *CheckHandler) HandleLive(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "message": "API is running"})
}

// HandleHealthy aggregates the generation endpoint and vector index
// probes. Any probe failure surfaces as a 500 with the failure detail.
func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	if err := h.llm.Health(c.Context()); err != nil {
		return err
	}

	count, err := h.index.Health(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "healthy", "documents": count})
}
