package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/pkg/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness unconditionally and readiness once the
// corpus is indexed and every dependency answers a ping.
type HealthHandler struct {
	corpusSize int
	deps       map[string]Pinger
	now        func() time.Time
}

func NewHealthHandler(corpusSize int, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		corpusSize: corpusSize,
		deps:       deps,
		now:        time.Now,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   h.now().Unix(),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	ready := h.corpusSize > 0
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", fiber.StatusOK
	if !ready {
		status, code = "not_ready", fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":      status,
		"corpus_size": h.corpusSize,
		"checks":      checks,
	})
}
