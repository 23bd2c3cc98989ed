package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/session"
	"github.com/faq-assistant/backend/internal/storage/sqlite"
	"github.com/faq-assistant/backend/pkg/logger"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrConversationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, sqlite.ErrFeedbackExists),
		errors.Is(err, session.ErrFeedbackPending),
		errors.Is(err, session.ErrNoActiveConversation):
		return fiber.StatusConflict
	case errors.Is(err, sqlite.ErrInvalidFeedback):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as {"error": "..."}. Internal failures are
// logged and their details kept out of the response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else if code = statusFor(err); code != fiber.StatusInternalServerError {
		msg = err.Error()
	}

	if code >= fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
