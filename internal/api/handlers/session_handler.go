package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/faq-assistant/backend/internal/middleware/validation"
	"github.com/faq-assistant/backend/internal/session"
	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/internal/storage/sqlite"
)

type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	SubmitQuestion(ctx context.Context, id, question string) (*session.Session, error)
	SubmitFeedback(ctx context.Context, id string, value models.FeedbackValue) (*session.Session, error)
}

// SessionHandler drives the ask/feedback loop for a UI that keeps no state of
// its own.
type SessionHandler struct {
	sessions Sessions
}

func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionParams struct {
	SessionID string `validate:"required,max=128"`
}

type SessionFeedbackRequest struct {
	Feedback int `json:"feedback" validate:"required,oneof=1 -1"`
}

// sessionID copies the path parameter: fiber reuses the request buffer it
// points into, and the id outlives the request as a store key.
func sessionID(c *fiber.Ctx) (string, error) {
	p := sessionParams{SessionID: utils.CopyString(c.Params("session_id"))}
	if err := validation.Struct(&p); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return p.SessionID, nil
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	s, err := h.sessions.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *SessionHandler) AskQuestion(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	var req QuestionRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return err
	}

	s, err := h.sessions.SubmitQuestion(c.UserContext(), id, req.Question)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

// SubmitFeedback answers 409 when nothing awaits feedback. If the answer was
// already rated elsewhere the session is still reset and returned with 409.
func (h *SessionHandler) SubmitFeedback(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	var req SessionFeedbackRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return err
	}

	s, err := h.sessions.SubmitFeedback(c.UserContext(), id, models.FeedbackValue(req.Feedback))
	if errors.Is(err, sqlite.ErrFeedbackExists) && s != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   err.Error(),
			"session": s,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(s)
}
