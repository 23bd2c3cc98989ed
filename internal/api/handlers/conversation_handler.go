package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/faq-assistant/backend/internal/conversation"
	"github.com/faq-assistant/backend/internal/middleware/validation"
	"github.com/faq-assistant/backend/internal/storage/models"
)

const (
	defaultListLimit = 5
	maxListLimit     = 100
)

type Conversations interface {
	HandleQuestion(ctx context.Context, question string) (*conversation.Result, error)
	HandleFeedback(ctx context.Context, conversationID string, value models.FeedbackValue) error
}

type ConversationReader interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	GetRecentConversations(ctx context.Context, limit int, relevance models.Relevance) ([]models.Conversation, error)
	GetFeedbackStats(ctx context.Context) (*models.FeedbackStats, error)
}

type ConversationHandler struct {
	conversations Conversations
	reader        ConversationReader
}

func NewConversationHandler(conversations Conversations, reader ConversationReader) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		reader:        reader,
	}
}

type QuestionRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

func (r *QuestionRequest) Sanitize() {
	r.Question = validation.SanitizeString(r.Question)
}

type FeedbackRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid4"`
	Feedback       int    `json:"feedback" validate:"required,oneof=1 -1"`
}

func (r *FeedbackRequest) Sanitize() {
	r.ConversationID = validation.SanitizeString(r.ConversationID)
}

type ConversationView struct {
	ID                   string            `json:"id"`
	Question             string            `json:"question"`
	Answer               string            `json:"answer"`
	ModelUsed            string            `json:"model_used"`
	EvaluationModel      string            `json:"evaluation_model"`
	ResponseTime         float64           `json:"response_time"`
	Relevance            models.Relevance  `json:"relevance"`
	RelevanceExplanation string            `json:"relevance_explanation"`
	Usage                models.TokenUsage `json:"usage"`
	EvaluationUsage      models.TokenUsage `json:"evaluation_usage"`
	AnswerCost           float64           `json:"answer_cost"`
	EvaluationCost       float64           `json:"evaluation_cost"`
	Cost                 float64           `json:"openai_cost"`
	CreatedAt            time.Time         `json:"created_at"`
	Feedback             *int              `json:"feedback"`
}

func newConversationView(c *models.Conversation) ConversationView {
	v := ConversationView{
		ID:                   c.ID,
		Question:             c.Question,
		Answer:               c.Record.Answer,
		ModelUsed:            c.Record.ModelUsed,
		EvaluationModel:      c.Record.EvaluationModel,
		ResponseTime:         c.Record.ResponseTime,
		Relevance:            c.Record.Relevance,
		RelevanceExplanation: c.Record.RelevanceExplanation,
		Usage:                c.Record.Usage,
		EvaluationUsage:      c.Record.EvaluationUsage,
		AnswerCost:           c.Record.AnswerCost,
		EvaluationCost:       c.Record.EvaluationCost,
		Cost:                 c.Record.Cost,
		CreatedAt:            c.CreatedAt,
	}
	if c.Feedback != nil {
		value := int(c.Feedback.Value)
		v.Feedback = &value
	}
	return v
}

func (h *ConversationHandler) AskQuestion(c *fiber.Ctx) error {
	var req QuestionRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return err
	}

	result, err := h.conversations.HandleQuestion(c.UserContext(), req.Question)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (h *ConversationHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req FeedbackRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return err
	}

	value := models.FeedbackValue(req.Feedback)
	if err := h.conversations.HandleFeedback(c.UserContext(), req.ConversationID, value); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"conversation_id": req.ConversationID,
		"feedback":        req.Feedback,
	})
}

func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	conv, err := h.reader.GetConversation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newConversationView(conv))
}

// ListConversations serves ?limit=N&relevance=LABEL, newest first.
func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
	}

	relevance := models.Relevance(strings.ToUpper(c.Query("relevance")))
	if relevance != "" && !relevance.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown relevance label")
	}

	conversations, err := h.reader.GetRecentConversations(c.UserContext(), limit, relevance)
	if err != nil {
		return err
	}

	views := make([]ConversationView, 0, len(conversations))
	for i := range conversations {
		views = append(views, newConversationView(&conversations[i]))
	}

	return c.JSON(fiber.Map{
		"conversations": views,
	})
}

func (h *ConversationHandler) GetFeedbackStats(c *fiber.Ctx) error {
	stats, err := h.reader.GetFeedbackStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
