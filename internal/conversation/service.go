// Package conversation is the entry point used by the UI layer: it runs the
// answer pipeline, mints the conversation id, persists the record and later
// the user's feedback.
package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/metrics"
	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

type Answerer interface {
	AnswerQuestion(ctx context.Context, query string) (*models.AnswerRecord, error)
}

type Store interface {
	SaveConversation(ctx context.Context, id, question string, record *models.AnswerRecord) error
	SaveFeedback(ctx context.Context, conversationID string, value models.FeedbackValue) error
}

// Result is all the UI sees of an answer; the rest of the record is only
// persisted.
type Result struct {
	ConversationID string `json:"conversation_id"`
	Answer         string `json:"answer"`
}

type Service struct {
	engine Answerer
	store  Store
	newID  func() string
}

func NewService(engine Answerer, store Store) *Service {
	return &Service{
		engine: engine,
		store:  store,
		newID:  uuid.NewString,
	}
}

// HandleQuestion answers question and persists the record under a freshly
// generated id. Nothing is stored when the pipeline fails.
func (s *Service) HandleQuestion(ctx context.Context, question string) (*Result, error) {
	record, err := s.engine.AnswerQuestion(ctx, question)
	if err != nil {
		metrics.ObserveFailure()
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	id := s.newID()
	if err := s.store.SaveConversation(ctx, id, question, record); err != nil {
		metrics.ObserveFailure()
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	metrics.ObserveAnswer(record)

	logger.Info("Question answered",
		zap.String("conversation_id", id),
		zap.String("model", record.ModelUsed),
		zap.String("relevance", string(record.Relevance)),
		zap.Float64("response_time", record.ResponseTime),
		zap.Int("total_tokens", record.Usage.TotalTokens+record.EvaluationUsage.TotalTokens),
	)

	return &Result{ConversationID: id, Answer: record.Answer}, nil
}

// HandleFeedback stores the user's verdict on a previous answer. The store
// rejects a second submission for the same conversation.
func (s *Service) HandleFeedback(ctx context.Context, conversationID string, value models.FeedbackValue) error {
	if err := s.store.SaveFeedback(ctx, conversationID, value); err != nil {
		return err
	}
	metrics.ObserveFeedback(value)
	return nil
}
