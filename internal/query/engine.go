package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/cost"
	"github.com/faq-assistant/backend/internal/prompt"
	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

const DefaultNumResults = 10

type Retriever interface {
	Retrieve(query string, k int) []models.FAQEntry
}

type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, models.TokenUsage, error)
}

type RelevanceEvaluator interface {
	Evaluate(ctx context.Context, question, answer, model string) (models.RelevanceVerdict, models.TokenUsage)
}

type Config struct {
	AnswerModel     string
	EvaluationModel string
	NumResults      int
	Prices          cost.PriceTable
}

// Engine runs the retrieval-augmented answer pipeline. It holds only shared,
// read-only collaborators, so one Engine serves concurrent questions.
type Engine struct {
	index     Retriever
	generator Generator
	evaluator RelevanceEvaluator
	cfg       Config
	now       func() time.Time
}

func NewEngine(index Retriever, generator Generator, evaluator RelevanceEvaluator, cfg Config) *Engine {
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultNumResults
	}
	if cfg.EvaluationModel == "" {
		cfg.EvaluationModel = cfg.AnswerModel
	}
	if cfg.Prices == nil {
		cfg.Prices = cost.DefaultPrices
	}

	return &Engine{
		index:     index,
		generator: generator,
		evaluator: evaluator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AnswerQuestion answers query from the FAQ context and grades the answer.
// ResponseTime covers retrieval and generation only. A generation failure is
// returned as an error; evaluation problems degrade to UNKNOWN.
func (e *Engine) AnswerQuestion(ctx context.Context, query string) (*models.AnswerRecord, error) {
	start := e.now()

	results := e.index.Retrieve(query, e.cfg.NumResults)
	answerPrompt := prompt.BuildAnswerPrompt(query, results)

	answer, usage, err := e.generator.Generate(ctx, answerPrompt, e.cfg.AnswerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	took := e.now().Sub(start).Seconds()

	logger.Debug("Answer generated",
		zap.Int("context_entries", len(results)),
		zap.Float64("response_time", took),
	)

	verdict, evalUsage := e.evaluator.Evaluate(ctx, query, answer, e.cfg.EvaluationModel)

	answerCost := e.cfg.Prices.Estimate(e.cfg.AnswerModel, usage)
	evalCost := e.cfg.Prices.Estimate(e.cfg.EvaluationModel, evalUsage)

	return &models.AnswerRecord{
		Answer:               answer,
		ModelUsed:            e.cfg.AnswerModel,
		EvaluationModel:      e.cfg.EvaluationModel,
		ResponseTime:         took,
		Relevance:            verdict.Relevance,
		RelevanceExplanation: verdict.Explanation,
		Usage:                usage,
		EvaluationUsage:      evalUsage,
		AnswerCost:           answerCost,
		EvaluationCost:       evalCost,
		Cost:                 answerCost + evalCost,
	}, nil
}
