package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/prompt"
	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

const ParseFailureExplanation = "Failed to parse evaluation"

// Generator is the single-call completion the evaluator reuses.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, models.TokenUsage, error)
}

type Evaluator struct {
	generator Generator
}

func NewEvaluator(generator Generator) *Evaluator {
	return &Evaluator{generator: generator}
}

// Evaluate asks model to grade answer against question. It never fails: a
// failed call or an unparsable reply yields UNKNOWN. Usage from a completed
// call is returned even when its reply cannot be parsed.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer, model string) (models.RelevanceVerdict, models.TokenUsage) {
	raw, usage, err := e.generator.Generate(ctx, prompt.BuildEvaluationPrompt(question, answer), model)
	if err != nil {
		logger.Warn("Relevance evaluation call failed", zap.String("model", model), zap.Error(err))
		return unknown(), usage
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		logger.Warn("Failed to parse relevance evaluation",
			zap.String("model", model),
			zap.String("raw", truncate(raw, 200)),
			zap.Error(err),
		)
		return unknown(), usage
	}

	logger.Debug("Answer evaluated", zap.String("relevance", string(verdict.Relevance)))
	return verdict, usage
}

const (
	keyRelevance   = "Relevance"
	keyExplanation = "Explanation"
)

// ParseVerdict decodes a reply that must be a single JSON object with exactly
// the keys Relevance and Explanation, matched case-sensitively, each once,
// both strings.
func ParseVerdict(raw string) (models.RelevanceVerdict, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))

	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return models.RelevanceVerdict{}, errors.New("evaluation is not a JSON object")
	}

	fields := make(map[string]string, 2)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return models.RelevanceVerdict{}, fmt.Errorf("invalid evaluation json: %w", err)
		}
		key, _ := tok.(string)
		if key != keyRelevance && key != keyExplanation {
			return models.RelevanceVerdict{}, fmt.Errorf("unexpected evaluation key %q", key)
		}
		if _, dup := fields[key]; dup {
			return models.RelevanceVerdict{}, fmt.Errorf("duplicate evaluation key %q", key)
		}

		var value *string
		if err := dec.Decode(&value); err != nil {
			return models.RelevanceVerdict{}, fmt.Errorf("invalid %s value: %w", key, err)
		}
		if value == nil {
			return models.RelevanceVerdict{}, fmt.Errorf("%s is null", key)
		}
		fields[key] = *value
	}

	if _, err := dec.Token(); err != nil {
		return models.RelevanceVerdict{}, fmt.Errorf("invalid evaluation json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return models.RelevanceVerdict{}, errors.New("trailing data after evaluation object")
	}

	relevance, ok := fields[keyRelevance]
	explanation, ok2 := fields[keyExplanation]
	if !ok || !ok2 {
		return models.RelevanceVerdict{}, errors.New("evaluation is missing Relevance or Explanation")
	}

	label := models.Relevance(relevance)
	if !label.Graded() {
		return models.RelevanceVerdict{}, fmt.Errorf("unrecognized relevance label %q", relevance)
	}

	return models.RelevanceVerdict{Relevance: label, Explanation: explanation}, nil
}

func unknown() models.RelevanceVerdict {
	return models.RelevanceVerdict{
		Relevance:   models.RelevanceUnknown,
		Explanation: ParseFailureExplanation,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
