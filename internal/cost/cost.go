package cost

import (
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

// Pricing is USD per 1K tokens.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

type PriceTable map[string]Pricing

// DefaultPrices holds the published OpenAI list prices for supported models.
var DefaultPrices = PriceTable{
	"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
}

// Estimate returns the cost of usage on model. Unknown models cost 0 and
// log a warning so accounting never blocks an answer.
func (t PriceTable) Estimate(model string, usage models.TokenUsage) float64 {
	p, ok := t[model]
	if !ok {
		logger.Warn("Model not recognized, cost estimate is zero", zap.String("model", model))
		return 0
	}
	return (float64(usage.PromptTokens)*p.InputPer1K + float64(usage.CompletionTokens)*p.OutputPer1K) / 1000
}

func Estimate(model string, usage models.TokenUsage) float64 {
	return DefaultPrices.Estimate(model, usage)
}
