package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faq-assistant/backend/internal/storage/models"
)

var (
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_assistant_questions_total",
			Help: "Questions answered, by outcome",
		},
		[]string{"status"},
	)

	ResponseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_assistant_response_time_seconds",
			Help:    "Retrieval plus generation time per answer",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_assistant_llm_tokens_total",
			Help: "Language-model tokens used",
		},
		[]string{"model", "call", "type"},
	)

	LLMCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_assistant_llm_cost_usd_total",
			Help: "Estimated language-model cost in USD",
		},
		[]string{"model"},
	)

	RelevanceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_assistant_relevance_total",
			Help: "Answers by self-evaluated relevance",
		},
		[]string{"relevance"},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_assistant_feedback_total",
			Help: "User feedback submissions",
		},
		[]string{"value"},
	)

	CorpusEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faq_assistant_corpus_entries",
			Help: "FAQ entries loaded into the index",
		},
	)

	LLMCircuitState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faq_assistant_llm_circuit_state",
			Help: "Language-model circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QuestionsTotal,
			ResponseTime,
			LLMTokensUsed,
			LLMCost,
			RelevanceTotal,
			FeedbackTotal,
			CorpusEntries,
			LLMCircuitState,
		)
	})
}

// ObserveAnswer records one successfully assembled answer.
func ObserveAnswer(record *models.AnswerRecord) {
	QuestionsTotal.WithLabelValues("ok").Inc()
	ResponseTime.Observe(record.ResponseTime)
	RelevanceTotal.WithLabelValues(string(record.Relevance)).Inc()

	observeTokens(record.ModelUsed, "answer", record.Usage)
	observeTokens(record.EvaluationModel, "evaluation", record.EvaluationUsage)

	if record.AnswerCost > 0 {
		LLMCost.WithLabelValues(record.ModelUsed).Add(record.AnswerCost)
	}
	if record.EvaluationCost > 0 {
		LLMCost.WithLabelValues(record.EvaluationModel).Add(record.EvaluationCost)
	}
}

func ObserveFailure() {
	QuestionsTotal.WithLabelValues("error").Inc()
}

func ObserveFeedback(value models.FeedbackValue) {
	FeedbackTotal.WithLabelValues(value.String()).Inc()
}

func observeTokens(model, call string, usage models.TokenUsage) {
	LLMTokensUsed.WithLabelValues(model, call, "prompt").Add(float64(usage.PromptTokens))
	LLMTokensUsed.WithLabelValues(model, call, "completion").Add(float64(usage.CompletionTokens))
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
