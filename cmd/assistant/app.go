package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/conversation"
	"github.com/faq-assistant/backend/internal/evaluation"
	"github.com/faq-assistant/backend/internal/index"
	"github.com/faq-assistant/backend/internal/ingestion"
	"github.com/faq-assistant/backend/internal/llm"
	"github.com/faq-assistant/backend/internal/metrics"
	"github.com/faq-assistant/backend/internal/query"
	"github.com/faq-assistant/backend/internal/storage/sqlite"
	"github.com/faq-assistant/backend/pkg/circuitbreaker"
	"github.com/faq-assistant/backend/pkg/config"
	"github.com/faq-assistant/backend/pkg/logger"
)

// loadConfig reads the dotenv file, the config and starts the logger.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

func openStore(cfg *config.Config) (*sqlite.Client, error) {
	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite client: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// assistant is the wired answer pipeline shared by the ask and serve commands.
type assistant struct {
	store      *sqlite.Client
	service    *conversation.Service
	corpusSize int
}

func newAssistant(cfg *config.Config) (*assistant, error) {
	entries, err := ingestion.LoadCorpus(cfg.Data.Path)
	if err != nil {
		return nil, err
	}

	idx := index.New(entries, index.Options{
		QuestionBoost: cfg.Search.QuestionBoost,
		AnswerBoost:   cfg.Search.AnswerBoost,
	})
	metrics.CorpusEntries.Set(float64(idx.Len()))
	logger.Info("Corpus indexed", zap.String("path", cfg.Data.Path), zap.Int("entries", idx.Len()))

	if cfg.LLM.APIKey == "" {
		logger.Warn("No OpenAI API key configured; set OPENAI_API_KEY")
	}
	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if cfg.LLM.BreakerThreshold > 0 {
		llmClient.WithBreaker(circuitbreaker.NewCircuitBreaker("openai", circuitbreaker.Config{
			FailureThreshold: cfg.LLM.BreakerThreshold,
			Cooldown:         time.Duration(cfg.LLM.BreakerCooldownSec) * time.Second,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				metrics.LLMCircuitState.Set(float64(to))
			},
			Logger: logger.GetLogger(),
		}))
	}

	engine := query.NewEngine(idx, llmClient, evaluation.NewEvaluator(llmClient), query.Config{
		AnswerModel:     cfg.LLM.Model,
		EvaluationModel: cfg.LLM.EvaluationModel,
		NumResults:      cfg.Search.NumResults,
	})

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	return &assistant{
		store:      store,
		service:    conversation.NewService(engine, store),
		corpusSize: idx.Len(),
	}, nil
}

func (a *assistant) Close() error {
	return a.store.Close()
}
