package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Data      DataConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int `validate:"min=1,max=65535"`
	ReadTimeout  int `validate:"min=0"`
	WriteTimeout int `validate:"min=0"`
	BodyLimit    int `validate:"min=1"`
}

type SQLiteConfig struct {
	Path string `validate:"required"`
}

// RedisConfig backs UI sessions. When disabled sessions live in process memory.
type RedisConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Password      string
	DB            int
	SessionTTLSec int `validate:"min=0"`
}

// LLMConfig keeps the answer and evaluation models independent.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Model           string `validate:"required"`
	EvaluationModel string `validate:"required"`
	// BreakerThreshold consecutive service failures open the circuit; 0
	// disables the breaker.
	BreakerThreshold   int `validate:"min=0"`
	BreakerCooldownSec int `validate:"min=1"`
}

type DataConfig struct {
	Path string `validate:"required"`
}

type SearchConfig struct {
	NumResults    int     `validate:"min=1"`
	QuestionBoost float64 `validate:"gte=0"`
	AnswerBoost   float64 `validate:"gte=0"`
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int `validate:"min=1"`
}

type LoggingConfig struct {
	Level      string `validate:"oneof=debug info warn error"`
	Format     string `validate:"oneof=json console"`
	OutputPath string
}

// Load reads configFile when given, otherwise searches the default locations.
// Environment variables prefixed with FAQ_ASSISTANT override file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/faq-assistant")
	}

	v.SetEnvPrefix("FAQ_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("llm.apiKey", "FAQ_ASSISTANT_LLM_APIKEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.bodyLimit", 1048576)

	v.SetDefault("sqlite.path", "./data/assistant.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.sessionTTLSec", 3600)

	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.evaluationModel", "gpt-4o-mini")
	v.SetDefault("llm.breakerThreshold", 5)
	v.SetDefault("llm.breakerCooldownSec", 30)

	v.SetDefault("data.path", "./data/Mental_Health_FAQ.csv")

	v.SetDefault("search.numResults", 10)
	v.SetDefault("search.questionBoost", 1.0)
	v.SetDefault("search.answerBoost", 1.0)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
