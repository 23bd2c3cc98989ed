package models

import (
	"fmt"
	"strings"
	"time"
)

// FAQEntry is one row of the corpus. Entries are never mutated after load.
type FAQEntry struct {
	ID       string
	Question string
	Answer   string
}

// TokenUsage counts tokens for one language-model call. Build it with
// NewTokenUsage so TotalTokens always equals PromptTokens + CompletionTokens.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func NewTokenUsage(promptTokens, completionTokens int) TokenUsage {
	if promptTokens < 0 {
		promptTokens = 0
	}
	if completionTokens < 0 {
		completionTokens = 0
	}
	return TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

type Relevance string

const (
	RelevanceRelevant    Relevance = "RELEVANT"
	RelevancePartly      Relevance = "PARTLY_RELEVANT"
	RelevanceNonRelevant Relevance = "NON_RELEVANT"
	RelevanceUnknown     Relevance = "UNKNOWN"
)

// Graded reports whether r is one of the labels the evaluator may return.
// UNKNOWN is only ever assigned locally.
func (r Relevance) Graded() bool {
	switch r {
	case RelevanceRelevant, RelevancePartly, RelevanceNonRelevant:
		return true
	}
	return false
}

func (r Relevance) Valid() bool {
	return r.Graded() || r == RelevanceUnknown
}

type RelevanceVerdict struct {
	Relevance   Relevance
	Explanation string
}

// AnswerRecord is the output of one pipeline run. Cost is AnswerCost plus
// EvaluationCost, each priced at its own call's model.
type AnswerRecord struct {
	Answer               string
	ModelUsed            string
	EvaluationModel      string
	ResponseTime         float64
	Relevance            Relevance
	RelevanceExplanation string
	Usage                TokenUsage
	EvaluationUsage      TokenUsage
	AnswerCost           float64
	EvaluationCost       float64
	Cost                 float64
}

type Conversation struct {
	ID        string
	Question  string
	Record    AnswerRecord
	CreatedAt time.Time
	Feedback  *Feedback
}

type FeedbackValue int

const (
	FeedbackPositive FeedbackValue = 1
	FeedbackNegative FeedbackValue = -1
)

func (v FeedbackValue) Valid() bool {
	return v == FeedbackPositive || v == FeedbackNegative
}

func (v FeedbackValue) String() string {
	switch v {
	case FeedbackPositive:
		return "+1"
	case FeedbackNegative:
		return "-1"
	}
	return "invalid"
}

// ParseFeedbackValue accepts the UI labels "+1" and "-1" (and "1").
func ParseFeedbackValue(s string) (FeedbackValue, error) {
	switch strings.TrimSpace(s) {
	case "+1", "1":
		return FeedbackPositive, nil
	case "-1":
		return FeedbackNegative, nil
	}
	return 0, fmt.Errorf("invalid feedback value %q", s)
}

type Feedback struct {
	ConversationID string
	Value          FeedbackValue
	CreatedAt      time.Time
}

type FeedbackStats struct {
	ThumbsUp   int `json:"thumbs_up"`
	ThumbsDown int `json:"thumbs_down"`
}
