package evaluation

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/faq-assistant/backend/internal/prompt"
	"github.com/faq-assistant/backend/internal/storage/models"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, p, model string) (string, models.TokenUsage, error) {
	args := m.Called(ctx, p, model)
	return args.String(0), args.Get(1).(models.TokenUsage), args.Error(2)
}

func TestEvaluate(t *testing.T) {
	usage := models.NewTokenUsage(300, 40)

	tests := []struct {
		name            string
		reply           string
		callErr         error
		wantRelevance   models.Relevance
		wantExplanation string
		wantUsage       models.TokenUsage
	}{
		{
			name:            "relevant",
			reply:           `{"Relevance": "RELEVANT", "Explanation": "matches FAQ #12"}`,
			wantRelevance:   models.RelevanceRelevant,
			wantExplanation: "matches FAQ #12",
			wantUsage:       usage,
		},
		{
			name:            "partly relevant with surrounding whitespace",
			reply:           "\n  {\"Relevance\": \"PARTLY_RELEVANT\", \"Explanation\": \"half\"}\n",
			wantRelevance:   models.RelevancePartly,
			wantExplanation: "half",
			wantUsage:       usage,
		},
		{
			name:            "non relevant",
			reply:           `{"Relevance": "NON_RELEVANT", "Explanation": ""}`,
			wantRelevance:   models.RelevanceNonRelevant,
			wantExplanation: "",
			wantUsage:       usage,
		},
		{
			name:            "not json",
			reply:           "oops",
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "code fenced",
			reply:           "```json\n{\"Relevance\": \"RELEVANT\", \"Explanation\": \"x\"}\n```",
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "missing explanation",
			reply:           `{"Relevance": "RELEVANT"}`,
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "unexpected key",
			reply:           `{"Relevance": "RELEVANT", "Explanation": "x", "Score": 3}`,
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "unknown label",
			reply:           `{"Relevance": "VERY_RELEVANT", "Explanation": "x"}`,
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "model may not claim UNKNOWN",
			reply:           `{"Relevance": "UNKNOWN", "Explanation": "x"}`,
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "two objects",
			reply:           `{"Relevance": "RELEVANT", "Explanation": "x"} {"Relevance": "RELEVANT", "Explanation": "y"}`,
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       usage,
		},
		{
			name:            "call failure",
			callErr:         errors.New("connection reset"),
			wantRelevance:   models.RelevanceUnknown,
			wantExplanation: ParseFailureExplanation,
			wantUsage:       models.TokenUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			returned := usage
			if tt.callErr != nil {
				returned = models.TokenUsage{}
			}
			gen.On("Generate", mock.Anything,
				prompt.BuildEvaluationPrompt("What is GAD?", "GAD is worry."),
				"gpt-4o-mini",
			).Return(tt.reply, returned, tt.callErr).Once()

			verdict, gotUsage := NewEvaluator(gen).Evaluate(context.Background(), "What is GAD?", "GAD is worry.", "gpt-4o-mini")

			assert.Equal(t, tt.wantRelevance, verdict.Relevance)
			assert.Equal(t, tt.wantExplanation, verdict.Explanation)
			assert.Equal(t, tt.wantUsage, gotUsage)
			gen.AssertExpectations(t)
		})
	}
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict(`{"Explanation": "order does not matter", "Relevance": "RELEVANT"}`)
	require.NoError(t, err)
	assert.Equal(t, models.RelevanceRelevant, v.Relevance)
	assert.Equal(t, "order does not matter", v.Explanation)

	_, err = ParseVerdict(`{"Relevance": 1, "Explanation": "x"}`)
	assert.Error(t, err)

	_, err = ParseVerdict(`[]`)
	assert.Error(t, err)

	_, err = ParseVerdict(``)
	assert.Error(t, err)
}

func TestParseVerdict_KeysAreExact(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"lowercase keys", `{"relevance": "RELEVANT", "explanation": "x"}`},
		{"case-variant duplicate", `{"Relevance": "NON_RELEVANT", "RELEVANCE": "RELEVANT", "Explanation": "x"}`},
		{"exact duplicate", `{"Relevance": "NON_RELEVANT", "Relevance": "RELEVANT", "Explanation": "x"}`},
		{"null explanation", `{"Relevance": "RELEVANT", "Explanation": null}`},
		{"unterminated", `{"Relevance": "RELEVANT", "Explanation": "x"`},
		{"trailing text", `{"Relevance": "RELEVANT", "Explanation": "x"} done`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	// "é" is two bytes; cutting at byte 2 would split it.
	got := truncate("aé", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}
