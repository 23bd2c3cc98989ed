package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/internal/storage/sqlite"
)

type stubEngine struct {
	record *models.AnswerRecord
	err    error
}

func (s stubEngine) AnswerQuestion(ctx context.Context, query string) (*models.AnswerRecord, error) {
	return s.record, s.err
}

func newStore(t *testing.T) *sqlite.Client {
	t.Helper()
	store, err := sqlite.NewClient(filepath.Join(t.TempDir(), "assistant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())
	return store
}

func record() *models.AnswerRecord {
	return &models.AnswerRecord{
		Answer:          "GAD is persistent worry.",
		ModelUsed:       "gpt-4o-mini",
		EvaluationModel: "gpt-4o-mini",
		Relevance:       models.RelevanceRelevant,
		Usage:           models.NewTokenUsage(10, 5),
		EvaluationUsage: models.NewTokenUsage(8, 4),
	}
}

func TestHandleQuestion(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewService(stubEngine{record: record()}, store)

	res, err := svc.HandleQuestion(ctx, "What is generalized anxiety disorder?")
	require.NoError(t, err)
	assert.Equal(t, "GAD is persistent worry.", res.Answer)

	parsed, err := uuid.Parse(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	conv, err := store.GetConversation(ctx, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "What is generalized anxiety disorder?", conv.Question)
	assert.Equal(t, *record(), conv.Record)
}

func TestHandleQuestion_IDsAreUnique(t *testing.T) {
	svc := NewService(stubEngine{record: record()}, newStore(t))

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := svc.HandleQuestion(context.Background(), "same question")
		require.NoError(t, err)
		assert.False(t, seen[res.ConversationID])
		seen[res.ConversationID] = true
	}
}

func TestHandleQuestion_FailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	boom := errors.New("generation failed")
	svc := NewService(stubEngine{err: boom}, store)

	res, err := svc.HandleQuestion(ctx, "q")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)

	recent, err := store.GetRecentConversations(ctx, 10, "")
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHandleFeedback_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := NewService(stubEngine{record: record()}, store)

	res, err := svc.HandleQuestion(ctx, "q")
	require.NoError(t, err)

	value, err := models.ParseFeedbackValue("+1")
	require.NoError(t, err)
	require.NoError(t, svc.HandleFeedback(ctx, res.ConversationID, value))

	fb, err := store.GetFeedback(ctx, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "+1", fb.Value.String())

	err = svc.HandleFeedback(ctx, res.ConversationID, models.FeedbackNegative)
	assert.ErrorIs(t, err, sqlite.ErrFeedbackExists)

	err = svc.HandleFeedback(ctx, uuid.NewString(), models.FeedbackPositive)
	assert.ErrorIs(t, err, sqlite.ErrConversationNotFound)
}
