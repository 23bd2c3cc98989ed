package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faq-assistant/backend/internal/api/handlers"
	"github.com/faq-assistant/backend/internal/conversation"
	"github.com/faq-assistant/backend/internal/metrics"
	"github.com/faq-assistant/backend/internal/middleware/ratelimit"
	"github.com/faq-assistant/backend/internal/session"
	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/internal/storage/sqlite"
)

type stubEngine struct{}

func (stubEngine) AnswerQuestion(ctx context.Context, query string) (*models.AnswerRecord, error) {
	return &models.AnswerRecord{
		Answer:          "You can reach out to a mental health professional.",
		ModelUsed:       "gpt-4o-mini",
		EvaluationModel: "gpt-4o-mini",
		Relevance:       models.RelevanceRelevant,
		Usage:           models.NewTokenUsage(50, 10),
	}, nil
}

func newTestServer(t *testing.T) (*Handlers, *sqlite.Client) {
	t.Helper()
	store, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	svc := conversation.NewService(stubEngine{}, store)
	return &Handlers{
		Conversations: handlers.NewConversationHandler(svc, store),
		Sessions:      handlers.NewSessionHandler(session.NewManager(session.NewMemoryStore(), svc)),
		Health:        handlers.NewHealthHandler(3, map[string]handlers.Pinger{"sqlite": store}),
	}, store
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNewApp_AskAndRate(t *testing.T) {
	metrics.Init()
	h, store := newTestServer(t)
	app := NewApp(Options{BodyLimit: 1 << 20}, *h)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/questions", `{"question":"Where can I get help?"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "mental health professional")

	recent, err := store.GetRecentConversations(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, recent, 1)

	resp, err = app.Test(jsonRequest("POST", "/api/v1/feedback",
		`{"conversation_id":"`+recent[0].ID+`","feedback":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/api/v1/feedback",
		`{"conversation_id":"`+recent[0].ID+`","feedback":-1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	stats, err := store.GetFeedbackStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ThumbsUp)
	assert.Equal(t, 0, stats.ThumbsDown)
}

func TestNewApp_SecurityHeadersAndReady(t *testing.T) {
	h, _ := newTestServer(t)
	app := NewApp(Options{BodyLimit: 1 << 20}, *h)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestNewApp_RateLimitsQuestions(t *testing.T) {
	rl := ratelimit.New(ratelimit.Config{MaxRequestsPerMinute: 1})
	defer rl.Stop()
	h, _ := newTestServer(t)
	app := NewApp(Options{BodyLimit: 1 << 20, RateLimiter: rl}, *h)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/questions", `{"question":"q1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/api/v1/questions", `{"question":"q2"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/feedback/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_Metrics(t *testing.T) {
	metrics.Init()
	h, _ := newTestServer(t)
	app := NewApp(Options{BodyLimit: 1 << 20}, *h)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "faq_assistant_corpus_entries")
}
