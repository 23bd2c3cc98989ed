package redis

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faq-assistant/backend/internal/session"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}

func TestDecodeSession(t *testing.T) {
	s, err := decodeSession([]byte(`{"id":"s1","state":"awaiting_feedback","conversation_id":"c1","answer":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, session.StateAwaitingFeedback, s.State)
	assert.Equal(t, "c1", s.ConversationID)

	s, err = decodeSession([]byte(`{"id":"s2","state":"bogus"}`))
	require.NoError(t, err)
	assert.Equal(t, session.StateNoActiveConversation, s.State)

	_, err = decodeSession([]byte(`not json`))
	assert.Error(t, err)
}

// Needs a live server: REDIS_TEST_ADDR=localhost:6379 go test ./internal/cache/redis
func TestClient_SaveAndGet(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := NewClient(host, port, "", 0, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	id := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)

	missing, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, c.Save(ctx, &session.Session{ID: id, State: session.StateAwaitingFeedback, ConversationID: "c1"}))
	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ConversationID)

	c.client.Del(ctx, sessionKey(id))
}

