package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/session"
	"github.com/faq-assistant/backend/pkg/logger"
)

const sessionKeyPrefix = "session:"

// Client stores UI sessions in Redis so several API replicas can share them.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("session_ttl", ttl))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (c *Client) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s, err := decodeSession(data)
	if err != nil {
		return nil, err
	}

	logger.Debug("Session loaded", zap.String("session_id", id), zap.String("state", string(s.State)))
	return s, nil
}

// Save writes s and refreshes its expiry. A zero TTL keeps sessions forever.
func (c *Client) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.client.Set(ctx, sessionKey(s.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logger.Debug("Session saved", zap.String("session_id", s.ID), zap.String("state", string(s.State)))
	return nil
}

func decodeSession(data []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.State != session.StateAwaitingFeedback {
		s.State = session.StateNoActiveConversation
	}
	return &s, nil
}
