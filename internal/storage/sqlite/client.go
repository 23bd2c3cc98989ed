package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrInvalidFeedback      = errors.New("feedback must be +1 or -1")

	// ErrFeedbackExists is returned for a second feedback on one conversation;
	// the first value is kept.
	ErrFeedbackExists = errors.New("feedback already submitted for conversation")
)

type Client struct {
	db *sql.DB
}

// NewClient opens the database at dbPath, creating its directory if needed.
// Pragmas go in the DSN so every pooled connection gets them.
func NewClient(dbPath string) (*Client, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		model_used TEXT NOT NULL,
		evaluation_model TEXT NOT NULL,
		response_time REAL NOT NULL,
		relevance TEXT NOT NULL,
		relevance_explanation TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		eval_prompt_tokens INTEGER NOT NULL,
		eval_completion_tokens INTEGER NOT NULL,
		eval_total_tokens INTEGER NOT NULL,
		answer_cost REAL NOT NULL DEFAULT 0,
		eval_cost REAL NOT NULL DEFAULT 0,
		openai_cost REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
	CREATE INDEX IF NOT EXISTS idx_conversations_relevance ON conversations(relevance);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL UNIQUE,
		feedback INTEGER NOT NULL CHECK (feedback IN (1, -1)),
		created_at INTEGER NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// SaveConversation persists a fully assembled record under id.
func (c *Client) SaveConversation(ctx context.Context, id, question string, record *models.AnswerRecord) error {
	query := `
		INSERT INTO conversations (id, question, answer, model_used, evaluation_model, response_time,
			relevance, relevance_explanation, prompt_tokens, completion_tokens, total_tokens,
			eval_prompt_tokens, eval_completion_tokens, eval_total_tokens, answer_cost, eval_cost,
			openai_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		id,
		question,
		record.Answer,
		record.ModelUsed,
		record.EvaluationModel,
		record.ResponseTime,
		string(record.Relevance),
		record.RelevanceExplanation,
		record.Usage.PromptTokens,
		record.Usage.CompletionTokens,
		record.Usage.TotalTokens,
		record.EvaluationUsage.PromptTokens,
		record.EvaluationUsage.CompletionTokens,
		record.EvaluationUsage.TotalTokens,
		record.AnswerCost,
		record.EvaluationCost,
		record.Cost,
		time.Now().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConversationExists, id)
	}
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	logger.Info("Conversation saved",
		zap.String("conversation_id", id),
		zap.String("relevance", string(record.Relevance)),
		zap.Float64("response_time", record.ResponseTime),
		zap.Float64("cost", record.Cost),
	)

	return nil
}

// SaveFeedback records the single feedback value allowed per conversation.
func (c *Client) SaveFeedback(ctx context.Context, conversationID string, value models.FeedbackValue) error {
	if !value.Valid() {
		return ErrInvalidFeedback
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up conversation: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feedback (conversation_id, feedback, created_at) VALUES (?, ?, ?)`,
		conversationID, int(value), time.Now().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrFeedbackExists, conversationID)
	}
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("conversation_id", conversationID),
		zap.String("feedback", value.String()),
	)

	return nil
}

const conversationColumns = `
	c.id, c.question, c.answer, c.model_used, c.evaluation_model, c.response_time,
	c.relevance, c.relevance_explanation, c.prompt_tokens, c.completion_tokens, c.total_tokens,
	c.eval_prompt_tokens, c.eval_completion_tokens, c.eval_total_tokens, c.answer_cost, c.eval_cost, c.openai_cost, c.created_at,
	f.feedback, f.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var conv models.Conversation
	var relevance string
	var createdAt int64
	var feedback, feedbackAt sql.NullInt64

	err := row.Scan(
		&conv.ID,
		&conv.Question,
		&conv.Record.Answer,
		&conv.Record.ModelUsed,
		&conv.Record.EvaluationModel,
		&conv.Record.ResponseTime,
		&relevance,
		&conv.Record.RelevanceExplanation,
		&conv.Record.Usage.PromptTokens,
		&conv.Record.Usage.CompletionTokens,
		&conv.Record.Usage.TotalTokens,
		&conv.Record.EvaluationUsage.PromptTokens,
		&conv.Record.EvaluationUsage.CompletionTokens,
		&conv.Record.EvaluationUsage.TotalTokens,
		&conv.Record.AnswerCost,
		&conv.Record.EvaluationCost,
		&conv.Record.Cost,
		&createdAt,
		&feedback,
		&feedbackAt,
	)
	if err != nil {
		return nil, err
	}

	conv.Record.Relevance = models.Relevance(relevance)
	conv.CreatedAt = time.UnixMilli(createdAt)
	if feedback.Valid {
		conv.Feedback = &models.Feedback{
			ConversationID: conv.ID,
			Value:          models.FeedbackValue(feedback.Int64),
			CreatedAt:      time.UnixMilli(feedbackAt.Int64),
		}
	}

	return &conv, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations c LEFT JOIN feedback f ON f.conversation_id = c.id
		WHERE c.id = ?`

	conv, err := scanConversation(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// GetFeedback returns the stored feedback or ErrConversationNotFound when the
// conversation has none.
func (c *Client) GetFeedback(ctx context.Context, conversationID string) (*models.Feedback, error) {
	var value, createdAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT feedback, created_at FROM feedback WHERE conversation_id = ?`, conversationID,
	).Scan(&value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no feedback for %s", ErrConversationNotFound, conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return &models.Feedback{
		ConversationID: conversationID,
		Value:          models.FeedbackValue(value),
		CreatedAt:      time.UnixMilli(createdAt),
	}, nil
}

// GetRecentConversations lists the newest conversations first, optionally
// only those with the given relevance label.
func (c *Client) GetRecentConversations(ctx context.Context, limit int, relevance models.Relevance) ([]models.Conversation, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + conversationColumns + `
		FROM conversations c LEFT JOIN feedback f ON f.conversation_id = c.id`)

	args := []any{}
	if relevance != "" {
		sb.WriteString(` WHERE c.relevance = ?`)
		args = append(args, string(relevance))
	}
	sb.WriteString(` ORDER BY c.created_at DESC, c.rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent conversations: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}

func (c *Client) GetFeedbackStats(ctx context.Context) (*models.FeedbackStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN feedback > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN feedback < 0 THEN 1 ELSE 0 END), 0)
		FROM feedback
	`

	var stats models.FeedbackStats
	if err := c.db.QueryRowContext(ctx, query).Scan(&stats.ThumbsUp, &stats.ThumbsDown); err != nil {
		return nil, fmt.Errorf("failed to get feedback stats: %w", err)
	}

	return &stats, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
