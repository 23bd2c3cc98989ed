// Package session holds the UI-side conversation state machine. A session is
// either idle or waiting for feedback on the answer it was last shown:
//
//	no_active_conversation --question submitted--> awaiting_feedback
//	awaiting_feedback      --feedback submitted--> no_active_conversation
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/faq-assistant/backend/internal/conversation"
	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/internal/storage/sqlite"
)

type State string

const (
	StateNoActiveConversation State = "no_active_conversation"
	StateAwaitingFeedback     State = "awaiting_feedback"
)

type Event string

const (
	EventQuestionSubmitted Event = "question_submitted"
	EventFeedbackSubmitted Event = "feedback_submitted"
)

var (
	ErrFeedbackPending      = errors.New("feedback pending for the current answer")
	ErrNoActiveConversation = errors.New("no answer awaiting feedback")
)

type Session struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Answer         string    `json:"answer,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Transition reports the state reached by applying e in s, or an error when
// e is not allowed in s.
func Transition(s State, e Event) (State, error) {
	switch {
	case s == StateNoActiveConversation && e == EventQuestionSubmitted:
		return StateAwaitingFeedback, nil
	case s == StateAwaitingFeedback && e == EventFeedbackSubmitted:
		return StateNoActiveConversation, nil
	case s == StateAwaitingFeedback:
		return s, ErrFeedbackPending
	default:
		return s, ErrNoActiveConversation
	}
}

// Store persists sessions. Get returns (nil, nil) for an unknown id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

type Conversations interface {
	HandleQuestion(ctx context.Context, question string) (*conversation.Result, error)
	HandleFeedback(ctx context.Context, conversationID string, value models.FeedbackValue) error
}

type Manager struct {
	store         Store
	conversations Conversations
	now           func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes transitions of one session. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, conversations Conversations) *Manager {
	return &Manager{
		store:         store,
		conversations: conversations,
		now:           time.Now,
		locks:         make(map[string]*sessionLock),
	}
}

// lock blocks only callers working on the same session id.
func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Get returns the session, starting a fresh idle one for an unknown id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &Session{ID: id, State: StateNoActiveConversation}
	}
	return s, nil
}

// SubmitQuestion answers question for an idle session and moves it to
// awaiting_feedback.
func (m *Manager) SubmitQuestion(ctx context.Context, id, question string) (*Session, error) {
	defer m.lock(id)()

	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(s.State, EventQuestionSubmitted)
	if err != nil {
		return s, err
	}

	res, err := m.conversations.HandleQuestion(ctx, question)
	if err != nil {
		return s, err
	}

	s.State = next
	s.ConversationID = res.ConversationID
	s.Answer = res.Answer
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SubmitFeedback records value for the answer the session is showing and
// returns it to idle. If the store no longer accepts feedback for that
// conversation the session is reset anyway and the store error returned.
func (m *Manager) SubmitFeedback(ctx context.Context, id string, value models.FeedbackValue) (*Session, error) {
	defer m.lock(id)()

	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(s.State, EventFeedbackSubmitted)
	if err != nil {
		return s, err
	}

	feedbackErr := m.conversations.HandleFeedback(ctx, s.ConversationID, value)
	if feedbackErr != nil &&
		!errors.Is(feedbackErr, sqlite.ErrFeedbackExists) &&
		!errors.Is(feedbackErr, sqlite.ErrConversationNotFound) {
		return s, feedbackErr
	}

	s.State = next
	s.ConversationID = ""
	s.Answer = ""
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, feedbackErr
}
