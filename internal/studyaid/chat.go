package studyaid

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/studybase-api/internal/models"

	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

// Answerer produces an answer from extracted document text.
type Answerer interface {
	AnswerFromContent(ctx context.Context, doc models.Document, content, question string) (string, error)
}

// ChatSession is an append-only conversation about one document. Only one question may be
// outstanding at a time.
type ChatSession struct {
	ID        string
	OwnerID   string
	Document  models.Document
	CreatedAt time.Time

	answerer Answerer
	content  func(ctx context.Context) string
	now      func() time.Time

	mu       sync.Mutex
	turns    []models.ChatTurn
	pending  bool
	loaded   bool
	document string
}

// NewChatSession builds an empty session. content is called once, on the first question.
func NewChatSession(id, ownerID string, doc models.Document, answerer Answerer, content func(ctx context.Context) string) *ChatSession {
	return &ChatSession{
		ID:        id,
		OwnerID:   ownerID,
		Document:  doc,
		CreatedAt: time.Now().UTC(),
		answerer:  answerer,
		content:   content,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ask appends the question, waits for the answer and appends it. A failed request appends
// its user-facing message as the assistant turn and returns the error.
func (s *ChatSession) Ask(ctx context.Context, question string) ([]models.ChatTurn, error) {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, appErrors.ErrRequestInFlight
	}
	s.pending = true
	s.turns = append(s.turns, models.ChatTurn{Role: models.ChatRoleUser, Content: question, CreatedAt: s.now()})
	s.mu.Unlock()

	answer, err := s.answerer.AnswerFromContent(ctx, s.Document, s.documentText(ctx), question)
	reply := answer
	if err != nil {
		reply = appErrors.FromError(err).Message
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, models.ChatTurn{Role: models.ChatRoleAssistant, Content: reply, CreatedAt: s.now()})
	s.pending = false
	return s.copyLocked(), err
}

// Turns returns a copy of the conversation.
func (s *ChatSession) Turns() []models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Pending reports whether a question is awaiting its answer.
func (s *ChatSession) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// View renders the session for the API.
func (s *ChatSession) View() models.ChatSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ChatSessionView{
		ID:        s.ID,
		Document:  s.Document,
		Turns:     s.copyLocked(),
		Pending:   s.pending,
		CreatedAt: s.CreatedAt,
	}
}

// documentText is only reached with pending set, so no other Ask runs concurrently.
func (s *ChatSession) documentText(ctx context.Context) string {
	if s.loaded || s.content == nil {
		return s.document
	}
	s.document = s.content(ctx)
	s.loaded = true
	return s.document
}

func (s *ChatSession) copyLocked() []models.ChatTurn {
	out := make([]models.ChatTurn, len(s.turns))
	copy(out, s.turns)
	return out
}
