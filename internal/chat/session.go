// Package chat keeps the question-and-answer transcript for one resolved
// passage.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/failure"
)

// Role identifies who a message is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
	RoleInfo      Role = "info"
)

// Message is one transcript entry.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

const defaultResetMessage = "Chat history cleared."

var (
	ErrEmptyQuestion = failure.New(failure.Validation, "question is empty")
	ErrNoVerse       = failure.New(failure.Validation, "no passage to ask about")
	ErrBusy          = failure.New(failure.Validation, "a request is already in flight")
	// ErrDiscarded is returned when the scope ended before the request
	// completed; nothing was appended.
	ErrDiscarded = errors.New("chat: scope closed before the reply arrived")
)

// Backend answers questions about a passage.
type Backend interface {
	Chat(ctx context.Context, verse api.DailyVerse, question string) (api.ChatReply, error)
	ResetChat(ctx context.Context) (string, error)
}

// Session is safe for concurrent use. At most one request, ask or reset, is
// outstanding at a time.
type Session struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	scope   uint64
	verse   *api.DailyVerse
	history []Message
	pending bool
	usage   api.ChatReply
}

// NewSession returns a session with no passage bound.
func NewSession(backend Backend, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{backend: backend, logger: logger.With("component", "chat"), now: time.Now}
}

// Bind scopes the session to verse and clears the transcript. A reply still
// in flight for the previous scope is dropped.
func (s *Session) Bind(verse api.DailyVerse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope++
	v := verse
	s.verse = &v
	s.history = nil
	s.pending = false
}

// Close ends the scope without binding a new passage.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope++
	s.verse = nil
	s.history = nil
	s.pending = false
}

// Ask sends question about the bound passage. Blank questions, a missing
// passage and an outstanding request are rejected without touching the
// transcript. Otherwise the question is appended at once and exactly one
// assistant or error message follows; that message is returned.
func (s *Session) Ask(ctx context.Context, question string) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.verse == nil {
		s.mu.Unlock()
		return Message{}, ErrNoVerse
	}
	if s.pending {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.pending = true
	scope := s.scope
	verse := *s.verse
	s.history = append(s.history, Message{Role: RoleUser, Content: question, Timestamp: s.now()})
	s.mu.Unlock()

	reply, err := s.backend.Chat(ctx, verse, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	if scope != s.scope {
		return Message{}, ErrDiscarded
	}
	s.pending = false
	var msg Message
	if err != nil {
		s.logger.Warn("chat request failed", "err", err)
		msg = Message{Role: RoleError, Content: askErrorText(err), Timestamp: s.now()}
	} else {
		s.usage = reply
		msg = Message{Role: RoleAssistant, Content: reply.Answer, Timestamp: s.now()}
	}
	s.history = append(s.history, msg)
	if err != nil {
		return msg, fmt.Errorf("ask: %w", err)
	}
	return msg, nil
}

// Reset clears the server-side conversation. On success the transcript is
// replaced by a single info message; on failure it is kept and an error
// message is appended.
func (s *Session) Reset(ctx context.Context) (Message, error) {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.pending = true
	scope := s.scope
	s.mu.Unlock()

	text, err := s.backend.ResetChat(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if scope != s.scope {
		return Message{}, ErrDiscarded
	}
	s.pending = false
	if err != nil {
		s.logger.Warn("chat reset failed", "err", err)
		msg := Message{Role: RoleError, Content: fmt.Sprintf("Could not reset the conversation: %v", err), Timestamp: s.now()}
		s.history = append(s.history, msg)
		return msg, fmt.Errorf("reset chat: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		text = defaultResetMessage
	}
	msg := Message{Role: RoleInfo, Content: text, Timestamp: s.now()}
	s.history = []Message{msg}
	return msg, nil
}

// History returns a copy of the transcript.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// Pending reports whether a request is outstanding.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Verse returns the bound passage.
func (s *Session) Verse() (api.DailyVerse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verse == nil {
		return api.DailyVerse{}, false
	}
	return *s.verse, true
}

// Usage returns the daily quota reported with the latest answer. Both values
// are zero when the backend does not report a quota.
func (s *Session) Usage() (used, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage.UsageToday, s.usage.DailyLimit
}

func askErrorText(err error) string {
	switch {
	case api.IsKind(err, api.KindRateLimited):
		return "You have reached today's question limit. Try again tomorrow."
	case failure.Classify(err) == failure.Auth:
		return "Your session has ended. Sign in again to keep asking."
	default:
		return fmt.Sprintf("Sorry, something went wrong: %v", err)
	}
}
