package devserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/llm"
)

type chatTurn struct {
	Question string
	Answer   string
	At       time.Time
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.KindInvalid, "Invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, api.KindInvalid, "Question cannot be empty")
		return
	}

	id := identityFrom(r.Context()).ID
	day := s.now().UTC().Format(time.DateOnly)

	s.mu.Lock()
	state := s.user(id)
	used := state.usage[day]
	if used >= s.cfg.DailyChatLimit {
		s.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, api.KindRateLimited, "Daily chat limit reached. Try again tomorrow!")
		return
	}
	used++
	state.usage[day] = used
	history := append([]chatTurn(nil), state.history...)
	s.mu.Unlock()

	answer, err := s.answer(r.Context(), req.Verse, question, history)
	if err != nil {
		s.mu.Lock()
		state.usage[day]--
		s.mu.Unlock()
		s.logger.Warn("answer generation failed", "err", err)
		writeError(w, http.StatusBadGateway, api.KindUnavailable, "Could not generate an answer right now")
		return
	}

	s.mu.Lock()
	state.history = append(state.history, chatTurn{Question: question, Answer: answer, At: s.now()})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, api.ChatReply{
		Answer:     answer,
		UsageToday: used,
		DailyLimit: s.cfg.DailyChatLimit,
	})
}

// answer uses the configured model when there is one and a canned reply
// otherwise.
func (s *Server) answer(ctx context.Context, verse api.DailyVerse, question string, history []chatTurn) (string, error) {
	if s.cfg.Answerer == nil {
		return composeAnswer(verse, question, len(history)), nil
	}
	turns := make([]llm.Turn, len(history))
	for i, h := range history {
		turns[i] = llm.Turn{Question: h.Question, Answer: h.Answer}
	}
	passage := llm.Passage{Reference: verse.Reference, Title: verse.Title, Text: verse.Text}
	return s.cfg.Answerer.Answer(ctx, passage, question, turns)
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context()).ID
	s.mu.Lock()
	s.user(id).history = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.MessageReply{Message: "Chat history reset successfully"})
}

func composeAnswer(verse api.DailyVerse, question string, priorTurns int) string {
	reference := verse.Reference
	if reference == "" {
		reference = "today's passage"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You asked about **%s**: _%s_\n\n", reference, question)
	if excerpt := firstSentence(verse.Text); excerpt != "" {
		fmt.Fprintf(&b, "> %s\n\n", excerpt)
	}
	b.WriteString("- Start from what the passage says plainly before reading into it.\n")
	b.WriteString("- Connect it to the plan's theme and to yesterday's reading.\n")
	if priorTurns > 0 {
		fmt.Fprintf(&b, "\nThis builds on %d earlier question(s) in this conversation.", priorTurns)
	}
	return b.String()
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, ". "); idx >= 0 {
		return text[:idx+1]
	}
	return text
}
