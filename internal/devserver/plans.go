package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/csheth/versescout/internal/api"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context()).ID
	s.mu.Lock()
	state := s.user(id)
	plans := make([]api.Plan, 0, len(state.plans))
	plans = append(plans, state.plans...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.KindInvalid, "Invalid request body")
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" || req.DurationDays <= 0 {
		writeError(w, http.StatusBadRequest, api.KindInvalid, "Topic and positive duration_days are required")
		return
	}

	id := identityFrom(r.Context()).ID
	plan := api.Plan{
		ID:           uuid.NewString(),
		Topic:        req.Topic,
		DurationDays: req.DurationDays,
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
	}
	s.mu.Lock()
	state := s.user(id)
	for i := range state.plans {
		state.plans[i].IsActive = false
	}
	state.plans = append(state.plans, plan)
	s.mu.Unlock()

	s.logger.Info("plan created", "user", id, "plan", plan.ID, "topic", plan.Topic)
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleActivatePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	id := identityFrom(r.Context()).ID

	s.mu.Lock()
	state := s.user(id)
	found := false
	for i := range state.plans {
		if state.plans[i].ID == planID {
			found = true
		}
	}
	if found {
		for i := range state.plans {
			state.plans[i].IsActive = state.plans[i].ID == planID
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, api.KindNotFound, "Plan not found")
		return
	}
	writeJSON(w, http.StatusOK, api.MessageReply{Message: "Plan activated"})
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "id")
	id := identityFrom(r.Context()).ID

	s.mu.Lock()
	state := s.user(id)
	idx := -1
	for i := range state.plans {
		if state.plans[i].ID == planID {
			idx = i
			break
		}
	}
	var active bool
	if idx >= 0 {
		active = state.plans[idx].IsActive
		if !active {
			state.plans = append(state.plans[:idx], state.plans[idx+1:]...)
		}
	}
	s.mu.Unlock()

	switch {
	case idx < 0:
		writeError(w, http.StatusNotFound, api.KindNotFound, "Plan not found")
	case active:
		writeError(w, http.StatusConflict, api.KindConflict, "Cannot delete the active plan")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context()).ID
	s.mu.Lock()
	var active *api.Plan
	for _, plan := range s.user(id).plans {
		if plan.IsActive {
			plan := plan
			active = &plan
			break
		}
	}
	s.mu.Unlock()

	if active == nil {
		writeError(w, http.StatusNotFound, api.KindNoActivePlan, "No active reading plan found for today.")
		return
	}
	day := dayOfPlan(*active, s.now())
	if day > active.DurationDays {
		writeError(w, http.StatusNotFound, api.KindPlanFinished, "Your reading plan is finished!")
		return
	}
	writeJSON(w, http.StatusOK, passageFor(*active, day))
}

func dayOfPlan(plan api.Plan, now time.Time) int {
	elapsed := now.Sub(plan.CreatedAt)
	if elapsed < 0 {
		return 1
	}
	return int(elapsed/(24*time.Hour)) + 1
}

var passageSentences = []string{
	"Consider how the theme of %s appears in the lives of ordinary people.",
	"The passage for today returns to this idea from a slightly different angle.",
	"Read it slowly, and notice which phrase stays with you after you finish.",
	"Earlier readers often paused here to ask what the text asks of them.",
	"There is no rush; a single line understood is worth more than a chapter skimmed.",
	"Look for the verbs, since they usually carry the weight of the instruction.",
	"Where the passage is difficult, write the question down and return to it tomorrow.",
	"Notice who is speaking and to whom, because the audience shapes the meaning.",
	"Compare this reading with yesterday's and see what has changed.",
	"End by restating the main thought of %s in your own words.",
}

// passageFor produces a deterministic placeholder passage for a plan day.
func passageFor(plan api.Plan, day int) api.DailyVerse {
	var b strings.Builder
	n := len(passageSentences)
	for i := 0; i < n+day%3; i++ {
		sentence := passageSentences[(i+day)%n]
		if strings.Contains(sentence, "%s") {
			sentence = fmt.Sprintf(sentence, plan.Topic)
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentence)
	}
	return api.DailyVerse{
		Day:       day,
		Reference: fmt.Sprintf("%s %d:1-%d", planBook(plan), day, 8+day%5),
		Text:      b.String(),
		Title:     fmt.Sprintf("%s: day %d of %d", plan.Topic, day, plan.DurationDays),
		Explanation: fmt.Sprintf("**Focus for today:** how *%s* shapes daily choices.\n\n"+
			"- Read the passage once for the overall sense.\n"+
			"- Read it again and note one phrase to remember.\n", plan.Topic),
	}
}

var books = []string{"Psalms", "Proverbs", "Isaiah", "Matthew", "John", "Romans", "James"}

func planBook(plan api.Plan) string {
	sum := 0
	for _, r := range plan.Topic {
		sum += int(r)
	}
	return books[sum%len(books)]
}
