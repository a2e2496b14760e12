package api

import "time"

// Identity describes the signed-in user as reported by the backend.
type Identity struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// DisplayName prefers the user's name and falls back to the email address.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Plan is a reading plan over a topic.
type Plan struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
}

// DailyVerse is the passage scheduled for today under the active plan.
type DailyVerse struct {
	Day         int    `json:"day,omitempty"`
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Title       string `json:"title,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// CreatePlanRequest is the body of POST /plans.
type CreatePlanRequest struct {
	Topic        string `json:"topic"`
	DurationDays int    `json:"duration_days"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Verse    DailyVerse `json:"verse"`
	Question string     `json:"question"`
}

// ChatReply is the answer to a chat question.
type ChatReply struct {
	Answer     string `json:"answer"`
	UsageToday int    `json:"usage_today,omitempty"`
	DailyLimit int    `json:"daily_limit,omitempty"`
}

// MessageReply is the generic acknowledgement body.
type MessageReply struct {
	Message string `json:"message"`
}

// LoginReply is returned by the development identity provider.
type LoginReply struct {
	Token   string   `json:"token"`
	Expires int64    `json:"expires"`
	User    Identity `json:"user"`
}
