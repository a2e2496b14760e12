package tui

import (
	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/chat"
	"github.com/csheth/versescout/internal/session"
	"github.com/csheth/versescout/internal/verse"
)

type screen int

const (
	screenGate screen = iota
	screenReader
	screenAdmin
)

const heroTagline = "One passage a day, one question at a time."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	transcriptPreviewLimit    = 240
)

type composerMode int

const (
	composerModeIdle composerMode = iota
	composerModeQuestion
	composerModeHighlight
)

const (
	composerQuestionPlaceholder  = "Ask about today's passage…"
	composerHighlightPlaceholder = "Type a phrase from this page to highlight…"
	topicPlaceholder             = "Topic, e.g. patience"
	daysPlaceholder              = "Days"
)

type planFormField int

const (
	planFieldTopic planFormField = iota
	planFieldDays
)

// Job payloads. Each carries enough to recognise a stale result.

type sessionCheckedMsg struct {
	Seq   int
	State session.State
}

type logoutDoneMsg struct{}

type verseResolvedMsg struct {
	Resolution verse.Resolution
}

type chatAnsweredMsg struct {
	Message chat.Message
}

type chatResetMsg struct {
	Message chat.Message
}

type plansLoadedMsg struct {
	Plans []api.Plan
}

type planAction string

const (
	planActionCreate   planAction = "create"
	planActionActivate planAction = "activate"
	planActionDelete   planAction = "delete"
)

type planMutatedMsg struct {
	Action planAction
	PlanID string
	Topic  string
}
