package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/versescout/internal/session"
	"github.com/csheth/versescout/internal/verse"
)

func (m *model) View() string {
	switch m.screen {
	case screenAdmin:
		return m.viewAdmin()
	case screenReader:
		return m.viewReader()
	default:
		return m.viewGate()
	}
}

func (m *model) viewGate() string {
	st := m.styles
	var b strings.Builder
	state := m.config.Session.State()
	if state.Status == session.StatusLoading || m.running[jobKindSession] > 0 {
		b.WriteString(st.helper.Render(m.spinner.View() + " Checking your session…"))
		return joinNonEmpty([]string{m.heroView(), b.String()})
	}

	b.WriteString(st.sectionHeader.Render("Sign in to continue"))
	b.WriteRune('\n')
	b.WriteString(st.helper.Render("Your reading plan and conversation are tied to your account."))
	if m.config.LoginURL != "" {
		b.WriteRune('\n')
		b.WriteString(st.helper.Render("Sign-in page: " + m.config.LoginURL))
	}
	parts := []string{m.heroView(), b.String()}
	if msg := firstNonEmpty(m.errorMessage, state.LastError); msg != "" {
		parts = append(parts, st.errorText.Render(wordwrap.String(msg, m.wrapWidth(0))))
	}
	if m.status != "" {
		parts = append(parts, st.helper.Render(m.status))
	}
	parts = append(parts, m.hintLine([]keyHint{{"l", "Sign in"}, {"r", "Retry"}, {"t", "Theme"}, {"q", "Quit"}}))
	return joinNonEmpty(parts)
}

func (m *model) viewReader() string {
	st := m.styles
	m.passage.SetContent(m.buildPassageContent())
	m.syncTranscript()

	parts := []string{m.heroView(), m.passage.View()}
	if line := m.pageStatusLine(); line != "" {
		parts = append(parts, st.helper.Render(line))
	}
	if m.errorMessage != "" {
		parts = append(parts, st.errorText.Render(m.errorMessage))
	}
	if m.status != "" {
		parts = append(parts, st.helper.Render(m.status))
	}
	parts = append(parts, joinLines(st.sectionHeader.Render("Conversation"), m.transcript.View()))
	if m.composerMode != composerModeIdle {
		parts = append(parts, m.composerPanel())
	}
	parts = append(parts, m.sessionMeterView())
	if m.helpVisible {
		parts = append(parts, m.keyLegendView(), m.helpView())
	} else {
		parts = append(parts, m.hintLine([]keyHint{{"←/→", "Page"}, {"i", "Ask"}, {"b", "Bookmark"}, {"a", "Plans"}, {"?", "Help"}}))
	}
	return joinNonEmpty(parts)
}

func (m *model) pageStatusLine() string {
	if _, ok := m.currentVerse(); !ok {
		return ""
	}
	line := fmt.Sprintf("Page %d / %d", m.pager.Index()+1, m.pager.Len())
	if m.pager.Len() > 1 {
		line += "  •  ←/→ to turn"
	}
	if n := len(m.highlights); n > 0 {
		line += fmt.Sprintf("  •  %d highlight(s)", n)
	}
	return line
}

func (m *model) viewAdmin() string {
	st := m.styles
	var b strings.Builder
	b.WriteString(st.sectionHeader.Render("Reading plans"))
	b.WriteRune('\n')

	list := m.config.Plans.Plans()
	pending := m.config.Plans.PendingDelete()
	switch {
	case !m.config.Plans.Loaded() && m.running[jobKindPlans] > 0:
		b.WriteString(st.helper.Render(m.spinner.View() + " Loading plans…"))
	case len(list) == 0:
		b.WriteString(st.helper.Render("No plans yet. Press n to create one."))
	default:
		for idx, plan := range list {
			marker := "  "
			if plan.IsActive {
				marker = st.activeMarker.Render("● ")
			}
			line := fmt.Sprintf("%s  %d days  created %s", previewText(plan.Topic, 48), plan.DurationDays, plan.CreatedAt.Local().Format("2006-01-02"))
			if plan.ID == pending {
				line += "  (press d again to delete)"
			}
			if idx == m.planCursor {
				line = st.currentLine.Render("▸ " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(marker + line)
			b.WriteRune('\n')
		}
	}

	parts := []string{m.heroView(), strings.TrimRight(b.String(), "\n")}
	if m.formOpen {
		parts = append(parts, m.planFormView())
	}
	if m.config.Plans.Busy() {
		parts = append(parts, st.helper.Render(m.spinner.View()+" Saving…"))
	}
	if m.errorMessage != "" {
		parts = append(parts, st.errorText.Render(m.errorMessage))
	}
	if m.status != "" {
		parts = append(parts, st.helper.Render(m.status))
	}
	parts = append(parts, m.sessionMeterView())
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	} else {
		parts = append(parts, m.hintLine([]keyHint{{"n", "New"}, {"enter", "Activate"}, {"d", "Delete"}, {"v", "Reader"}, {"?", "Help"}}))
	}
	return joinNonEmpty(parts)
}

func (m *model) planFormView() string {
	st := m.styles
	return joinLines(
		st.sectionHeader.Render("New plan"),
		"Topic "+m.topicInput.View(),
		"Days  "+m.daysInput.View(),
		st.helper.Render("Tab: switch field • Enter: create and activate • Esc: cancel"),
	)
}

func (m *model) composerPanel() string {
	st := m.styles
	title, help := "Ask", "Enter: send • Esc: close"
	if m.composerMode == composerModeHighlight {
		title, help = "Highlight", "Enter: highlight phrase • Esc: cancel"
	}
	return joinLines(st.sectionHeader.Render(title), m.composer.View(), st.helper.Render(help))
}

func (m *model) heroView() string {
	st := m.styles
	v, ok := m.currentVerse()
	if !ok || m.screen != screenReader {
		return lipgloss.JoinVertical(lipgloss.Left,
			st.heroTitle.Render("versescout"),
			st.tagline.Render(heroTagline),
		)
	}
	title := st.reference.Render(v.Reference)
	if m.bookmarked {
		title += " " + st.activeMarker.Render("★")
	}
	meta := []string{title}
	if v.Title != "" {
		meta = append(meta, st.heroTitle.Render(wordwrap.String(v.Title, m.wrapWidth(8))))
	}
	if v.Day > 0 {
		meta = append(meta, st.helper.Render(fmt.Sprintf("Day %d", v.Day)))
	}
	return st.heroBox.Render(strings.Join(meta, "\n"))
}

func (m *model) sessionMeterView() string {
	stats := []string{}
	if id := m.config.Session.State().Identity; id != nil {
		stats = append(stats, id.DisplayName())
	}
	if used, limit := m.config.Chat.Usage(); limit > 0 {
		stats = append(stats, fmt.Sprintf("Questions %d/%d", used, limit))
	}
	if m.resolution != nil && m.resolution.Outcome != verse.OutcomeVerse {
		stats = append(stats, m.resolution.Outcome.String())
	}
	stats = append(stats, "Theme "+string(m.theme))
	stats = append(stats, m.jobStatusBadges()...)
	return m.styles.statusBar.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	order := []jobKind{jobKindSession, jobKindVerse, jobKindAsk, jobKindReset, jobKindPlans, jobKindPlanOp, jobKindLogout}
	var badges []string
	for _, kind := range order {
		if m.running[kind] > 0 {
			badges = append(badges, fmt.Sprintf("%s %s…", m.spinner.View(), kind))
		}
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) hintLine(hints []keyHint) string {
	cells := make([]string, 0, len(hints))
	for _, hint := range hints {
		cells = append(cells, m.styles.key.Render(hint.Key)+m.styles.keyDesc.Render(" "+hint.Description))
	}
	return strings.Join(cells, "  ")
}

func (m *model) keyLegendView() string {
	var hints []keyHint
	switch m.screen {
	case screenAdmin:
		hints = []keyHint{
			{"↑/↓", "Select plan"},
			{"enter", "Activate"},
			{"n", "New plan"},
			{"d", "Delete (twice)"},
			{"esc", "Cancel / back"},
			{"r", "Refresh"},
			{"v", "Reader"},
			{"t", "Theme"},
			{"L", "Sign out"},
		}
	default:
		hints = []keyHint{
			{"←/→", "Turn page"},
			{"i", "Ask a question"},
			{"R", "Reset chat"},
			{"b", "Bookmark"},
			{"m", "Highlight"},
			{"x", "Undo highlight"},
			{"r", "Reload passage"},
			{"a", "Plans"},
			{"t", "Theme"},
			{"↑/↓", "Scroll chat"},
			{"L", "Sign out"},
			{"q", "Quit"},
		}
	}
	rows := []string{m.styles.sectionHeader.Render("Keys")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := m.styles.key.Render(hint.Key)
			desc := m.styles.keyDesc.Width(18).Render(" " + hint.Description)
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return m.styles.legendBox.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	st := m.styles
	lines := []string{
		st.sectionHeader.Render("Reading"),
		st.helper.Render("• long passages are split into pages at sentence ends; narrow terminals get shorter pages."),
		st.helper.Render("• the reflection appears under the last page."),
		st.helper.Render("• questions are answered one at a time and count against a daily limit."),
		st.helper.Render("• press m and type a phrase from the page to highlight it; colours rotate."),
	}
	return st.helpBox.Render(strings.Join(lines, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
