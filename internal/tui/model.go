package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/chat"
	"github.com/csheth/versescout/internal/failure"
	"github.com/csheth/versescout/internal/paginate"
	"github.com/csheth/versescout/internal/plans"
	"github.com/csheth/versescout/internal/prefs"
	"github.com/csheth/versescout/internal/render"
	"github.com/csheth/versescout/internal/session"
	"github.com/csheth/versescout/internal/verse"
)

// Config wires the application stores into the terminal UI. Library may be
// nil, in which case bookmarks, highlights and the saved theme are disabled.
type Config struct {
	Session *session.Store
	Plans   *plans.Registry
	Verses  *verse.Resolver
	Chat    *chat.Session
	Library *prefs.Library

	LoginURL       string
	Breakpoint     int
	Theme          prefs.Theme
	StartAdmin     bool
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type model struct {
	config  Config
	logger  *slog.Logger
	jobs    *jobBus
	running map[jobKind]int

	screen      screen
	layout      pageLayout
	helpVisible bool

	spinner      spinner.Model
	passage      viewport.Model
	transcript   viewport.Model
	composer     textinput.Model
	composerMode composerMode

	formOpen   bool
	formField  planFormField
	topicInput textinput.Model
	daysInput  textinput.Model
	planCursor int

	checkSeq   int
	pager      *paginate.Pager
	resolution *verse.Resolution
	bookmarked bool
	highlights []prefs.Highlight
	colorIndex int

	transcriptLen int

	theme    prefs.Theme
	styles   styles
	markdown *render.Renderer

	status       string
	errorMessage string
}

// New returns the root bubbletea model.
func New(cfg Config) tea.Model {
	return newModel(cfg)
}

func newModel(cfg Config) *model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tui")

	theme := cfg.Theme
	if theme == "" {
		theme = prefs.ThemeDark
	}
	if cfg.Library != nil {
		saved, err := cfg.Library.Theme(theme)
		if err != nil {
			logger.Warn("read saved theme", "err", err)
		}
		theme = saved
	}

	composer := textinput.New()
	composer.Prompt = "› "
	composer.CharLimit = 500

	topic := textinput.New()
	topic.Placeholder = topicPlaceholder
	topic.CharLimit = 120
	days := textinput.New()
	days.Placeholder = daysPlaceholder
	days.CharLimit = 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	layout := newPageLayout()
	budget := paginate.BudgetForWidth(layout.viewportWidth+viewportHorizontalPadding, cfg.Breakpoint)
	m := &model{
		config:     cfg,
		logger:     logger,
		jobs:       newJobBus(cfg.RequestTimeout, logger),
		running:    map[jobKind]int{},
		screen:     screenGate,
		layout:     layout,
		spinner:    sp,
		passage:    viewport.New(layout.viewportWidth, layout.passageHeight),
		transcript: viewport.New(layout.viewportWidth, layout.transcriptHeight),
		composer:   composer,
		topicInput: topic,
		daysInput:  days,
		pager:      paginate.NewPager("", budget),
	}
	m.applyTheme(theme)
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.checkSessionCmd(), textinput.Blink)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		if m.busy() == 0 {
			return m, nil
		}
		if m.running[jobKindAsk] > 0 {
			m.syncTranscript()
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case jobSignalMsg:
		idle := m.busy() == 0
		m.running[msg.Snapshot.Kind]++
		if idle {
			return m, m.spinner.Tick
		}
		return m, nil
	case jobResultEnvelope:
		if m.running[msg.Snapshot.Kind] > 0 {
			m.running[msg.Snapshot.Kind]--
		}
		if msg.Snapshot.Err != nil {
			return m, m.handleJobError(msg.Snapshot, msg.Payload)
		}
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case sessionCheckedMsg:
		return m, m.handleSessionChecked(msg)
	case logoutDoneMsg:
		m.signOut()
		m.status = "Signed out."
		return m, nil
	case verseResolvedMsg:
		return m, m.handleResolution(msg.Resolution)
	case chatAnsweredMsg, chatResetMsg:
		if reset, ok := msg.(chatResetMsg); ok {
			m.status = reset.Message.Content
		}
		m.syncTranscript()
		return m, nil
	case plansLoadedMsg:
		m.clampPlanCursor(len(msg.Plans))
		return m, nil
	case planMutatedMsg:
		return m, m.handlePlanMutated(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) busy() int {
	total := 0
	for _, n := range m.running {
		total += n
	}
	return total
}

// resize recomputes the layout. A width change that crosses the breakpoint
// changes the page budget, which sends the reader back to the first page.
func (m *model) resize(width, height int) {
	m.layout.Update(width, height)
	m.passage.Width = m.layout.viewportWidth
	m.passage.Height = m.layout.passageHeight
	m.transcript.Width = m.layout.viewportWidth
	m.transcript.Height = m.layout.transcriptHeight
	m.composer.Width = m.layout.viewportWidth - 4
	if m.pager.SetBudget(paginate.BudgetForWidth(width, m.config.Breakpoint)) {
		m.passage.GotoTop()
	}
}

func (m *model) applyTheme(theme prefs.Theme) {
	m.theme = theme
	m.styles = stylesFor(theme)
	m.markdown = m.styles.markdown()
}

func (m *model) handleJobError(snap jobSnapshot, payload tea.Msg) tea.Cmd {
	err := snap.Err
	switch {
	case errors.Is(err, verse.ErrSuperseded), errors.Is(err, chat.ErrDiscarded):
		m.logger.Debug("dropping stale result", "job", snap.ID)
		return nil
	case session.IsUnauthenticated(err):
		return m.expire(err)
	}

	switch snap.Kind {
	case jobKindAsk, jobKindReset:
		if failure.Classify(err) == failure.Validation {
			m.errorMessage = capitalize(failureText(err))
		}
		m.syncTranscript()
	case jobKindPlanOp:
		if failure.Classify(err) == failure.ConfirmationRequired {
			if p, ok := payload.(planMutatedMsg); ok {
				m.status = fmt.Sprintf("Press d again to delete %q, Esc to cancel.", previewText(p.Topic, 40))
			}
			return nil
		}
		m.errorMessage = "Plan change failed: " + failureText(err)
	case jobKindPlans:
		m.errorMessage = fmt.Sprintf("Could not load plans: %s. Press r to retry.", failureText(err))
	case jobKindSession, jobKindLogout:
		if last := m.config.Session.State().LastError; last != "" {
			m.errorMessage = last
		} else {
			m.errorMessage = failureText(err)
		}
	default:
		m.errorMessage = failureText(err)
	}
	return nil
}

func failureText(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	var ae *api.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return previewText(err.Error(), transcriptPreviewLimit)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *model) handleSessionChecked(msg sessionCheckedMsg) tea.Cmd {
	if msg.Seq != m.checkSeq {
		return nil
	}
	if msg.State.Status != session.StatusAuthenticated {
		m.screen = screenGate
		return nil
	}
	m.errorMessage = ""
	m.screen = screenReader
	cmds := []tea.Cmd{m.resolveCmd()}
	if m.config.StartAdmin {
		m.screen = screenAdmin
		cmds = append(cmds, m.refreshPlansCmd())
	}
	return tea.Batch(cmds...)
}

// expire reacts to the backend rejecting our credentials anywhere in the app.
func (m *model) expire(err error) tea.Cmd {
	m.logger.Info("session rejected by backend", "err", err)
	m.config.Session.Expire(err)
	m.signOut()
	return nil
}

func (m *model) signOut() {
	m.screen = screenGate
	m.config.Chat.Close()
	m.config.Verses.Invalidate()
	m.resolution = nil
	m.pager.SetText("")
	m.highlights = nil
	m.bookmarked = false
	m.closeComposer()
	m.closeForm()
	m.status = ""
}

func (m *model) handleResolution(res verse.Resolution) tea.Cmd {
	switch res.Outcome {
	case verse.OutcomeAuthRequired:
		return m.expire(res.Err)
	case verse.OutcomeVerse:
		// Each resolution opens a fresh conversation, even for the same passage.
		m.config.Chat.Bind(res.Verse)
		m.transcriptLen = 0
		m.pager.SetText(res.Verse.Text)
		m.loadPassagePrefs(res.Verse.Reference)
	case verse.OutcomeNoEligiblePlan:
		m.config.Chat.Close()
		m.pager.SetText("")
		m.highlights = nil
		m.bookmarked = false
	}
	m.resolution = &res
	m.passage.GotoTop()
	return nil
}

func (m *model) loadPassagePrefs(reference string) {
	m.highlights = nil
	m.bookmarked = false
	if m.config.Library == nil {
		return
	}
	marks, err := m.config.Library.Highlights(reference)
	if err != nil {
		m.logger.Warn("load highlights", "reference", reference, "err", err)
	}
	m.highlights = marks
	saved, err := m.config.Library.IsBookmarked(reference)
	if err != nil {
		m.logger.Warn("load bookmark", "reference", reference, "err", err)
	}
	m.bookmarked = saved
}

func (m *model) handlePlanMutated(msg planMutatedMsg) tea.Cmd {
	m.errorMessage = ""
	switch msg.Action {
	case planActionCreate:
		m.closeForm()
		m.planCursor = 0
		m.status = fmt.Sprintf("Created and activated %q.", previewText(msg.Topic, 40))
		return m.resolveCmd()
	case planActionActivate:
		m.status = fmt.Sprintf("Activated %q.", previewText(msg.Topic, 40))
		return m.resolveCmd()
	case planActionDelete:
		m.status = fmt.Sprintf("Deleted %q.", previewText(msg.Topic, 40))
		m.clampPlanCursor(len(m.config.Plans.Plans()))
	}
	return nil
}

func (m *model) clampPlanCursor(n int) {
	if m.planCursor >= n {
		m.planCursor = n - 1
	}
	if m.planCursor < 0 {
		m.planCursor = 0
	}
}

func (m *model) currentVerse() (api.DailyVerse, bool) {
	if m.resolution == nil || m.resolution.Outcome != verse.OutcomeVerse {
		return api.DailyVerse{}, false
	}
	return m.resolution.Verse, true
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.composerMode != composerModeIdle {
		return m.processComposerKey(msg)
	}
	if m.formOpen {
		return m.processFormKey(msg)
	}

	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "t":
		m.toggleTheme()
		return m, nil
	}

	switch m.screen {
	case screenGate:
		return m.processGateKey(key)
	case screenAdmin:
		return m.processAdminKey(msg)
	default:
		return m.processReaderKey(msg)
	}
}

func (m *model) processGateKey(key string) (tea.Model, tea.Cmd) {
	if m.running[jobKindSession] > 0 {
		return m, nil
	}
	switch key {
	case "l", "enter":
		m.errorMessage = ""
		m.config.Session.ClearError()
		return m, m.loginCmd()
	case "r":
		m.errorMessage = ""
		return m, m.checkSessionCmd()
	}
	return m, nil
}

func (m *model) processReaderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errorMessage = ""
	switch msg.String() {
	case "left", "h", "p":
		if m.pager.Prev() {
			m.passage.GotoTop()
		}
		return m, nil
	case "right", "l", "n", " ":
		if m.pager.Next() {
			m.passage.GotoTop()
		}
		return m, nil
	case "r":
		return m, m.resolveCmd()
	case "i", "enter":
		if _, ok := m.currentVerse(); !ok {
			m.errorMessage = "There is no passage to ask about yet."
			return m, nil
		}
		return m, m.openComposer(composerModeQuestion)
	case "m":
		if _, ok := m.currentVerse(); !ok {
			return m, nil
		}
		return m, m.openComposer(composerModeHighlight)
	case "x":
		m.removeLastHighlight()
		return m, nil
	case "b":
		m.toggleBookmark()
		return m, nil
	case "R":
		if m.config.Chat.Pending() {
			m.errorMessage = "Wait for the current answer before resetting."
			return m, nil
		}
		return m, m.resetChatCmd()
	case "a":
		m.screen = screenAdmin
		m.status = ""
		return m, m.refreshPlansCmd()
	case "L":
		return m, m.logoutCmd()
	case "up", "k", "down", "j", "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) processAdminKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.config.Plans.Plans()
	m.clampPlanCursor(len(list))
	selected, hasSelection := api.Plan{}, len(list) > 0
	if hasSelection {
		selected = list[m.planCursor]
	}
	m.errorMessage = ""

	switch msg.String() {
	case "up", "k":
		if m.planCursor > 0 {
			m.planCursor--
		}
	case "down", "j":
		if m.planCursor < len(list)-1 {
			m.planCursor++
		}
	case "enter":
		if !hasSelection {
			return m, nil
		}
		if selected.IsActive {
			m.status = fmt.Sprintf("%q is already active.", previewText(selected.Topic, 40))
			return m, nil
		}
		return m, m.activatePlanCmd(selected.ID, selected.Topic)
	case "d":
		if !hasSelection {
			return m, nil
		}
		return m, m.deletePlanCmd(selected.ID, selected.Topic)
	case "esc":
		if m.config.Plans.PendingDelete() != "" {
			m.config.Plans.CancelDelete()
			m.status = "Delete cancelled."
			return m, nil
		}
		return m.backToReader()
	case "n":
		return m, m.openForm()
	case "r":
		return m, m.refreshPlansCmd()
	case "v", "tab":
		return m.backToReader()
	case "L":
		return m, m.logoutCmd()
	}
	return m, nil
}

func (m *model) backToReader() (tea.Model, tea.Cmd) {
	m.config.Plans.CancelDelete()
	m.screen = screenReader
	m.status = ""
	return m, m.resolveCmd()
}

func (m *model) openComposer(mode composerMode) tea.Cmd {
	m.composerMode = mode
	m.composer.SetValue("")
	switch mode {
	case composerModeHighlight:
		m.composer.Placeholder = composerHighlightPlaceholder
	default:
		m.composer.Placeholder = composerQuestionPlaceholder
	}
	return m.composer.Focus()
}

func (m *model) closeComposer() {
	m.composerMode = composerModeIdle
	m.composer.SetValue("")
	m.composer.Blur()
}

func (m *model) processComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeComposer()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.composer.Value())
		if m.composerMode == composerModeHighlight {
			m.closeComposer()
			m.addHighlight(value)
			return m, nil
		}
		return m, m.submitQuestion(value)
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *model) submitQuestion(question string) tea.Cmd {
	m.errorMessage = ""
	if question == "" {
		m.errorMessage = "Type a question first."
		return nil
	}
	if m.config.Chat.Pending() {
		m.errorMessage = "Wait for the current answer before asking again."
		return nil
	}
	m.composer.SetValue("")
	return m.askCmd(question)
}

func (m *model) openForm() tea.Cmd {
	m.formOpen = true
	m.formField = planFieldTopic
	m.topicInput.SetValue("")
	m.daysInput.SetValue("")
	m.daysInput.Blur()
	return m.topicInput.Focus()
}

func (m *model) closeForm() {
	m.formOpen = false
	m.topicInput.Blur()
	m.daysInput.Blur()
}

func (m *model) processFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeForm()
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		if m.formField == planFieldTopic {
			m.formField = planFieldDays
			m.topicInput.Blur()
			return m, m.daysInput.Focus()
		}
		m.formField = planFieldTopic
		m.daysInput.Blur()
		return m, m.topicInput.Focus()
	case tea.KeyEnter:
		m.errorMessage = ""
		days, err := strconv.Atoi(strings.TrimSpace(m.daysInput.Value()))
		if err != nil {
			days = 0
		}
		return m, m.createPlanCmd(m.topicInput.Value(), days)
	}
	var cmd tea.Cmd
	if m.formField == planFieldDays {
		m.daysInput, cmd = m.daysInput.Update(msg)
	} else {
		m.topicInput, cmd = m.topicInput.Update(msg)
	}
	return m, cmd
}

func (m *model) toggleBookmark() {
	v, ok := m.currentVerse()
	if !ok {
		return
	}
	if m.config.Library == nil {
		m.errorMessage = "Bookmarks need a preferences store."
		return
	}
	added, err := m.config.Library.ToggleBookmark(v.Reference, v.Text)
	if err != nil {
		m.logger.Warn("toggle bookmark", "reference", v.Reference, "err", err)
		m.errorMessage = "Could not update bookmarks."
		return
	}
	m.bookmarked = added
	if added {
		m.status = "Bookmarked " + v.Reference + "."
	} else {
		m.status = "Removed bookmark for " + v.Reference + "."
	}
}

func (m *model) addHighlight(text string) {
	v, ok := m.currentVerse()
	if !ok || text == "" {
		return
	}
	if m.config.Library == nil {
		m.errorMessage = "Highlights need a preferences store."
		return
	}
	if len(findMatches(m.pager.Page(), text)) == 0 {
		m.errorMessage = "That phrase is not on this page."
		return
	}
	color := prefs.Colors[m.colorIndex%len(prefs.Colors)]
	m.colorIndex++
	if _, err := m.config.Library.AddHighlight(v.Reference, text, color); err != nil {
		m.logger.Warn("add highlight", "reference", v.Reference, "err", err)
		m.errorMessage = "Could not save the highlight."
		return
	}
	m.loadPassagePrefs(v.Reference)
	m.status = fmt.Sprintf("Highlighted in %s.", color)
}

func (m *model) removeLastHighlight() {
	v, ok := m.currentVerse()
	if !ok || m.config.Library == nil || len(m.highlights) == 0 {
		return
	}
	if err := m.config.Library.RemoveHighlight(v.Reference, len(m.highlights)-1); err != nil {
		m.logger.Warn("remove highlight", "reference", v.Reference, "err", err)
		m.errorMessage = "Could not remove the highlight."
		return
	}
	m.loadPassagePrefs(v.Reference)
	m.status = "Removed the latest highlight."
}

func (m *model) toggleTheme() {
	next := prefs.ThemeLight
	if m.theme == prefs.ThemeLight {
		next = prefs.ThemeDark
	}
	if m.config.Library != nil {
		saved, err := m.config.Library.ToggleTheme(m.theme)
		if err != nil {
			m.logger.Warn("save theme", "err", err)
		} else {
			next = saved
		}
	}
	m.applyTheme(next)
}

func (m *model) syncTranscript() {
	history := m.config.Chat.History()
	pending := m.config.Chat.Pending()
	m.transcript.SetContent(m.buildTranscriptContent(history, pending))
	if len(history) != m.transcriptLen {
		m.transcriptLen = len(history)
		m.transcript.GotoBottom()
	}
}
