package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/versescout/internal/chat"
	"github.com/csheth/versescout/internal/prefs"
	"github.com/csheth/versescout/internal/verse"
)

type pageLayout struct {
	windowWidth      int
	windowHeight     int
	viewportWidth    int
	passageHeight    int
	transcriptHeight int
	composerHeight   int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:    80,
		passageHeight:    12,
		transcriptHeight: 8,
		composerHeight:   1,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	l.composerHeight = 1
	const chrome = 12
	usable := height - chrome - l.composerHeight
	if usable < 12 {
		usable = 12
	}
	l.transcriptHeight = usable / 3
	if l.transcriptHeight < 4 {
		l.transcriptHeight = 4
	}
	l.passageHeight = usable - l.transcriptHeight
	if l.passageHeight < 6 {
		l.passageHeight = 6
	}
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

func (m *model) buildPassageContent() string {
	cb := &contentBuilder{}
	res := m.resolution
	switch {
	case res == nil:
		cb.WriteString(m.styles.helper.Render(m.spinner.View() + " Loading today's passage…"))
		return cb.String()
	case res.Outcome == verse.OutcomeNoEligiblePlan:
		cb.WriteString(m.styles.sectionHeader.Render("Nothing to read yet"))
		cb.WriteRune('\n')
		cb.WriteString(m.styles.helper.Render(wordwrap.String(res.Message(), m.wrapWidth(0))))
		cb.WriteRune('\n')
		cb.WriteString(m.styles.helper.Render("Press a to open plan administration."))
		return cb.String()
	case res.Outcome == verse.OutcomeFailed:
		cb.WriteString(m.styles.errorText.Render(wordwrap.String(res.Message(), m.wrapWidth(0))))
		return cb.String()
	case res.Outcome != verse.OutcomeVerse:
		cb.WriteString(m.styles.helper.Render(res.Message()))
		return cb.String()
	}

	page := m.pager.Page()
	ranges := highlightRanges(page, m.highlights)
	body := m.styles.passage.Render(wordwrap.String(m.styles.applyHighlights(page, ranges), m.wrapWidth(2)))
	cb.WriteString(indentMultiline(body, "  "))
	cb.WriteRune('\n')

	if !m.pager.HasNext() && strings.TrimSpace(res.Verse.Explanation) != "" {
		cb.WriteRune('\n')
		cb.WriteString(m.styles.sectionHeader.Render("Reflection"))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wordwrap.String(m.markdown.Render(res.Verse.Explanation), m.wrapWidth(2)), "  "))
		cb.WriteRune('\n')
	}
	return cb.String()
}

func (m *model) buildTranscriptContent(history []chat.Message, pending bool) string {
	cb := &contentBuilder{}
	if len(history) == 0 && !pending {
		cb.WriteString(m.styles.helper.Render("Questions and answers about this passage will appear here."))
		return cb.String()
	}
	wrap := m.wrapWidth(4)
	for idx, entry := range history {
		cb.WriteString(m.styles.helper.Render(transcriptLabel(entry.Role)))
		cb.WriteRune('\n')
		var body string
		switch entry.Role {
		case chat.RoleAssistant:
			body = wordwrap.String(m.markdown.Render(entry.Content), wrap)
		case chat.RoleError:
			body = m.styles.errorText.Render(wordwrap.String(entry.Content, wrap))
		case chat.RoleInfo:
			body = m.styles.helper.Render(wordwrap.String(entry.Content, wrap))
		default:
			body = wordwrap.String(entry.Content, wrap)
		}
		cb.WriteString(indentMultiline(body, "  "))
		cb.WriteRune('\n')
		if idx < len(history)-1 {
			cb.WriteRune('\n')
		}
	}
	if pending {
		cb.WriteRune('\n')
		cb.WriteString(m.styles.helper.Render(fmt.Sprintf("%s Thinking…", m.spinner.View())))
	}
	return cb.String()
}

type matchRange struct {
	start int
	end   int
	color prefs.Color
}

func findMatches(content, query string) []matchRange {
	if query == "" {
		return nil
	}
	haystack, needle := content, query
	if lower := strings.ToLower(content); len(lower) == len(content) {
		haystack, needle = lower, strings.ToLower(query)
	}
	var matches []matchRange
	searchIdx := 0
	for searchIdx < len(haystack) {
		idx := strings.Index(haystack[searchIdx:], needle)
		if idx == -1 {
			break
		}
		start := searchIdx + idx
		end := start + len(needle)
		matches = append(matches, matchRange{start: start, end: end})
		searchIdx = end
	}
	return matches
}

// highlightRanges finds every saved highlight on the page, earliest first.
// Overlapping matches keep whichever starts first.
func highlightRanges(content string, marks []prefs.Highlight) []matchRange {
	var ranges []matchRange
	for _, mark := range marks {
		for _, r := range findMatches(content, mark.Text) {
			r.color = mark.Color
			ranges = append(ranges, r)
		}
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	out := ranges[:0]
	end := -1
	for _, r := range ranges {
		if r.start < end {
			continue
		}
		out = append(out, r)
		end = r.end
	}
	return out
}

func (st styles) applyHighlights(content string, ranges []matchRange) string {
	if len(ranges) == 0 {
		return content
	}
	var b strings.Builder
	pos := 0
	for _, r := range ranges {
		if r.start > pos {
			b.WriteString(content[pos:r.start])
		}
		b.WriteString(st.highlight(r.color).Render(content[r.start:r.end]))
		pos = r.end
	}
	if pos < len(content) {
		b.WriteString(content[pos:])
	}
	return b.String()
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.layout.viewportWidth
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func transcriptLabel(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		return "Guide"
	case chat.RoleInfo:
		return "System"
	case chat.RoleError:
		return "Error"
	default:
		return string(role)
	}
}
