package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/versescout/internal/prefs"
	"github.com/csheth/versescout/internal/render"
)

type styles struct {
	sectionHeader lipgloss.Style
	helper        lipgloss.Style
	errorText     lipgloss.Style
	passage       lipgloss.Style
	reference     lipgloss.Style
	heroTitle     lipgloss.Style
	heroBox       lipgloss.Style
	tagline       lipgloss.Style
	statusBar     lipgloss.Style
	key           lipgloss.Style
	keyDesc       lipgloss.Style
	legendBox     lipgloss.Style
	helpBox       lipgloss.Style
	currentLine   lipgloss.Style
	activeMarker  lipgloss.Style
	strong        lipgloss.Style
	emphasis      lipgloss.Style
	code          lipgloss.Style
	highlights    map[prefs.Color]lipgloss.Style
}

func darkStyles() styles {
	accent := lipgloss.Color("#f4a261")
	return styles{
		sectionHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		helper:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		errorText:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		passage:       lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4")),
		reference:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		heroTitle:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		heroBox:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 2),
		tagline:       lipgloss.NewStyle().Foreground(lipgloss.Color("#ffe5d0")).Italic(true),
		statusBar:     lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1),
		key:           lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1),
		keyDesc:       lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4")),
		legendBox:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2),
		helpBox:       lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2),
		currentLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")),
		activeMarker:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a3be8c")),
		strong:        lipgloss.NewStyle().Bold(true),
		emphasis:      lipgloss.NewStyle().Italic(true),
		code:          lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166")),
		highlights: map[prefs.Color]lipgloss.Style{
			prefs.ColorYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("190")),
			prefs.ColorGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("114")),
			prefs.ColorBlue:   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("117")),
		},
	}
}

func lightStyles() styles {
	st := darkStyles()
	accent := lipgloss.Color("#9c4a12")
	st.sectionHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25"))
	st.helper = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	st.errorText = lipgloss.NewStyle().Foreground(lipgloss.Color("124"))
	st.passage = lipgloss.NewStyle().Foreground(lipgloss.Color("#1f1d2e"))
	st.reference = lipgloss.NewStyle().Bold(true).Foreground(accent)
	st.heroTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	st.heroBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 2)
	st.tagline = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e4a2e")).Italic(true)
	st.keyDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#1f1d2e"))
	st.activeMarker = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("28"))
	st.code = lipgloss.NewStyle().Foreground(lipgloss.Color("#9c4a12"))
	st.highlights = map[prefs.Color]lipgloss.Style{
		prefs.ColorYellow: lipgloss.NewStyle().Background(lipgloss.Color("229")),
		prefs.ColorGreen:  lipgloss.NewStyle().Background(lipgloss.Color("194")),
		prefs.ColorBlue:   lipgloss.NewStyle().Background(lipgloss.Color("153")),
	}
	return st
}

func stylesFor(theme prefs.Theme) styles {
	if theme == prefs.ThemeLight {
		return lightStyles()
	}
	return darkStyles()
}

func (st styles) markdown() *render.Renderer {
	return render.New(render.Styles{
		Strong:   func(s string) string { return st.strong.Render(s) },
		Emphasis: func(s string) string { return st.emphasis.Render(s) },
		Code:     func(s string) string { return st.code.Render(s) },
		Heading:  func(s string) string { return st.sectionHeader.Render(s) },
	})
}

func (st styles) highlight(color prefs.Color) lipgloss.Style {
	if s, ok := st.highlights[color]; ok {
		return s
	}
	return st.highlights[prefs.ColorYellow]
}
