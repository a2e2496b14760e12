// Package paginate splits passage text into pages that end on sentence
// boundaries.
package paginate

import "unicode/utf8"

const (
	// NarrowBudget is the page size used below the width breakpoint.
	NarrowBudget = 300
	// WideBudget is the page size used at or above the width breakpoint.
	WideBudget = 600
	// DefaultBreakpoint is the terminal width, in columns, that separates
	// narrow from wide layouts.
	DefaultBreakpoint = 100
)

// BudgetForWidth returns the character budget for a viewport width. A
// non-positive breakpoint uses DefaultBreakpoint.
func BudgetForWidth(width, breakpoint int) int {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	if width < breakpoint {
		return NarrowBudget
	}
	return WideBudget
}

// Paginate splits text into pages of roughly budget characters. A page only
// ends right after a '.' that is followed by a space; the space starts the
// next page, so joining the pages reproduces text exactly. If no boundary
// exists the text stays on one page however long it is.
func Paginate(text string, budget int) []string {
	if budget < 1 || utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}

	// Offsets are bytes so invalid UTF-8 survives slicing untouched; count is
	// in runes.
	var pages []string
	start, count, lastBreak := 0, 0, 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		count++
		if text[i] == '.' && i+1 < len(text) && text[i+1] == ' ' {
			lastBreak = i + 1
		}
		i += size
		if count >= budget && lastBreak > start {
			pages = append(pages, text[start:lastBreak])
			start = lastBreak
			count = utf8.RuneCountInString(text[lastBreak:i])
		}
	}
	if start < len(text) {
		pages = append(pages, text[start:])
	}
	return pages
}
