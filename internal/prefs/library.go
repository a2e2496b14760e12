package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	bookmarksKey       = "verse-bookmarks"
	highlightKeyPrefix = "highlights-"
	themeKey           = "theme"

	excerptLimit = 100
)

// Bookmark is a saved passage.
type Bookmark struct {
	Reference string    `json:"reference"`
	Excerpt   string    `json:"excerpt"`
	SavedAt   time.Time `json:"saved_at"`
}

// Color names a highlight colour.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
)

// Colors lists the highlight colours in picker order.
var Colors = []Color{ColorYellow, ColorGreen, ColorBlue}

// Highlight is a marked span of passage text.
type Highlight struct {
	Text      string    `json:"text"`
	Color     Color     `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Theme is the colour scheme of the reader.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ErrEmptyHighlight is returned when the highlighted text is blank.
var ErrEmptyHighlight = errors.New("prefs: highlight text is empty")

// Library is the typed view over a Store.
type Library struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewLibrary wraps store.
func NewLibrary(store Store) *Library {
	return &Library{store: store, now: time.Now}
}

// Store returns the underlying key-value store.
func (l *Library) Store() Store { return l.store }

// Bookmarks returns saved passages, most recent first.
func (l *Library) Bookmarks() ([]Bookmark, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bookmarksLocked()
}

// IsBookmarked reports whether reference is saved.
func (l *Library) IsBookmarked(reference string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	marks, err := l.bookmarksLocked()
	if err != nil {
		return false, err
	}
	return indexOfBookmark(marks, reference) >= 0, nil
}

// ToggleBookmark saves the passage or removes it if already saved. It
// reports whether the passage is bookmarked afterwards.
func (l *Library) ToggleBookmark(reference, text string) (bool, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return false, errors.New("prefs: bookmark needs a reference")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	marks, err := l.bookmarksLocked()
	if err != nil {
		return false, err
	}
	added := false
	if idx := indexOfBookmark(marks, reference); idx >= 0 {
		marks = append(marks[:idx], marks[idx+1:]...)
	} else {
		marks = append([]Bookmark{{
			Reference: reference,
			Excerpt:   Excerpt(text),
			SavedAt:   l.now(),
		}}, marks...)
		added = true
	}
	if err := l.putJSON(bookmarksKey, marks); err != nil {
		return false, err
	}
	return added, nil
}

// Excerpt returns the first 100 characters of text, marked with "..." when
// truncated.
func Excerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= excerptLimit {
		return text
	}
	return string([]rune(text)[:excerptLimit]) + "..."
}

func indexOfBookmark(marks []Bookmark, reference string) int {
	for i, m := range marks {
		if m.Reference == reference {
			return i
		}
	}
	return -1
}

func (l *Library) bookmarksLocked() ([]Bookmark, error) {
	var marks []Bookmark
	if err := l.getJSON(bookmarksKey, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

// Highlights returns the highlights saved for reference in creation order.
func (l *Library) Highlights(reference string) ([]Highlight, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var marks []Highlight
	if err := l.getJSON(highlightKeyPrefix+reference, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

// AddHighlight stores a highlight for reference. Unknown colours fall back to
// yellow.
func (l *Library) AddHighlight(reference, text string, color Color) (Highlight, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Highlight{}, ErrEmptyHighlight
	}
	if !validColor(color) {
		color = ColorYellow
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := highlightKeyPrefix + reference
	var marks []Highlight
	if err := l.getJSON(key, &marks); err != nil {
		return Highlight{}, err
	}
	mark := Highlight{Text: text, Color: color, CreatedAt: l.now()}
	marks = append(marks, mark)
	if err := l.putJSON(key, marks); err != nil {
		return Highlight{}, err
	}
	return mark, nil
}

// RemoveHighlight deletes the highlight at index. Removing the last one
// removes the key entirely.
func (l *Library) RemoveHighlight(reference string, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := highlightKeyPrefix + reference
	var marks []Highlight
	if err := l.getJSON(key, &marks); err != nil {
		return err
	}
	if index < 0 || index >= len(marks) {
		return fmt.Errorf("prefs: highlight %d out of range (have %d)", index, len(marks))
	}
	marks = append(marks[:index], marks[index+1:]...)
	if len(marks) == 0 {
		return l.store.Remove(key)
	}
	return l.putJSON(key, marks)
}

func validColor(c Color) bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

// Theme returns the saved theme or fallback when none is saved.
func (l *Library) Theme(fallback Theme) (Theme, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, ok, err := l.store.Get(themeKey)
	if err != nil {
		return fallback, err
	}
	if theme := Theme(raw); ok && (theme == ThemeDark || theme == ThemeLight) {
		return theme, nil
	}
	return fallback, nil
}

// SetTheme persists theme.
func (l *Library) SetTheme(theme Theme) error {
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("prefs: unknown theme %q", theme)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Set(themeKey, string(theme))
}

// ToggleTheme flips between dark and light and returns the new theme.
func (l *Library) ToggleTheme(current Theme) (Theme, error) {
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	if err := l.SetTheme(next); err != nil {
		return current, err
	}
	return next, nil
}

func (l *Library) getJSON(key string, dst any) error {
	raw, ok, err := l.store.Get(key)
	if err != nil || !ok || raw == "" {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("prefs: decode %q: %w", key, err)
	}
	return nil
}

func (l *Library) putJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return l.store.Set(key, string(data))
}
