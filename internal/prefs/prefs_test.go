package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := OpenSQLite(filepath.Join(dir, "prefs.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(dir, "nested", "prefs.json")),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreGetSetRemove(t *testing.T) {
	for name, store := range openStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get("missing"); err != nil || ok {
				t.Fatalf("Get(missing) ok=%v err=%v", ok, err)
			}
			if err := store.Set("theme", "dark"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set("theme", "light"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, ok, err := store.Get("theme")
			if err != nil || !ok || got != "light" {
				t.Fatalf("Get = %q, %v, %v", got, ok, err)
			}
			if err := store.Remove("theme"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := store.Remove("theme"); err != nil {
				t.Fatalf("Remove twice: %v", err)
			}
			if _, ok, _ := store.Get("theme"); ok {
				t.Fatal("key should be gone")
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	first := NewFileStore(path)
	if err := first.Set("verse-bookmarks", `[]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
	second := NewFileStore(path)
	if v, ok, err := second.Get("verse-bookmarks"); err != nil || !ok || v != "[]" {
		t.Fatalf("reopened Get = %q %v %v", v, ok, err)
	}
	first.Close()
	if err := first.Set("k", "v"); err != ErrClosed {
		t.Fatalf("Set after close err = %v", err)
	}
}

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		driver, path string
		wantErr      bool
	}{
		{driver: "memory"},
		{driver: "file", path: filepath.Join(dir, "a.json")},
		{driver: "", path: filepath.Join(dir, "b.json")},
		{driver: "sqlite", path: filepath.Join(dir, "c.db")},
		{driver: "file", wantErr: true},
		{driver: "redis", path: "x", wantErr: true},
	}
	for _, tc := range cases {
		store, err := Open(tc.driver, tc.path)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Open(%q, %q) should fail", tc.driver, tc.path)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Open(%q): %v", tc.driver, err)
		}
		store.Close()
	}
}

func TestBookmarkToggleRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			lib := NewLibrary(store)
			lib.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
			text := strings.Repeat("a", 150)

			added, err := lib.ToggleBookmark("Psalm 23:1", text)
			if err != nil || !added {
				t.Fatalf("first toggle = %v, %v", added, err)
			}
			if _, err := lib.ToggleBookmark("John 3:16", "For God so loved the world."); err != nil {
				t.Fatalf("second bookmark: %v", err)
			}
			marks, err := lib.Bookmarks()
			if err != nil {
				t.Fatalf("Bookmarks: %v", err)
			}
			if len(marks) != 2 || marks[0].Reference != "John 3:16" {
				t.Fatalf("bookmarks = %+v, want newest first", marks)
			}
			if got := marks[1].Excerpt; got != strings.Repeat("a", 100)+"..." {
				t.Fatalf("excerpt = %q", got)
			}
			if ok, _ := lib.IsBookmarked("Psalm 23:1"); !ok {
				t.Fatal("Psalm 23:1 should be bookmarked")
			}

			added, err = lib.ToggleBookmark("Psalm 23:1", text)
			if err != nil || added {
				t.Fatalf("untoggle = %v, %v", added, err)
			}
			if ok, _ := lib.IsBookmarked("Psalm 23:1"); ok {
				t.Fatal("Psalm 23:1 should be removed")
			}
		})
	}
}

func TestHighlightsAddRemove(t *testing.T) {
	lib := NewLibrary(NewMemoryStore())
	if _, err := lib.AddHighlight("Ruth 1:16", "  ", ColorBlue); err != ErrEmptyHighlight {
		t.Fatalf("blank highlight err = %v", err)
	}
	if _, err := lib.AddHighlight("Ruth 1:16", "whither thou goest", ColorGreen); err != nil {
		t.Fatalf("AddHighlight: %v", err)
	}
	mark, err := lib.AddHighlight("Ruth 1:16", "I will go", Color("purple"))
	if err != nil {
		t.Fatalf("AddHighlight: %v", err)
	}
	if mark.Color != ColorYellow {
		t.Fatalf("unknown colour should fall back to yellow, got %q", mark.Color)
	}
	marks, _ := lib.Highlights("Ruth 1:16")
	if len(marks) != 2 {
		t.Fatalf("len = %d, want 2", len(marks))
	}
	if err := lib.RemoveHighlight("Ruth 1:16", 5); err == nil {
		t.Fatal("out of range remove should fail")
	}
	for i := 0; i < 2; i++ {
		if err := lib.RemoveHighlight("Ruth 1:16", 0); err != nil {
			t.Fatalf("RemoveHighlight: %v", err)
		}
	}
	if _, ok, _ := lib.Store().Get("highlights-Ruth 1:16"); ok {
		t.Fatal("key should be removed with the last highlight")
	}
}

func TestThemeToggle(t *testing.T) {
	lib := NewLibrary(NewMemoryStore())
	theme, err := lib.Theme(ThemeDark)
	if err != nil || theme != ThemeDark {
		t.Fatalf("default theme = %q, %v", theme, err)
	}
	next, err := lib.ToggleTheme(theme)
	if err != nil || next != ThemeLight {
		t.Fatalf("toggle = %q, %v", next, err)
	}
	if saved, _ := lib.Theme(ThemeDark); saved != ThemeLight {
		t.Fatalf("saved theme = %q", saved)
	}
	if err := lib.SetTheme("sepia"); err == nil {
		t.Fatal("unknown theme should be rejected")
	}
}
