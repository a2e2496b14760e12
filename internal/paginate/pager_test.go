package paginate

import (
	"strings"
	"testing"
)

func longPassage() string {
	return strings.Repeat("Blessed are the meek, for they shall inherit the earth. ", 30)
}

func TestPagerNavigationClamps(t *testing.T) {
	p := NewPager(longPassage(), NarrowBudget)
	if p.Len() < 3 {
		t.Fatalf("expected at least 3 pages, got %d", p.Len())
	}
	if p.Prev() {
		t.Fatal("Prev on first page should not move")
	}
	for p.Next() {
	}
	if p.Index() != p.Len()-1 {
		t.Fatalf("index = %d, want last page %d", p.Index(), p.Len()-1)
	}
	if p.HasNext() {
		t.Fatal("HasNext should be false on the last page")
	}
	p.Seek(-4)
	if p.Index() != 0 {
		t.Fatalf("Seek(-4) index = %d, want 0", p.Index())
	}
	p.Seek(999)
	if p.Index() != p.Len()-1 {
		t.Fatalf("Seek(999) index = %d, want %d", p.Index(), p.Len()-1)
	}
}

func TestPagerBudgetChangeResetsIndex(t *testing.T) {
	p := NewPager(longPassage(), NarrowBudget)
	p.Next()
	p.Next()
	if p.SetBudget(NarrowBudget) {
		t.Fatal("same budget should not report a change")
	}
	if p.Index() != 2 {
		t.Fatalf("index = %d, want 2 after no-op budget", p.Index())
	}
	if !p.SetBudget(WideBudget) {
		t.Fatal("new budget should report a change")
	}
	if p.Index() != 0 {
		t.Fatalf("index = %d, want 0 after budget change", p.Index())
	}
	if got := strings.Join(p.Pages(), ""); got != longPassage() {
		t.Fatal("pages do not reproduce the passage")
	}
}

func TestPagerSetTextResetsIndex(t *testing.T) {
	p := NewPager(longPassage(), NarrowBudget)
	p.Next()
	p.SetText(longPassage())
	if p.Index() != 1 {
		t.Fatalf("same text should keep index, got %d", p.Index())
	}
	p.SetText("Short. Text.")
	if p.Index() != 0 || p.Len() != 1 {
		t.Fatalf("index=%d len=%d, want 0 and 1", p.Index(), p.Len())
	}
	if p.Page() != "Short. Text." {
		t.Fatalf("page = %q", p.Page())
	}
}
