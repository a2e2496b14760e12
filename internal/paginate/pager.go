package paginate

// Pager tracks the visible page of a paginated passage.
type Pager struct {
	text   string
	budget int
	pages  []string
	index  int
}

// NewPager paginates text with budget and starts on the first page.
func NewPager(text string, budget int) *Pager {
	p := &Pager{text: text, budget: budget}
	p.pages = Paginate(text, budget)
	return p
}

// SetText replaces the passage. The index returns to the first page when the
// text changes.
func (p *Pager) SetText(text string) {
	if text == p.text && p.pages != nil {
		return
	}
	p.text = text
	p.repaginate()
}

// SetBudget changes the page size. The index returns to the first page when
// the budget changes. It reports whether the budget changed.
func (p *Pager) SetBudget(budget int) bool {
	if budget == p.budget && p.pages != nil {
		return false
	}
	p.budget = budget
	p.repaginate()
	return true
}

func (p *Pager) repaginate() {
	p.pages = Paginate(p.text, p.budget)
	p.index = 0
}

// Budget returns the current page size.
func (p *Pager) Budget() int { return p.budget }

// Pages returns a copy of all pages.
func (p *Pager) Pages() []string {
	return append([]string(nil), p.pages...)
}

// Len returns the number of pages.
func (p *Pager) Len() int { return len(p.pages) }

// Index returns the zero-based current page.
func (p *Pager) Index() int { return p.index }

// Page returns the current page text.
func (p *Pager) Page() string {
	if len(p.pages) == 0 {
		return ""
	}
	return p.pages[p.index]
}

// HasNext reports whether Next would move.
func (p *Pager) HasNext() bool { return p.index+1 < len(p.pages) }

// HasPrev reports whether Prev would move.
func (p *Pager) HasPrev() bool { return p.index > 0 }

// Next advances one page. It reports whether the index moved.
func (p *Pager) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.index++
	return true
}

// Prev goes back one page. It reports whether the index moved.
func (p *Pager) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.index--
	return true
}

// Seek jumps to page i, clamped to the valid range.
func (p *Pager) Seek(i int) {
	switch {
	case i < 0:
		i = 0
	case i >= len(p.pages):
		i = len(p.pages) - 1
	}
	p.index = i
}
