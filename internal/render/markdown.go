// Package render flattens the markdown the backend returns (explanations and
// chat answers) into terminal text.
package render

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Styles decorates inline spans. Nil fields leave the text unchanged.
type Styles struct {
	Strong   func(string) string
	Emphasis func(string) string
	Code     func(string) string
	Heading  func(string) string
}

// Renderer turns markdown into plain text, keeping paragraph and list
// structure.
type Renderer struct {
	md     goldmark.Markdown
	styles Styles
}

// New returns a Renderer using styles.
func New(styles Styles) *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Linkify,
				extension.Strikethrough,
			),
		),
		styles: styles,
	}
}

var plain = New(Styles{})

// PlainText renders markdown without any decoration.
func PlainText(markdown string) string {
	return plain.Render(markdown)
}

// Render converts markdown to text. Blocks are separated by a blank line.
func (r *Renderer) Render(markdown string) string {
	src := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(src))
	return strings.TrimRight(r.blocks(doc, src, "\n\n"), "\n")
}

func (r *Renderer) blocks(parent ast.Node, src []byte, sep string) string {
	var parts []string
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (r *Renderer) block(n ast.Node, src []byte) string {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return strings.TrimSpace(r.inline(n, src))
	case *ast.Heading:
		return apply(r.styles.Heading, strings.TrimSpace(r.inline(n, src)))
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return indentLines(strings.TrimRight(b.String(), "\n"), "    ", "    ")
	case *ast.Blockquote:
		return indentLines(r.blocks(n, src, "\n\n"), "│ ", "│ ")
	case *ast.List:
		return r.list(n, src)
	case *ast.ThematicBreak:
		return "────────"
	case *ast.HTMLBlock:
		return ""
	default:
		return r.blocks(n, src, "\n\n")
	}
}

func (r *Renderer) list(list *ast.List, src []byte) string {
	var items []string
	number := list.Start
	if number == 0 {
		number = 1
	}
	sep := "\n"
	if !list.IsTight {
		sep = "\n\n"
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if list.IsOrdered() {
			marker = strconv.Itoa(number) + ". "
			number++
		}
		body := r.blocks(item, src, sep)
		items = append(items, indentLines(body, marker, strings.Repeat(" ", len([]rune(marker)))))
	}
	return strings.Join(items, sep)
}

func (r *Renderer) inline(parent ast.Node, src []byte) string {
	var b strings.Builder
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(src))
			switch {
			case n.HardLineBreak():
				b.WriteByte('\n')
			case n.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.CodeSpan:
			b.WriteString(apply(r.styles.Code, r.inline(n, src)))
		case *ast.Emphasis:
			inner := r.inline(n, src)
			if n.Level >= 2 {
				b.WriteString(apply(r.styles.Strong, inner))
			} else {
				b.WriteString(apply(r.styles.Emphasis, inner))
			}
		case *ast.AutoLink:
			b.Write(n.URL(src))
		case *ast.Link:
			label := r.inline(n, src)
			dest := string(n.Destination)
			b.WriteString(label)
			if dest != "" && dest != label {
				b.WriteString(" (" + dest + ")")
			}
		case *ast.RawHTML:
		default:
			b.WriteString(r.inline(n, src))
		}
	}
	return b.String()
}

func apply(style func(string) string, s string) string {
	if style == nil || s == "" {
		return s
	}
	return style(s)
}

// indentLines prefixes the first line with first and the rest with rest.
func indentLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		p := rest
		if i == 0 {
			p = first
		}
		if line == "" && i > 0 {
			lines[i] = strings.TrimRight(p, " ")
			continue
		}
		lines[i] = p + line
	}
	return strings.Join(lines, "\n")
}
