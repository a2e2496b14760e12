package render

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain paragraph",
			in:   "The Lord is my shepherd.",
			want: "The Lord is my shepherd.",
		},
		{
			name: "emphasis is flattened",
			in:   "You asked about **Psalm 23:1**: _why?_",
			want: "You asked about Psalm 23:1: why?",
		},
		{
			name: "soft breaks join lines",
			in:   "first line\nsecond line",
			want: "first line second line",
		},
		{
			name: "paragraphs keep a blank line",
			in:   "one\n\ntwo",
			want: "one\n\ntwo",
		},
		{
			name: "bullets",
			in:   "- alpha\n- beta",
			want: "• alpha\n• beta",
		},
		{
			name: "ordered list",
			in:   "3. third\n4. fourth",
			want: "3. third\n4. fourth",
		},
		{
			name: "heading",
			in:   "## Context\n\nBody",
			want: "Context\n\nBody",
		},
		{
			name: "quote",
			in:   "> The Lord is my shepherd.",
			want: "│ The Lord is my shepherd.",
		},
		{
			name: "link keeps destination",
			in:   "[notes](https://example.com/n)",
			want: "notes (https://example.com/n)",
		},
		{
			name: "code block",
			in:   "```\nverse := 1\n```",
			want: "    verse := 1",
		},
		{
			name: "inline html dropped",
			in:   "a <b>bold</b> move",
			want: "a bold move",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := PlainText(tc.in); got != tc.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStylesApply(t *testing.T) {
	r := New(Styles{
		Strong: func(s string) string { return "<" + s + ">" },
		Code:   func(s string) string { return "`" + s + "`" },
	})
	got := r.Render("read **John 1** with `care`")
	if got != "read <John 1> with `care`" {
		t.Fatalf("Render = %q", got)
	}
}

func TestChatAnswerShape(t *testing.T) {
	answer := "You asked about **Psalm 23:1**: _Who leads?_\n\n> The Lord is my shepherd.\n\n- Start from the text.\n- Connect it to the theme.\n"
	got := PlainText(answer)
	for _, want := range []string{"Psalm 23:1", "│ The Lord is my shepherd.", "• Start from the text.", "• Connect it to the theme."} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.ContainsAny(got, "*_") {
		t.Fatalf("markdown markers left in output:\n%s", got)
	}
}
