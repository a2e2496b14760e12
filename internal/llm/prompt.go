package llm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

const systemPrompt = "You are a thoughtful reading companion. Answer in a few short paragraphs or bullets of markdown."

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func buildAnswerPrompt(p Passage, context, question string, history []Turn) string {
	var b strings.Builder
	b.WriteString("Use the passage below as the primary source for your answer.\n")
	b.WriteString("If the passage does not address the question, say so and answer briefly from general knowledge.\n\n")
	if ref := strings.TrimSpace(p.Reference); ref != "" {
		fmt.Fprintf(&b, "Reference: %s\n", ref)
	}
	if title := strings.TrimSpace(p.Title); title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	b.WriteString("\nPassage:\n")
	b.WriteString(context)
	if recent := lastTurns(history, maxHistoryTurns); len(recent) > 0 {
		b.WriteString("\n\nEarlier in this conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", oneLine(turn.Question), oneLine(turn.Answer))
		}
	}
	b.WriteString("\nQuestion: " + question + "\nAnswer:")
	return b.String()
}

func lastTurns(history []Turn, n int) []Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func oneLine(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// extractQuestionContext keeps the sentences that mention the question's
// keywords when the passage is over the limit.
func extractQuestionContext(content, question string, limit int) string {
	content = strings.TrimSpace(content)
	if content == "" || len(content) <= limit {
		return content
	}
	keywords := questionKeywords(question)
	if len(keywords) == 0 {
		return clipText(content, limit)
	}

	var matches []string
	total := 0
	for _, sentence := range roughSentenceSplit(content) {
		lower := strings.ToLower(sentence)
		for keyword := range keywords {
			if strings.Contains(lower, keyword) {
				matches = append(matches, sentence)
				total += len(sentence)
				break
			}
		}
		if total >= limit {
			break
		}
	}
	if len(matches) == 0 {
		return clipText(content, limit)
	}
	return clipText(strings.Join(matches, " "), limit)
}

var stopwords = map[string]struct{}{
	"what": {}, "why": {}, "how": {}, "who": {}, "is": {}, "the": {}, "a": {}, "an": {}, "of": {},
	"does": {}, "do": {}, "this": {}, "that": {}, "verse": {}, "passage": {}, "in": {}, "on": {},
	"for": {}, "are": {}, "be": {}, "mean": {}, "means": {}, "and": {}, "about": {},
}

func questionKeywords(question string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	keywords := map[string]struct{}{}
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		keywords[token] = struct{}{}
	}
	return keywords
}

func roughSentenceSplit(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func validateQuestion(p Passage, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	context := extractQuestionContext(p.Text, question, maxPassageChars)
	if context == "" {
		return "", fmt.Errorf("passage text empty; cannot answer question")
	}
	return context, nil
}
