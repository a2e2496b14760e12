// Package llm generates chat answers about a passage with a local Ollama
// model or an OpenAI-compatible endpoint. The dev server uses it when a
// provider is configured and falls back to canned answers otherwise.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	defaultOllamaModel    = "llama3.2:latest"
	defaultOllamaHost     = "http://localhost:11434"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOpenAIBase     = "https://api.openai.com/v1"
	defaultLLMHTTPTimeout = 2 * time.Minute

	// Passages are short; the cap only matters for pasted or generated text.
	maxPassageChars = 24_000
	maxHistoryTurns = 6
)

// Config describes how to build a client. Empty fields fall back to the
// OLLAMA_* / OPENAI_* environment and then to defaults.
type Config struct {
	Provider   string
	Model      string
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Passage is the text a question is about.
type Passage struct {
	Reference string
	Title     string
	Text      string
}

// Turn is an earlier exchange in the same conversation.
type Turn struct {
	Question string
	Answer   string
}

// Client answers questions about a passage.
type Client interface {
	Answer(ctx context.Context, passage Passage, question string, history []Turn) (string, error)
	Name() string
}

// New builds a client for cfg.Provider (Ollama when empty).
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderOllama:
		return &ollamaClient{
			host:   firstNonEmpty(cfg.Endpoint, os.Getenv("OLLAMA_HOST"), defaultOllamaHost),
			model:  firstNonEmpty(cfg.Model, os.Getenv("OLLAMA_MODEL"), defaultOllamaModel),
			client: pickHTTPClient(cfg.HTTPClient),
		}, nil
	case ProviderOpenAI:
		key := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("llm: openai provider needs an API key (OPENAI_API_KEY)")
		}
		return &openAIClient{
			apiKey: key,
			base:   firstNonEmpty(cfg.Endpoint, os.Getenv("OPENAI_BASE_URL"), defaultOpenAIBase),
			model:  firstNonEmpty(cfg.Model, os.Getenv("OPENAI_MODEL"), defaultOpenAIModel),
			client: pickHTTPClient(cfg.HTTPClient),
		}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Local models often take longer than a minute; callers cancel via ctx.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return strings.TrimRight(v, "/")
		}
	}
	return ""
}
