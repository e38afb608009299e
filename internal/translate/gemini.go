package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

const translatePrompt = `Translate the following text into the language with ISO 639-1 code %q.
Reply with the translation only. Keep the meaning and tone, do not add notes or quotes.

%s`

// Gemini translates through the Gemini API. Several keys may be given; a key
// that hits its quota is rotated out for the next one.
type Gemini struct {
	model string
	keys  []string

	mu      sync.Mutex
	current int
}

// NewGemini returns a Gemini backend, or Unavailable when no key is set.
func NewGemini(model string, keys ...string) Backend {
	var usable []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			usable = append(usable, k)
		}
	}
	if len(usable) == 0 {
		return Unavailable{Reason: "no Gemini API key configured"}
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{model: model, keys: usable}
}

func (g *Gemini) Translate(ctx context.Context, text, target string) (string, error) {
	prompt := fmt.Sprintf(translatePrompt, target, text)

	var lastErr error
	for range len(g.keys) {
		key := g.key()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotate()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			if isQuotaError(err) {
				lastErr = err
				g.rotate()
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var b strings.Builder
			for _, part := range result.Candidates[0].Content.Parts {
				b.WriteString(part.Text)
			}
			return b.String(), nil
		}
		return "", errors.New("empty response from Gemini")
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *Gemini) key() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[g.current]
}

func (g *Gemini) rotate() {
	g.mu.Lock()
	g.current = (g.current + 1) % len(g.keys)
	g.mu.Unlock()
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
