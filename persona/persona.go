// Package persona holds the assistant's system instruction and model
// parameters, with an optional on-disk override file.
package persona

import (
	"fmt"
	"strings"

	"github.com/alexstashenko/hr-assistant-bot/internal/fsstore"
	"github.com/alexstashenko/hr-assistant-bot/internal/markdown"
)

const (
	// DefaultModel matches the model the bot ran against in production.
	DefaultModel = "claude-haiku-4-5-20251001"

	// DefaultMaxTokens bounds one completion.
	DefaultMaxTokens = 4096
)

// Persona is the fixed instruction sent with every LLM request plus the
// model parameters the instruction was tuned for.
type Persona struct {
	Model        string
	MaxTokens    int
	SystemPrompt string
}

// Default returns the built-in HR consultant persona.
func Default() Persona {
	return Persona{
		Model:        DefaultModel,
		MaxTokens:    DefaultMaxTokens,
		SystemPrompt: systemPrompt,
	}
}

type personaMeta struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Load reads a persona override from path: a markdown file whose body
// replaces the system prompt, with optional YAML frontmatter for model and
// max_tokens. A missing file yields the built-in persona.
func Load(path string) (Persona, error) {
	p := Default()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}

	contents, found, err := fsstore.ReadText(path)
	if err != nil {
		return Persona{}, fmt.Errorf("persona: read %s: %w", path, err)
	}
	if !found {
		return p, nil
	}

	meta, body, _ := markdown.ParseFrontmatter[personaMeta](contents)
	body = strings.TrimSpace(body)
	if body != "" {
		p.SystemPrompt = body
	}
	if meta.Model != "" {
		p.Model = meta.Model
	}
	if meta.MaxTokens > 0 {
		p.MaxTokens = meta.MaxTokens
	}
	return p, nil
}
