package markdown

import "testing"

type personaFrontmatter struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

func TestSplitFrontmatter(t *testing.T) {
	t.Parallel()

	in := "---\nmodel: claude-haiku\n---\n\n# Prompt\nBody\n"
	raw, body, ok := SplitFrontmatter(in)
	if !ok {
		t.Fatalf("expected frontmatter to be found")
	}
	if raw != "model: claude-haiku" {
		t.Fatalf("unexpected raw frontmatter: %q", raw)
	}
	if body != "\n# Prompt\nBody" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestSplitFrontmatterAbsent(t *testing.T) {
	t.Parallel()

	in := "# Prompt without frontmatter\n"
	_, body, ok := SplitFrontmatter(in)
	if ok {
		t.Fatalf("expected no frontmatter")
	}
	if body != in {
		t.Fatalf("body = %q, want original contents", body)
	}
}

func TestParseFrontmatter(t *testing.T) {
	t.Parallel()

	in := "---\nmodel: claude-haiku\nmax_tokens: 2048\n---\nprompt body"
	fm, body, ok := ParseFrontmatter[personaFrontmatter](in)
	if !ok {
		t.Fatalf("ParseFrontmatter() ok = false")
	}
	if fm.Model != "claude-haiku" || fm.MaxTokens != 2048 {
		t.Fatalf("ParseFrontmatter() = %+v", fm)
	}
	if body != "prompt body" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatterInvalidYAML(t *testing.T) {
	t.Parallel()

	in := "---\n: bad\n  - yaml\n---\nbody"
	_, _, ok := ParseFrontmatter[personaFrontmatter](in)
	if ok {
		t.Fatalf("expected ok = false for invalid yaml")
	}
}
