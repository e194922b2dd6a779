package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessageChunksKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	text := strings.TrimSpace(strings.Repeat("ситуация с сотрудником требует внимания ", 150))
	chunks := splitMessageChunks(text, 4000)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2 for %d bytes", len(chunks), len(text))
	}
	for i, chunk := range chunks {
		if len(chunk) > 4000 {
			t.Fatalf("chunk %d is %d bytes, want <= 4000", i, len(chunk))
		}
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is not valid UTF-8: trailing bytes %x", i, chunk[len(chunk)-4:])
		}
	}
	if got := strings.Join(chunks, " "); got != text {
		t.Fatalf("rejoined chunks differ from input (got %d bytes, want %d)", len(got), len(text))
	}
}

func TestSplitMessageChunksWithoutBreakpoints(t *testing.T) {
	t.Parallel()

	// No spaces or newlines: the cut has to land on a rune start.
	text := strings.Repeat("я", 3000)
	chunks := splitMessageChunks(text, 4000)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 4000 {
			t.Fatalf("chunk %d is %d bytes, want <= 4000", i, len(chunk))
		}
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
	}
	if got := strings.Join(chunks, ""); got != text {
		t.Fatalf("rejoined chunks differ from input")
	}
}

func TestSplitMessageChunksPrefersNewlines(t *testing.T) {
	t.Parallel()

	para := strings.TrimSpace(strings.Repeat("строка текста\n", 400))
	chunks := splitMessageChunks(para, 4000)
	for i, chunk := range chunks {
		if strings.HasSuffix(chunk, "стро") || strings.HasPrefix(chunk, "ка ") {
			t.Fatalf("chunk %d split mid-word: %q...%q", i, chunk[:12], chunk[len(chunk)-12:])
		}
	}
	if got := strings.Join(chunks, "\n"); got != para {
		t.Fatalf("rejoined chunks differ from input")
	}
}

func TestSplitMessageChunksShortAndEmpty(t *testing.T) {
	t.Parallel()

	if got := splitMessageChunks("  \n ", 4000); got != nil {
		t.Fatalf("splitMessageChunks(blank) = %v, want nil", got)
	}
	got := splitMessageChunks("привет", 4000)
	if len(got) != 1 || got[0] != "привет" {
		t.Fatalf("splitMessageChunks(short) = %v", got)
	}
}
