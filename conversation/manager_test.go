package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alexstashenko/hr-assistant-bot/llm"
)

func newTestManager(t *testing.T, windowSize int) (*Manager, *Log) {
	t.Helper()
	dir := t.TempDir()
	l := NewLog(filepath.Join(dir, "conversations"), dir, nil)
	return NewManager(l, windowSize), l
}

func TestManagerWindowClips(t *testing.T) {
	m, l := newTestManager(t, 20)
	ctx := context.Background()
	const total = 27

	for i := 0; i < total; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		if err := m.AddTurn(ctx, 42, role, fmt.Sprintf("turn %d", i)); err != nil {
			t.Fatalf("add turn %d: %v", i, err)
		}
	}

	window, err := m.Window(ctx, 42)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 20 {
		t.Fatalf("window length = %d, want 20", len(window))
	}
	if window[0].Content != fmt.Sprintf("turn %d", total-20) {
		t.Fatalf("window starts at %q, want oldest retained turn", window[0].Content)
	}
	if window[len(window)-1].Content != fmt.Sprintf("turn %d", total-1) {
		t.Fatalf("window ends at %q, want newest turn", window[len(window)-1].Content)
	}

	// The durable transcript keeps everything the window dropped.
	turns, err := l.Load(ctx, 42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(turns) != total {
		t.Fatalf("durable transcript has %d turns, want %d", len(turns), total)
	}
}

func TestManagerWindowShorterThanLimit(t *testing.T) {
	m, _ := newTestManager(t, 20)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if err := m.AddTurn(ctx, 1, llm.RoleUser, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("add turn: %v", err)
		}
	}
	window, err := m.Window(ctx, 1)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 6 {
		t.Fatalf("window length = %d, want 6", len(window))
	}
}

func TestManagerHydratesFromDurableLog(t *testing.T) {
	dir := t.TempDir()
	convDir := filepath.Join(dir, "conversations")
	l := NewLog(convDir, dir, nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if err := l.Append(ctx, 3, llm.RoleUser, fmt.Sprintf("old %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Fresh manager simulates a process restart.
	m := NewManager(NewLog(convDir, dir, nil), 20)
	window, err := m.Window(ctx, 3)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 20 {
		t.Fatalf("hydrated window length = %d, want 20", len(window))
	}
	if window[0].Content != "old 5" {
		t.Fatalf("hydrated window starts at %q, want \"old 5\"", window[0].Content)
	}
}

func TestManagerResetWindowKeepsTranscript(t *testing.T) {
	m, l := newTestManager(t, 20)
	ctx := context.Background()

	if err := m.AddTurn(ctx, 8, llm.RoleUser, "before reset"); err != nil {
		t.Fatalf("add turn: %v", err)
	}
	m.ResetWindow(8)

	window, err := m.Window(ctx, 8)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("window not cleared: %d turns", len(window))
	}

	// Reset must not rehydrate old context or touch the durable file.
	turns, err := l.Load(ctx, 8)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "before reset" {
		t.Fatalf("durable transcript changed by reset: %+v", turns)
	}

	if err := m.AddTurn(ctx, 8, llm.RoleUser, "after reset"); err != nil {
		t.Fatalf("add turn: %v", err)
	}
	window, err = m.Window(ctx, 8)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 1 || window[0].Content != "after reset" {
		t.Fatalf("window after reset = %+v, want only the new turn", window)
	}
}

func TestManagerWindowReturnsCopy(t *testing.T) {
	m, _ := newTestManager(t, 20)
	ctx := context.Background()

	if err := m.AddTurn(ctx, 2, llm.RoleUser, "original"); err != nil {
		t.Fatalf("add turn: %v", err)
	}
	window, err := m.Window(ctx, 2)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	window[0].Content = "mutated"

	again, err := m.Window(ctx, 2)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if again[0].Content != "original" {
		t.Fatal("caller mutation leaked into the cached window")
	}
}
