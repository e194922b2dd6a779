package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alexstashenko/hr-assistant-bot/persona"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTelegramDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *telegramUser
		want string
	}{
		{"nil", nil, ""},
		{"first and last", &telegramUser{FirstName: "Анна", LastName: "Петрова"}, "Анна Петрова"},
		{"first only", &telegramUser{FirstName: "Анна"}, "Анна"},
		{"username fallback", &telegramUser{Username: "anna"}, "@anna"},
		{"empty", &telegramUser{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := telegramDisplayName(tt.user); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleGrantRejectsNonAdmin(t *testing.T) {
	cfg := runConfig{adminUserID: 999}
	got := handleGrant(context.Background(), testLogger(), nil, cfg, 42, []string{"/grant", "7"})
	if !strings.Contains(got, "только администратору") {
		t.Fatalf("non-admin grant reply = %q", got)
	}
}

func TestHandleGrantUsageHints(t *testing.T) {
	cfg := runConfig{adminUserID: 999}
	ctx := context.Background()

	if got := handleGrant(ctx, testLogger(), nil, cfg, 999, []string{"/grant"}); !strings.Contains(got, "Использование") {
		t.Fatalf("missing-arg reply = %q", got)
	}
	if got := handleGrant(ctx, testLogger(), nil, cfg, 999, []string{"/grant", "abc"}); !strings.Contains(got, "числом") {
		t.Fatalf("bad-arg reply = %q", got)
	}
}

func TestResolveEndpointPerProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		endpoint string
		want     string
	}{
		{"anthropic default", "anthropic", "", "https://api.anthropic.com"},
		{"openai default", "openai", "", "https://api.openai.com"},
		{"explicit endpoint wins", "openai", "https://llm.internal.example", "https://llm.internal.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveEndpoint(tt.provider, tt.endpoint); got != tt.want {
				t.Fatalf("resolveEndpoint(%q, %q) = %q, want %q", tt.provider, tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestCheckPingModelFallsBackToPersonaDefault(t *testing.T) {
	if got := checkPingModel("claude-sonnet-4-20250514", "x"); got != "claude-sonnet-4-20250514" {
		t.Fatalf("override ignored: %q", got)
	}
	if got := checkPingModel("", "configured-model"); got != "configured-model" {
		t.Fatalf("configured model ignored: %q", got)
	}
	if got := checkPingModel("", ""); got != persona.DefaultModel {
		t.Fatalf("fallback = %q, want the bot's default model %q", got, persona.DefaultModel)
	}
}

func TestWelcomeTextPersonalized(t *testing.T) {
	if got := welcomeText("Иван"); !strings.HasPrefix(got, "Здравствуйте, Иван!") {
		t.Fatalf("welcome = %q", got)
	}
	if got := welcomeText("  "); !strings.HasPrefix(got, "Здравствуйте!") {
		t.Fatalf("welcome without name = %q", got)
	}
}
