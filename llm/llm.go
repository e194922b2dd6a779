// Package llm defines the provider-neutral chat interface the bot consumes.
package llm

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model     string
	System    string
	MaxTokens int
	Messages  []Message
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
