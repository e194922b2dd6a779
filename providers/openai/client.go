// Package openai implements llm.Client for OpenAI-compatible chat endpoints.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/alexstashenko/hr-assistant-bot/llm"
)

const defaultMaxTokens = 4096

type Client struct {
	client         *goopenai.Client
	requestTimeout time.Duration
}

func New(baseURL, apiKey string, requestTimeout time.Duration) *Client {
	cfg := goopenai.DefaultConfig(strings.TrimSpace(apiKey))
	if base := normalizeBaseURL(baseURL); base != "" {
		cfg.BaseURL = base
	}
	return &Client{
		client:         goopenai.NewClientWithConfig(cfg),
		requestTimeout: requestTimeout,
	}
}

// normalizeBaseURL appends the /v1 path segment the chat API lives under,
// unless the operator already supplied it.
func normalizeBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.Model) == "" {
		return llm.Result{}, fmt.Errorf("openai: missing model")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range req.Messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := goopenai.ChatMessageRoleUser
		if strings.ToLower(strings.TrimSpace(m.Role)) == llm.RoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: content})
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:     strings.TrimSpace(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return llm.Result{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Result{}, fmt.Errorf("openai: empty choices")
	}

	return llm.Result{
		Text: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}
