// Package anthropic implements llm.Client on top of the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/alexstashenko/hr-assistant-bot/llm"
)

const defaultMaxTokens = 4096

type Client struct {
	client         sdk.Client
	requestTimeout time.Duration
}

func New(baseURL, apiKey string, requestTimeout time.Duration) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &Client{
		client:         sdk.NewClient(opts...),
		requestTimeout: requestTimeout,
	}
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.Model) == "" {
		return llm.Result{}, fmt.Errorf("anthropic: missing model")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(strings.TrimSpace(req.Model)),
		MaxTokens: int64(maxTokens),
		Messages:  buildMessages(req.Messages),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Result{}, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return llm.Result{}, fmt.Errorf("anthropic: empty completion")
	}

	return llm.Result{
		Text: text.String(),
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Duration: time.Since(start),
	}, nil
}

func buildMessages(messages []llm.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if strings.ToLower(strings.TrimSpace(m.Role)) == llm.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(text)))
		} else {
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(text)))
		}
	}
	return out
}
