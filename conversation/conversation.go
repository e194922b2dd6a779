// Package conversation keeps per-user chat transcripts: an unbounded durable
// log on disk and a bounded in-memory window used to build LLM requests.
package conversation

import (
	"github.com/alexstashenko/hr-assistant-bot/llm"
)

// DefaultWindowSize is how many recent turns (user and assistant messages
// counted separately) are sent to the model as history.
const DefaultWindowSize = 20

// Turn is one message in a transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages converts turns to the LLM request shape.
func Messages(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}
