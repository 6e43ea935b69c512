package chat

import (
	"context"

	"github.com/anishvdev/voiceforge/pkg/ai"
)

// systemPrompt steers the model toward short, speakable hinglish replies:
// the output is fed straight into voice synthesis.
const systemPrompt = "You are a friendly voice assistant for Indian users. " +
	"Reply in natural hinglish (hindi written in latin script, mixed with english) " +
	"unless the user writes in another language. Keep replies short and " +
	"conversational, two or three sentences, suitable for being read aloud. " +
	"Never use markdown, lists or emoji."

// GroqResponder adapts the Groq chat-completion client to the Responder
// interface.
type GroqResponder struct {
	client *ai.GroqClient
}

func NewGroqResponder(client *ai.GroqClient) *GroqResponder {
	return &GroqResponder{client: client}
}

// Respond maps the turn window onto the chat-completion message list.
func (r *GroqResponder) Respond(ctx context.Context, turns []Turn) (string, error) {
	msgs := make([]ai.ChatMessage, 0, len(turns)+1)
	msgs = append(msgs, ai.ChatMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		msgs = append(msgs, ai.ChatMessage{Role: t.Role, Content: t.Content})
	}
	return r.client.ChatCompletion(ctx, msgs)
}
