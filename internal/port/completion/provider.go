// Package completion defines the port for the chat completion provider.
package completion

import "context"

// Message is one {role, content} pair of the provider context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates an assistant reply from an ordered conversation history.
// An empty reply with a nil error is a valid outcome; callers decide what to
// substitute.
type Provider interface {
	Complete(ctx context.Context, model string, history []Message) (string, error)
}
