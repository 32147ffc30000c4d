// Package chat holds the message domain model for project conversations.
package chat

import (
	"fmt"
	"time"

	"github.com/lifeasacraft/backend/internal/domain"
)

// Supported speaker roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Placeholder is stored when the completion provider returns no content.
const Placeholder = "No response"

// ValidRole reports whether role is one of the supported speaker roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Message is one immutable utterance in a project conversation.
// Content is the literal view: it is what gets stored, returned over REST and
// broadcast to clients. AssistantView is the provider-facing view computed at
// persist time and never leaves the server.
type Message struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	AssistantView string         `json:"-"`
	AgentName     string         `json:"agent_name"`
	AgentRole     string         `json:"agent_role"`
	AgentModel    string         `json:"agent_model"`
	AgentParams   map[string]any `json:"agent_params,omitempty"`
	ProjectID     string         `json:"project_id"`
	Timestamp     time.Time      `json:"timestamp"`
}

// CreateRequest is the wire and REST payload for appending a message.
type CreateRequest struct {
	Content     string         `json:"content"`
	AgentName   string         `json:"agent_name"`
	AgentRole   string         `json:"agent_role"`
	AgentModel  string         `json:"agent_model"`
	AgentParams map[string]any `json:"agent_params,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Validate checks the request against the domain invariants.
func (r *CreateRequest) Validate() error {
	if r.Content == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if !ValidRole(r.AgentRole) {
		return fmt.Errorf("%w: unsupported agent_role %q", domain.ErrValidation, r.AgentRole)
	}
	if r.AgentName == "" {
		return fmt.Errorf("%w: agent_name is required", domain.ErrValidation)
	}
	if r.AgentModel == "" {
		return fmt.Errorf("%w: agent_model is required", domain.ErrValidation)
	}
	return nil
}
