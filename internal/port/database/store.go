// Package database defines the port for durable project and message storage.
package database

import (
	"context"

	"github.com/lifeasacraft/backend/internal/domain/chat"
	"github.com/lifeasacraft/backend/internal/domain/project"
)

// Store is the persistence boundary consumed by the services. Implementations
// must be safe for concurrent independent calls; no transaction spans more
// than one call.
type Store interface {
	GetProject(ctx context.Context, id string) (*project.Project, error)
	ListProjects(ctx context.Context) ([]project.Project, error)
	CreateProject(ctx context.Context, req *project.CreateRequest) (*project.Project, error)

	// AppendMessage assigns an identifier, computes the assistant-facing
	// content view, persists the message and returns the canonical record.
	AppendMessage(ctx context.Context, projectID string, req *chat.CreateRequest) (*chat.Message, error)

	// ListMessages returns a project's messages in insertion order.
	ListMessages(ctx context.Context, projectID string) ([]chat.Message, error)
}
