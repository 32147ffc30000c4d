package service

import (
	"context"
	"fmt"

	"github.com/lifeasacraft/backend/internal/domain/chat"
	"github.com/lifeasacraft/backend/internal/domain/project"
	"github.com/lifeasacraft/backend/internal/port/database"
)

// ProjectService exposes project CRUD and REST-side message appends.
type ProjectService struct {
	db database.Store
}

// NewProjectService creates a ProjectService.
func NewProjectService(db database.Store) *ProjectService {
	return &ProjectService{db: db}
}

// List returns all projects, newest first, without message bodies.
func (s *ProjectService) List(ctx context.Context) ([]project.Project, error) {
	return s.db.ListProjects(ctx)
}

// Get returns a project together with its ordered message history.
func (s *ProjectService) Get(ctx context.Context, id string) (*project.Project, []chat.Message, error) {
	proj, err := s.db.GetProject(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.db.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	return proj, messages, nil
}

// Create validates and persists a new project. A referenced parent project
// must exist.
func (s *ProjectService) Create(ctx context.Context, req *project.CreateRequest) (*project.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ParentProjectID != "" {
		if _, err := s.db.GetProject(ctx, req.ParentProjectID); err != nil {
			return nil, fmt.Errorf("parent project: %w", err)
		}
	}
	return s.db.CreateProject(ctx, req)
}

// AppendMessage appends a message to a project over REST. The project must
// exist; the store computes the assistant-facing view.
func (s *ProjectService) AppendMessage(ctx context.Context, projectID string, req *chat.CreateRequest) (*chat.Message, error) {
	if _, err := s.db.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.db.AppendMessage(ctx, projectID, req)
}
