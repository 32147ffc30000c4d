// Package project holds the project domain model.
package project

import (
	"fmt"
	"time"

	"github.com/lifeasacraft/backend/internal/domain"
)

// Project is a conversation scope. Projects form a tree: each project has at
// most one parent and any number of children.
type Project struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Intention       string    `json:"intention"`
	ParentProjectID string    `json:"parent_project_id,omitempty"`
	CurrentAgentID  string    `json:"current_agent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateRequest is the request body for creating a project.
type CreateRequest struct {
	Title           string `json:"title"`
	Intention       string `json:"intention"`
	ParentProjectID string `json:"parent_project_id,omitempty"`
}

// Validate checks the request against the domain invariants.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Intention == "" {
		return fmt.Errorf("%w: intention is required", domain.ErrValidation)
	}
	return nil
}
