package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lifeasacraft/backend/internal/domain/chat"
	"github.com/lifeasacraft/backend/internal/domain/project"
)

// ProjectAPI is the slice of the project service the REST layer needs.
type ProjectAPI interface {
	List(ctx context.Context) ([]project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, []chat.Message, error)
	Create(ctx context.Context, req *project.CreateRequest) (*project.Project, error)
	AppendMessage(ctx context.Context, projectID string, req *chat.CreateRequest) (*chat.Message, error)
}

// Handlers bundles the dependencies of all REST handlers.
type Handlers struct {
	Projects ProjectAPI
}

// projectWithMessages is the GET /projects/{id} response shape.
type projectWithMessages struct {
	project.Project
	Messages []chat.Message `json:"messages"`
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "projects not found")
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	proj, messages, err := h.Projects.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, projectWithMessages{Project: *proj, Messages: messages})
}

// CreateProject handles POST /api/v1/projects.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.CreateRequest](w, r)
	if !ok {
		return
	}

	created, err := h.Projects.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "parent project not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// AppendMessage handles POST /api/v1/projects/{id}/messages.
func (h *Handlers) AppendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := readJSON[chat.CreateRequest](w, r)
	if !ok {
		return
	}

	stored, err := h.Projects.AppendMessage(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
