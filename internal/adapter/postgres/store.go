package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lifeasacraft/backend/internal/domain"
	"github.com/lifeasacraft/backend/internal/domain/project"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	var p project.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, intention, COALESCE(parent_project_id, ''), COALESCE(current_agent_id, ''), created_at
		 FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Intention, &p.ParentProjectID, &p.CurrentAgentID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, intention, COALESCE(parent_project_id, ''), COALESCE(current_agent_id, ''), created_at
		 FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var p project.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Intention, &p.ParentProjectID, &p.CurrentAgentID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, req *project.CreateRequest) (*project.Project, error) {
	var p project.Project
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (id, title, intention, parent_project_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, title, intention, COALESCE(parent_project_id, ''), COALESCE(current_agent_id, ''), created_at`,
		uuid.NewString(), req.Title, req.Intention, nullIfEmpty(req.ParentProjectID),
	).Scan(&p.ID, &p.Title, &p.Intention, &p.ParentProjectID, &p.CurrentAgentID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

// nullIfEmpty returns nil for empty strings (for nullable FK columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// paramsJSON marshals agent params for a JSONB column; nil maps stay SQL NULL.
func paramsJSON(params map[string]any) ([]byte, error) {
	if params == nil {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal agent_params: %w", err)
	}
	return data, nil
}
