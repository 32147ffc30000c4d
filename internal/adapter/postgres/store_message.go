package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lifeasacraft/backend/internal/domain"
	"github.com/lifeasacraft/backend/internal/domain/chat"
)

// AppendMessage assigns an identifier, computes the assistant-facing content
// view and persists the message. The returned record is canonical: it carries
// both content views exactly as stored.
func (s *Store) AppendMessage(ctx context.Context, projectID string, req *chat.CreateRequest) (*chat.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params, err := paramsJSON(req.AgentParams)
	if err != nil {
		return nil, err
	}

	view := chat.AssistantView(req.AgentRole, req.AgentName, req.Content, req.Timestamp)

	var (
		m        chat.Message
		rawParam []byte
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (id, project_id, content, content_assistant_view,
		                       agent_role, agent_name, agent_model, agent_params, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, project_id, content, content_assistant_view,
		           agent_role, agent_name, agent_model, agent_params, timestamp`,
		uuid.NewString(), projectID, req.Content, view,
		req.AgentRole, req.AgentName, req.AgentModel, params, req.Timestamp,
	).Scan(&m.ID, &m.ProjectID, &m.Content, &m.AssistantView,
		&m.AgentRole, &m.AgentName, &m.AgentModel, &rawParam, &m.Timestamp)
	if err != nil {
		// A missing project surfaces as an FK violation on insert.
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("append message to project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("append message: %w", err)
	}

	if err := unmarshalParams(rawParam, &m.AgentParams); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a project's messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, projectID string) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, content, content_assistant_view,
		        agent_role, agent_name, agent_model, agent_params, timestamp
		 FROM messages WHERE project_id = $1 ORDER BY inserted_at ASC, id ASC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []chat.Message
	for rows.Next() {
		var (
			m        chat.Message
			rawParam []byte
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Content, &m.AssistantView,
			&m.AgentRole, &m.AgentName, &m.AgentModel, &rawParam, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := unmarshalParams(rawParam, &m.AgentParams); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func unmarshalParams(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal agent_params: %w", err)
	}
	return nil
}

// isForeignKeyViolation reports whether err is SQLSTATE 23503
// (foreign_key_violation).
func isForeignKeyViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var s sqlState
	return errors.As(err, &s) && s.SQLState() == "23503"
}
