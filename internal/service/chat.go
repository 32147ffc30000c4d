// Package service holds the application services wiring ports together.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lifeasacraft/backend/internal/adapter/otel"
	"github.com/lifeasacraft/backend/internal/config"
	"github.com/lifeasacraft/backend/internal/domain/chat"
	"github.com/lifeasacraft/backend/internal/domain/project"
	"github.com/lifeasacraft/backend/internal/port/broadcast"
	"github.com/lifeasacraft/backend/internal/port/cache"
	"github.com/lifeasacraft/backend/internal/port/completion"
	"github.com/lifeasacraft/backend/internal/port/database"
)

// ChatService orchestrates one conversation turn: persist the inbound
// message, build the provider context, call the completion provider, persist
// the reply and broadcast it to the project's connections.
type ChatService struct {
	db  database.Store
	llm completion.Provider
	hub broadcast.Broadcaster

	agentName string
	model     string

	cache      cache.Cache
	projectTTL time.Duration
	metrics    *otel.Metrics
}

// NewChatService creates a ChatService with its required collaborators.
func NewChatService(db database.Store, llm completion.Provider, hub broadcast.Broadcaster, cfg config.Chat) *ChatService {
	return &ChatService{
		db:        db,
		llm:       llm,
		hub:       hub,
		agentName: cfg.AgentName,
		model:     cfg.Model,
	}
}

// SetCache attaches a read-through cache for project lookups on bind.
func (s *ChatService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.projectTTL = ttl
}

// SetMetrics attaches metric instruments.
func (s *ChatService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Bind resolves the target project and loads its message history for the
// session's local context cache.
func (s *ChatService) Bind(ctx context.Context, projectID string) (*project.Project, []chat.Message, error) {
	proj, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.db.ListMessages(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	return proj, history, nil
}

// AppendUserMessage persists an inbound message and returns the canonical
// stored record, assistant view included.
func (s *ChatService) AppendUserMessage(ctx context.Context, projectID string, req chat.CreateRequest) (*chat.Message, error) {
	stored, err := s.db.AppendMessage(ctx, projectID, &req)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.MessagesStored.Add(ctx, 1)
	}
	return stored, nil
}

// Reply generates the assistant reply for the given history, persists it and
// broadcasts its literal-view serialized form to every connection registered
// for the project. The history must already contain the inbound message that
// triggered this turn.
func (s *ChatService) Reply(ctx context.Context, projectID string, history []chat.Message) (*chat.Message, error) {
	providerCtx := make([]completion.Message, 0, len(history))
	for _, m := range history {
		content := m.AssistantView
		if content == "" {
			content = m.Content
		}
		providerCtx = append(providerCtx, completion.Message{
			Role:    m.AgentRole,
			Content: content,
		})
	}

	start := time.Now()
	text, err := s.llm.Complete(ctx, s.model, providerCtx)
	if s.metrics != nil {
		s.metrics.CompletionDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.TurnsFailed.Add(ctx, 1)
		}
		return nil, fmt.Errorf("completion: %w", err)
	}
	if text == "" {
		slog.Warn("provider returned empty completion", "project_id", projectID, "model", s.model)
		text = chat.Placeholder
	}

	stored, err := s.db.AppendMessage(ctx, projectID, &chat.CreateRequest{
		Content:    text,
		AgentName:  s.agentName,
		AgentRole:  chat.RoleAssistant,
		AgentModel: s.model,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.TurnsFailed.Add(ctx, 1)
		}
		return nil, fmt.Errorf("store reply: %w", err)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	s.hub.Broadcast(ctx, projectID, payload)

	if s.metrics != nil {
		s.metrics.MessagesStored.Add(ctx, 1)
		s.metrics.BroadcastsSent.Add(ctx, 1)
		s.metrics.TurnsCompleted.Add(ctx, 1)
	}
	return stored, nil
}

// getProject reads through the project cache when one is attached. Stale
// titles are acceptable for the TTL window; message reads never go through
// the cache.
func (s *ChatService) getProject(ctx context.Context, projectID string) (*project.Project, error) {
	key := "project:" + projectID

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var p project.Project
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		}
	}

	proj, err := s.db.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(proj); err == nil {
			_ = s.cache.Set(ctx, key, data, s.projectTTL)
		}
	}
	return proj, nil
}
