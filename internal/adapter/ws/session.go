package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/lifeasacraft/backend/internal/adapter/otel"
	"github.com/lifeasacraft/backend/internal/domain"
	"github.com/lifeasacraft/backend/internal/domain/chat"
	"github.com/lifeasacraft/backend/internal/domain/project"
)

// Orchestrator drives one chat turn: persistence, provider call and the
// broadcast of the generated reply. Implemented by service.ChatService.
type Orchestrator interface {
	// Bind resolves the target project and its message history.
	Bind(ctx context.Context, projectID string) (*project.Project, []chat.Message, error)

	// AppendUserMessage persists an inbound message and returns the
	// canonical stored record.
	AppendUserMessage(ctx context.Context, projectID string, req chat.CreateRequest) (*chat.Message, error)

	// Reply generates, persists and broadcasts the assistant reply for the
	// given conversation history.
	Reply(ctx context.Context, projectID string, history []chat.Message) (*chat.Message, error)
}

// Handler upgrades chat connections and runs one session loop per connection.
type Handler struct {
	hub     *Hub
	chat    Orchestrator
	metrics *otel.Metrics
}

// NewHandler creates a chat session handler. metrics may be nil.
func NewHandler(hub *Hub, chat Orchestrator, metrics *otel.Metrics) *Handler {
	return &Handler{hub: hub, chat: chat, metrics: metrics}
}

// HandleChat serves GET /chat/{id}/ws. Each accepted connection runs its own
// session goroutine; sessions on the same project interleave freely — there
// is deliberately no per-project turn lock.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "project_id", projectID, "error", err)
		return
	}

	ctx := r.Context()
	c := &wsConn{ws: sock}

	proj, history, err := h.chat.Bind(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.send(ctx, c, NewError(CodeNotFound, fmt.Sprintf("project with ID %s not found", projectID)))
			_ = c.Close(websocket.StatusNormalClosure, "project not found")
			return
		}
		slog.Error("chat bind failed", "project_id", projectID, "error", err)
		_ = c.Close(websocket.StatusInternalError, "bind failed")
		return
	}

	slog.Info("chat session started", "project_id", projectID, "title", proj.Title)
	defer slog.Info("chat session ended", "project_id", projectID)

	h.serve(ctx, projectID, c, history)
}

// serve registers the connection and runs the turn loop until the peer
// disconnects or a fatal turn error ends the session.
func (h *Handler) serve(ctx context.Context, projectID string, c sessionConn, history []chat.Message) {
	h.hub.Register(projectID, c)
	defer h.hub.Unregister(projectID, c)

	if h.metrics != nil {
		h.metrics.ConnectionsActive.Add(ctx, 1)
		defer h.metrics.ConnectionsActive.Add(ctx, -1)
	}

	for {
		data, err := c.Read(ctx)
		if err != nil {
			// Normal disconnect path.
			_ = c.Close(websocket.StatusNormalClosure, "")
			return
		}

		var req chat.CreateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			// A malformed payload ends the session: one structured error,
			// then close.
			h.send(ctx, c, NewError(CodeBadRequest, "malformed message payload"))
			_ = c.Close(websocket.StatusUnsupportedData, "malformed payload")
			return
		}

		stored, err := h.chat.AppendUserMessage(ctx, projectID, req)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				h.send(ctx, c, NewError(CodeBadRequest, err.Error()))
				_ = c.Close(websocket.StatusUnsupportedData, "invalid message")
				return
			}
			slog.Error("persist inbound message failed", "project_id", projectID, "error", err)
			_ = c.Close(websocket.StatusInternalError, "persist failed")
			return
		}
		history = append(history, *stored)

		// Acknowledge the sender only. A closed connection here means the
		// rest of the turn is pointless.
		if res := h.send(ctx, c, NewReceipt(time.Now().UTC())); res == WriteClosed {
			return
		}

		reply, err := h.chat.Reply(ctx, projectID, history)
		if err != nil {
			slog.Error("chat turn failed", "project_id", projectID, "error", err)
			_ = c.Close(websocket.StatusInternalError, "turn failed")
			return
		}
		history = append(history, *reply)
	}
}

// send marshals and writes a payload to one connection, logging transient
// failures. The returned WriteResult tells the caller whether the peer is gone.
func (h *Handler) send(ctx context.Context, c Conn, payload any) WriteResult {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws payload", "error", err)
		return WriteFailed
	}
	res, err := c.Write(ctx, data)
	if res == WriteFailed {
		slog.Warn("ws send failed", "error", err)
	}
	return res
}
