package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/lifeasacraft/backend/internal/domain"
	"github.com/lifeasacraft/backend/internal/domain/chat"
	"github.com/lifeasacraft/backend/internal/domain/project"
)

// fakeOrch is an in-memory Orchestrator that broadcasts replies through the
// hub the way the real chat service does.
type fakeOrch struct {
	hub       *Hub
	project   *project.Project
	history   []chat.Message
	replyText string

	mu       sync.Mutex
	appended []chat.Message
	contexts [][]chat.Message
}

func (f *fakeOrch) Bind(_ context.Context, projectID string) (*project.Project, []chat.Message, error) {
	if f.project == nil || f.project.ID != projectID {
		return nil, nil, fmt.Errorf("get project %s: %w", projectID, domain.ErrNotFound)
	}
	return f.project, append([]chat.Message(nil), f.history...), nil
}

func (f *fakeOrch) AppendUserMessage(_ context.Context, projectID string, req chat.CreateRequest) (*chat.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m := chat.Message{
		ID:            fmt.Sprintf("u%d", len(f.appended)+1),
		Content:       req.Content,
		AssistantView: chat.AssistantView(req.AgentRole, req.AgentName, req.Content, req.Timestamp),
		AgentName:     req.AgentName,
		AgentRole:     req.AgentRole,
		AgentModel:    req.AgentModel,
		ProjectID:     projectID,
		Timestamp:     req.Timestamp,
	}
	f.mu.Lock()
	f.appended = append(f.appended, m)
	f.mu.Unlock()
	return &m, nil
}

func (f *fakeOrch) Reply(ctx context.Context, projectID string, history []chat.Message) (*chat.Message, error) {
	f.mu.Lock()
	f.contexts = append(f.contexts, append([]chat.Message(nil), history...))
	f.mu.Unlock()

	m := chat.Message{
		ID:         "a1",
		Content:    f.replyText,
		AgentName:  "chiefofstaff",
		AgentRole:  chat.RoleAssistant,
		AgentModel: "o3-mini",
		ProjectID:  projectID,
		Timestamp:  time.Now().UTC(),
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	f.hub.Broadcast(ctx, projectID, payload)
	return &m, nil
}

func startChatServer(t *testing.T, hub *Hub, orch Orchestrator) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/chat/{id}/ws", NewHandler(hub, orch, nil).HandleChat)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, projectID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/" + projectID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func readJSON(t *testing.T, ctx context.Context, conn *websocket.Conn, dst any) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}

func validRequest(content string) chat.CreateRequest {
	return chat.CreateRequest{
		Content:    content,
		AgentName:  "kevin",
		AgentRole:  chat.RoleUser,
		AgentModel: "user",
		Timestamp:  time.Now().UTC(),
	}
}

func TestSessionProjectNotFound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	srv := startChatServer(t, hub, &fakeOrch{hub: hub})

	conn := dial(t, ctx, srv, "ghost")
	defer conn.CloseNow()

	var errPayload ErrorPayload
	readJSON(t, ctx, conn, &errPayload)

	if errPayload.Type != "error" || errPayload.Code != CodeNotFound {
		t.Fatalf("unexpected payload: %+v", errPayload)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected connection to be closed after error payload")
	}
	if got := hub.ConnectionCount("ghost"); got != 0 {
		t.Fatalf("registry must stay empty for unknown project, got %d", got)
	}
}

func TestSessionFullTurn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	prior := chat.Message{
		ID: "a0", Content: "how can I help?", AssistantView: "how can I help?",
		AgentName: "chiefofstaff", AgentRole: chat.RoleAssistant, AgentModel: "o3-mini",
		ProjectID: "p1", Timestamp: time.Now().UTC(),
	}
	orch := &fakeOrch{
		hub:       hub,
		project:   &project.Project{ID: "p1", Title: "support"},
		history:   []chat.Message{prior},
		replyText: "tracked it down",
	}
	srv := startChatServer(t, hub, orch)

	conn := dial(t, ctx, srv, "p1")
	defer conn.CloseNow()

	req, _ := json.Marshal(validRequest("order 123456"))
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var receipt Receipt
	readJSON(t, ctx, conn, &receipt)
	if receipt.Type != "receipt" || receipt.Status != "received" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	var reply chat.Message
	readJSON(t, ctx, conn, &reply)
	if reply.AgentRole != chat.RoleAssistant || reply.Content != "tracked it down" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	// The provider context is the prior history plus the just-persisted
	// user message, in order.
	orch.mu.Lock()
	defer orch.mu.Unlock()
	if len(orch.contexts) != 1 {
		t.Fatalf("expected one turn, got %d", len(orch.contexts))
	}
	turnCtx := orch.contexts[0]
	if len(turnCtx) != 2 || turnCtx[0].ID != "a0" || turnCtx[1].Content != "order 123456" {
		t.Fatalf("unexpected turn context: %+v", turnCtx)
	}
	if !strings.Contains(turnCtx[1].AssistantView, "<from>kevin</from>") {
		t.Fatalf("user message missing wrapped view: %q", turnCtx[1].AssistantView)
	}
}

func TestSessionBroadcastReachesSiblings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	orch := &fakeOrch{
		hub:       hub,
		project:   &project.Project{ID: "p1", Title: "support"},
		replyText: "hello both",
	}
	srv := startChatServer(t, hub, orch)

	connA := dial(t, ctx, srv, "p1")
	defer connA.CloseNow()
	connB := dial(t, ctx, srv, "p1")
	defer connB.CloseNow()

	// Wait until both sessions are registered.
	for start := time.Now(); hub.ConnectionCount("p1") < 2; {
		if time.Since(start) > 2*time.Second {
			t.Fatal("sessions did not register in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req, _ := json.Marshal(validRequest("ping"))
	if err := connA.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A gets the receipt first, then the broadcast; B only the broadcast.
	var receipt Receipt
	readJSON(t, ctx, connA, &receipt)

	var replyA, replyB chat.Message
	readJSON(t, ctx, connA, &replyA)
	readJSON(t, ctx, connB, &replyB)

	if replyA.Content != "hello both" || replyB.Content != "hello both" {
		t.Fatalf("broadcast mismatch: A=%+v B=%+v", replyA, replyB)
	}
}

// fakeSessionConn scripts the reads and write results of one session peer.
type fakeSessionConn struct {
	reads   [][]byte
	results []WriteResult
	writes  [][]byte
	closed  bool
}

func (f *fakeSessionConn) Read(context.Context) ([]byte, error) {
	if len(f.reads) == 0 {
		return nil, fmt.Errorf("peer gone")
	}
	data := f.reads[0]
	f.reads = f.reads[1:]
	return data, nil
}

func (f *fakeSessionConn) Write(_ context.Context, payload []byte) (WriteResult, error) {
	res := WriteOK
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	}
	if res != WriteOK {
		return res, fmt.Errorf("scripted failure")
	}
	f.writes = append(f.writes, payload)
	return WriteOK, nil
}

func (f *fakeSessionConn) Close(websocket.StatusCode, string) error {
	f.closed = true
	return nil
}

func TestSessionReceiptClosedEndsTurn(t *testing.T) {
	hub := NewHub()
	orch := &fakeOrch{hub: hub, project: &project.Project{ID: "p1"}}
	h := NewHandler(hub, orch, nil)

	req, _ := json.Marshal(validRequest("hello"))
	conn := &fakeSessionConn{
		reads:   [][]byte{req},
		results: []WriteResult{WriteClosed}, // the receipt write finds the peer gone
	}

	h.serve(context.Background(), "p1", conn, nil)

	// The inbound message was persisted before the ack, but the turn stops
	// there: no reply is generated for a peer that can no longer hear it.
	if len(orch.appended) != 1 {
		t.Fatalf("expected inbound message persisted, got %d", len(orch.appended))
	}
	if len(orch.contexts) != 0 {
		t.Fatalf("reply must not run after a closed receipt write, got %d turns", len(orch.contexts))
	}
	if got := hub.ConnectionCount("p1"); got != 0 {
		t.Fatalf("expected connection unregistered, count %d", got)
	}
}

func TestSessionMalformedPayloadCloses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	orch := &fakeOrch{hub: hub, project: &project.Project{ID: "p1"}}
	srv := startChatServer(t, hub, orch)

	conn := dial(t, ctx, srv, "p1")
	defer conn.CloseNow()

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var errPayload ErrorPayload
	readJSON(t, ctx, conn, &errPayload)
	if errPayload.Code != CodeBadRequest {
		t.Fatalf("unexpected payload: %+v", errPayload)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected connection closed after malformed payload")
	}
}

func TestSessionInvalidRoleCloses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	orch := &fakeOrch{hub: hub, project: &project.Project{ID: "p1"}}
	srv := startChatServer(t, hub, orch)

	conn := dial(t, ctx, srv, "p1")
	defer conn.CloseNow()

	req := validRequest("hi")
	req.AgentRole = "moderator"
	data, _ := json.Marshal(req)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	var errPayload ErrorPayload
	readJSON(t, ctx, conn, &errPayload)
	if errPayload.Code != CodeBadRequest {
		t.Fatalf("unexpected payload: %+v", errPayload)
	}
}
