package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/metrics"
)

const (
	replayBufferSize       = 1000
	defaultIdentifyTimeout = 10 * time.Second
)

// WorkspaceLister resolves the workspaces a user belongs to.
type WorkspaceLister interface {
	GetWorkspaceIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

// Manager manages all active WebSocket connections and event routing.
type Manager struct {
	mu            sync.RWMutex
	connections   map[int64]*Connection    // userID → connection
	subscriptions map[int64]map[int64]bool // workspaceID → set of userIDs
	sessions      map[string]*Connection   // sessionID → connection

	// Sequences are assigned manager-wide so a RESUME can name a single
	// position; the ring buffer keeps recent workspace events for replay.
	replayMu sync.Mutex
	seq      int64
	replay   *ringBuffer

	tokens          *auth.TokenService
	workspaces      WorkspaceLister
	upgrader        websocket.Upgrader
	identifyTimeout time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAllowedOrigins restricts browser connections to the given origins.
// "*" or no origins at all accepts any origin.
func WithAllowedOrigins(origins ...string) ManagerOption {
	return func(m *Manager) { m.upgrader.CheckOrigin = originChecker(origins) }
}

// WithIdentifyTimeout sets how long a new connection may stay
// unidentified before it is closed.
func WithIdentifyTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.identifyTimeout = d }
}

// NewManager creates a new gateway Manager.
func NewManager(tokens *auth.TokenService, workspaces WorkspaceLister, opts ...ManagerOption) *Manager {
	m := &Manager{
		connections:   make(map[int64]*Connection),
		subscriptions: make(map[int64]map[int64]bool),
		sessions:      make(map[string]*Connection),
		replay:        newRingBuffer(replayBufferSize),
		tokens:        tokens,
		workspaces:    workspaces,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(nil),
		},
		identifyTimeout: defaultIdentifyTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// register adds a connection to the manager.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Disconnect existing connection for this user.
	if old, ok := m.connections[c.UserID()]; ok {
		old.SendPayload(GatewayPayload{Op: OpReconnect})
		old.Close()
		delete(m.sessions, old.SessionID())
	} else {
		metrics.GatewayConnections.Inc()
	}

	m.connections[c.UserID()] = c
	m.sessions[c.SessionID()] = c
}

// unregister removes a connection from the manager and cleans up subscriptions.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.connections[c.UserID()]; ok && existing == c {
		delete(m.connections, c.UserID())
		metrics.GatewayConnections.Dec()

		for workspaceID, members := range m.subscriptions {
			delete(members, c.UserID())
			if len(members) == 0 {
				delete(m.subscriptions, workspaceID)
			}
		}
	}

	if m.sessions[c.SessionID()] == c {
		delete(m.sessions, c.SessionID())
	}
}

// subscribe adds a user to a workspace's event subscription.
func (m *Manager) subscribe(userID, workspaceID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[workspaceID] == nil {
		m.subscriptions[workspaceID] = make(map[int64]bool)
	}
	m.subscriptions[workspaceID][userID] = true
}

// nextSequence reserves the next sequence number, recording the event for
// replay when it belongs to a workspace.
func (m *Manager) nextSequence(workspaceID int64, ev Event) int64 {
	m.replayMu.Lock()
	defer m.replayMu.Unlock()

	m.seq++
	if workspaceID != 0 {
		m.replay.add(sequencedEvent{Sequence: m.seq, WorkspaceID: workspaceID, Event: ev})
	}
	return m.seq
}

// DispatchToUser sends a dispatch event to a specific connected user.
func (m *Manager) DispatchToUser(userID int64, event string, data any) {
	m.mu.RLock()
	c, ok := m.connections[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshal event error", "event", event, "error", err)
		return
	}
	ev := Event{Name: event, Data: raw}
	c.sendDispatch(m.nextSequence(0, ev), ev)
}

// DispatchToWorkspace sends a dispatch event to all users subscribed to a
// workspace and records it for replay.
func (m *Manager) DispatchToWorkspace(workspaceID int64, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshal event error", "event", event, "error", err)
		return
	}
	ev := Event{Name: event, Data: raw}
	seq := m.nextSequence(workspaceID, ev)
	metrics.GatewayEvents.WithLabelValues(event).Inc()

	m.mu.RLock()
	members := m.subscriptions[workspaceID]
	conns := make([]*Connection, 0, len(members))
	for userID := range members {
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.sendDispatch(seq, ev)
	}
}

// authenticate validates the token and loads the user's workspaces.
func (m *Manager) authenticate(token string) (int64, []int64, bool) {
	claims, err := m.tokens.ValidateAccessToken(token)
	if err != nil {
		slog.Warn("invalid gateway token", "error", err)
		return 0, nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	workspaceIDs, err := m.workspaces.GetWorkspaceIDsByUser(ctx, claims.UserID)
	if err != nil {
		slog.Error("failed to get workspaces for user", "userID", claims.UserID, "error", err)
		return 0, nil, false
	}
	if workspaceIDs == nil {
		workspaceIDs = []int64{}
	}
	return claims.UserID, workspaceIDs, true
}

// handleIdentify processes an IDENTIFY payload from a client.
func (m *Manager) handleIdentify(c *Connection, data json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(data, &identify); err != nil {
		slog.Error("invalid identify data", "error", err)
		c.Close()
		return
	}

	userID, workspaceIDs, ok := m.authenticate(identify.Token)
	if !ok {
		c.Close()
		return
	}

	if !c.identify(userID, uuid.NewString()) {
		return
	}
	m.register(c)
	for _, id := range workspaceIDs {
		m.subscribe(c.UserID(), id)
	}

	ready := Event{Name: EventReady, Data: mustMarshal(ReadyData{
		SessionID:  c.SessionID(),
		UserID:     c.UserID(),
		Workspaces: workspaceIDs,
	})}
	c.sendDispatch(m.nextSequence(0, ready), ready)
	slog.Debug("gateway identified", "userID", c.UserID(), "session", c.SessionID())
}

// handleResume processes a RESUME payload to replay missed events.
func (m *Manager) handleResume(c *Connection, data json.RawMessage) {
	var resume ResumeData
	if err := json.Unmarshal(data, &resume); err != nil {
		slog.Error("invalid resume data", "error", err)
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	userID, workspaceIDs, ok := m.authenticate(resume.Token)
	if !ok {
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	if !c.identify(userID, resume.SessionID) {
		return
	}
	m.register(c)

	member := make(map[int64]bool, len(workspaceIDs))
	for _, id := range workspaceIDs {
		member[id] = true
		m.subscribe(c.UserID(), id)
	}

	m.replayMu.Lock()
	missed := m.replay.since(resume.Sequence, member)
	m.replayMu.Unlock()

	for _, ev := range missed {
		c.sendDispatch(ev.Sequence, ev.Event)
	}
}

// sequencedEvent pairs an event with its sequence number and workspace.
type sequencedEvent struct {
	Sequence    int64
	WorkspaceID int64
	Event
}

// ringBuffer is a fixed-size circular buffer for replay events.
type ringBuffer struct {
	events []sequencedEvent
	size   int
	pos    int
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		events: make([]sequencedEvent, size),
		size:   size,
	}
}

func (rb *ringBuffer) add(ev sequencedEvent) {
	rb.events[rb.pos] = ev
	rb.pos = (rb.pos + 1) % rb.size
	if rb.pos == 0 {
		rb.full = true
	}
}

// since returns, oldest first, the events after afterSeq in the given
// workspaces. A nil set matches every workspace.
func (rb *ringBuffer) since(afterSeq int64, workspaces map[int64]bool) []sequencedEvent {
	var result []sequencedEvent
	count := rb.size
	if !rb.full {
		count = rb.pos
	}

	start := 0
	if rb.full {
		start = rb.pos
	}

	for i := 0; i < count; i++ {
		ev := rb.events[(start+i)%rb.size]
		if ev.Sequence <= afterSeq {
			continue
		}
		if workspaces != nil && !workspaces[ev.WorkspaceID] {
			continue
		}
		result = append(result, ev)
	}
	return result
}
