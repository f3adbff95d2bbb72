package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	heartbeatInterval = 41250 * time.Millisecond
	heartbeatTimeout  = 10 * time.Second
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	maxMessageSize    = 4096
	sendBufferSize    = 256

	// Clients only send heartbeats and the occasional IDENTIFY or RESUME.
	inboundRate  = rate.Limit(2)
	inboundBurst = 10

	// CloseNotAuthenticated is sent when a client does not identify in time.
	CloseNotAuthenticated = 4003
)

// identity is fixed once a connection has identified or resumed.
type identity struct {
	userID    int64
	sessionID string
}

// Connection is one client WebSocket. Outbound payloads are queued on send
// and written by the write pump; inbound ones are handled on the read pump.
type Connection struct {
	ws      *websocket.Conn
	send    chan []byte
	manager *Manager
	limiter *rate.Limiter
	id      atomic.Pointer[identity]

	closeOnce sync.Once
	done      chan struct{}

	lastHeartbeat atomic.Int64 // unix millis
}

func newConnection(ws *websocket.Conn, manager *Manager) *Connection {
	c := &Connection{
		ws:      ws,
		send:    make(chan []byte, sendBufferSize),
		manager: manager,
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
		done:    make(chan struct{}),
	}
	c.lastHeartbeat.Store(time.Now().UnixMilli())
	return c
}

// UserID is zero until the connection identifies.
func (c *Connection) UserID() int64 {
	if id := c.id.Load(); id != nil {
		return id.userID
	}
	return 0
}

// SessionID is empty until the connection identifies.
func (c *Connection) SessionID() string {
	if id := c.id.Load(); id != nil {
		return id.sessionID
	}
	return ""
}

func (c *Connection) identified() bool { return c.id.Load() != nil }

// identify binds the connection to a session. It reports false if the
// connection was already bound.
func (c *Connection) identify(userID int64, sessionID string) bool {
	return c.id.CompareAndSwap(nil, &identity{userID: userID, sessionID: sessionID})
}

func (c *Connection) logger() *slog.Logger {
	return slog.With("userID", c.UserID(), "session", c.SessionID())
}

// SendPayload marshals and queues a payload. A full queue drops it.
func (c *Connection) SendPayload(p GatewayPayload) {
	data, err := json.Marshal(p)
	if err != nil {
		c.logger().Error("gateway marshal failed", "op", p.Op, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger().Warn("gateway send buffer full, dropping payload", "op", p.Op)
	}
}

// sendDispatch queues a DISPATCH payload carrying a manager-wide sequence.
func (c *Connection) sendDispatch(seq int64, ev Event) {
	name := ev.Name
	c.SendPayload(GatewayPayload{
		Op:       OpDispatch,
		Data:     ev.Data,
		Sequence: &seq,
		Event:    &name,
	})
}

// Close terminates the connection.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// closeWith sends a close frame with code and reason, then closes.
func (c *Connection) closeWith(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	c.Close()
}

func (c *Connection) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger().Warn("gateway read failed", "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.logger().Warn("gateway client exceeded rate limit")
			c.closeWith(websocket.ClosePolicyViolation, "rate limited")
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

// writePump drains the send queue and sends heartbeats. A client that stops
// acknowledging heartbeats is disconnected.
func (c *Connection) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			last := time.UnixMilli(c.lastHeartbeat.Load())
			if time.Since(last) > heartbeatInterval+heartbeatTimeout {
				c.logger().Warn("gateway heartbeat timeout")
				return
			}
			c.SendPayload(GatewayPayload{Op: OpHeartbeat})

		case <-c.done:
			return
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	var payload GatewayPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger().Warn("gateway payload invalid", "error", err)
		return
	}

	switch payload.Op {
	case OpHeartbeat:
		c.lastHeartbeat.Store(time.Now().UnixMilli())
		c.SendPayload(GatewayPayload{Op: OpHeartbeatAck})

	case OpHeartbeatAck:
		c.lastHeartbeat.Store(time.Now().UnixMilli())

	case OpIdentify, OpResume:
		if c.identified() {
			c.logger().Warn("gateway session already identified", "op", payload.Op)
			return
		}
		if payload.Op == OpIdentify {
			c.manager.handleIdentify(c, payload.Data)
		} else {
			c.manager.handleResume(c, payload.Data)
		}
	}
}
