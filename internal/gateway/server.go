package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// HandleWebSocket handles GET /gateway by upgrading to WebSocket.
func (m *Manager) HandleWebSocket(c echo.Context) error {
	ws, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("gateway upgrade failed", "remote", c.RealIP(), "error", err)
		return nil
	}
	m.serve(ws)
	return nil
}

// serve sends HELLO, starts the connection pumps and closes the connection
// if it has not identified within the identify timeout.
func (m *Manager) serve(ws *websocket.Conn) {
	conn := newConnection(ws, m)
	conn.SendPayload(GatewayPayload{
		Op: OpHello,
		Data: mustMarshal(HelloData{
			HeartbeatInterval: int(heartbeatInterval.Milliseconds()),
		}),
	})

	go conn.writePump()
	go conn.readPump()

	timer := time.AfterFunc(m.identifyTimeout, func() {
		if !conn.identified() {
			slog.Debug("gateway client did not identify", "remote", ws.RemoteAddr().String())
			conn.closeWith(CloseNotAuthenticated, "identify timeout")
		}
	})
	go func() {
		<-conn.done
		timer.Stop()
	}()
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and, unless origins is empty or contains "*", only the listed
// origins.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

// mustMarshal marshals v to json.RawMessage, panicking on error.
// Only for statically-known types that cannot fail.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("gateway: mustMarshal: " + err.Error())
	}
	return data
}
