package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cristhian-fs/slack-clone/internal/gateway"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	eventBufferSize  = 64
)

// Stream is an identified gateway session delivering dispatch events.
type Stream struct {
	ws         *websocket.Conn
	sessionID  string
	workspaces []int64
	events     chan gateway.Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Connect dials the gateway, identifies with the client's token and waits
// for READY.
func (c *Client) Connect(ctx context.Context) (*Stream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, c.GatewayURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing gateway: %w", err)
	}

	s := &Stream{
		ws:     ws,
		events: make(chan gateway.Event, eventBufferSize),
		done:   make(chan struct{}),
	}
	interval, err := s.handshake(c.token)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}

	go s.readLoop()
	go s.heartbeat(interval)
	return s, nil
}

func (s *Stream) handshake(token string) (time.Duration, error) {
	_ = s.ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer s.ws.SetReadDeadline(time.Time{})

	hello, err := s.read()
	if err != nil {
		return 0, fmt.Errorf("reading hello: %w", err)
	}
	if hello.Op != gateway.OpHello {
		return 0, fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var hd gateway.HelloData
	if err := json.Unmarshal(hello.Data, &hd); err != nil || hd.HeartbeatInterval <= 0 {
		return 0, errors.New("gateway sent an invalid hello")
	}

	identify, _ := json.Marshal(gateway.IdentifyData{Token: token})
	if err := s.write(gateway.GatewayPayload{Op: gateway.OpIdentify, Data: identify}); err != nil {
		return 0, fmt.Errorf("sending identify: %w", err)
	}

	for {
		p, err := s.read()
		if err != nil {
			return 0, fmt.Errorf("waiting for ready: %w", err)
		}
		if p.Op != gateway.OpDispatch || p.Event == nil || *p.Event != gateway.EventReady {
			continue
		}
		var ready gateway.ReadyData
		if err := json.Unmarshal(p.Data, &ready); err != nil {
			return 0, fmt.Errorf("decoding ready: %w", err)
		}
		s.sessionID = ready.SessionID
		s.workspaces = ready.Workspaces
		return time.Duration(hd.HeartbeatInterval) * time.Millisecond, nil
	}
}

// SessionID is the id assigned by READY.
func (s *Stream) SessionID() string { return s.sessionID }

// Workspaces lists the workspaces whose events this stream receives.
func (s *Stream) Workspaces() []int64 { return s.workspaces }

// Events delivers dispatches in server order. It is closed when the stream
// ends.
func (s *Stream) Events() <-chan gateway.Event { return s.events }

// Close ends the session.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		s.writeMu.Unlock()
		err = s.ws.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer close(s.events)
	defer s.Close()

	for {
		p, err := s.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("gateway stream closed", "session", s.sessionID, "error", err)
			}
			return
		}

		switch p.Op {
		case gateway.OpDispatch:
			if p.Event == nil {
				continue
			}
			select {
			case s.events <- gateway.Event{Name: *p.Event, Data: p.Data}:
			case <-s.done:
				return
			}
		case gateway.OpHeartbeat:
			_ = s.write(gateway.GatewayPayload{Op: gateway.OpHeartbeatAck})
		case gateway.OpReconnect:
			slog.Info("gateway requested reconnect", "session", s.sessionID)
			return
		}
	}
}

func (s *Stream) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.write(gateway.GatewayPayload{Op: gateway.OpHeartbeat}); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Stream) read() (gateway.GatewayPayload, error) {
	var p gateway.GatewayPayload
	_, data, err := s.ws.ReadMessage()
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decoding payload: %w", err)
	}
	return p, nil
}

func (s *Stream) write(p gateway.GatewayPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.TextMessage, data)
}
