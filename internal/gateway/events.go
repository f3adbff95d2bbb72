package gateway

import (
	"encoding/json"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

// Op codes for gateway payloads.
const (
	OpDispatch     = 0
	OpHeartbeat    = 1
	OpIdentify     = 2
	OpResume       = 6
	OpReconnect    = 7
	OpHello        = 10
	OpHeartbeatAck = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady           = "READY"
	EventMessageCreate   = "MESSAGE_CREATE"
	EventMessageUpdate   = "MESSAGE_UPDATE"
	EventMessageDelete   = "MESSAGE_DELETE"
	EventMessageReaction = "MESSAGE_REACTION"

	EventConversationCreate = "CONVERSATION_CREATE"
)

// GatewayPayload is the envelope for all gateway messages.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// ResumeData is sent by the client in an Op 6 RESUME.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY.
type ReadyData struct {
	SessionID  string  `json:"session_id"`
	UserID     int64   `json:"user_id,string"`
	Workspaces []int64 `json:"workspaces"`
}

// Event is a dispatch event ready to broadcast.
type Event struct {
	Name string
	Data json.RawMessage
}

// MessageDeleteData is the payload for MESSAGE_DELETE events.
type MessageDeleteData struct {
	ID              int64  `json:"id,string"`
	ChannelID       int64  `json:"channel_id,string,omitempty"`
	ConversationID  int64  `json:"conversation_id,string,omitempty"`
	ParentMessageID *int64 `json:"parent_message_id,string,omitempty"`
}

// MessageReactionData is the payload for MESSAGE_REACTION events. Reactions
// holds the complete aggregate for the message after the change.
type MessageReactionData struct {
	MessageID       int64                  `json:"message_id,string"`
	ChannelID       int64                  `json:"channel_id,string,omitempty"`
	ConversationID  int64                  `json:"conversation_id,string,omitempty"`
	ParentMessageID *int64                 `json:"parent_message_id,string,omitempty"`
	Reactions       []models.ReactionGroup `json:"reactions"`
}
