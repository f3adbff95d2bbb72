package models

import (
	"time"

	"github.com/cristhian-fs/slack-clone/internal/snowflake"
)

// Message is a row of the messages table. Body is the serialized rich-text
// document and is passed through untouched.
type Message struct {
	ID              int64      `json:"id,string"`
	WorkspaceID     int64      `json:"workspace_id,string"`
	ChannelID       int64      `json:"channel_id,string,omitempty"`
	ConversationID  int64      `json:"conversation_id,string,omitempty"`
	ParentMessageID *int64     `json:"parent_message_id,string,omitempty"`
	MemberID        int64      `json:"member_id,string"`
	Body            string     `json:"body"`
	ImageID         *string    `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// MessageWithAuthor is a message as delivered to clients: author details are
// denormalized, reactions aggregated, and top-level messages carry a thread
// summary when they have replies.
type MessageWithAuthor struct {
	Message
	AuthorName  string          `json:"author_name"`
	AuthorImage *string         `json:"author_image,omitempty"`
	Image       *string         `json:"image,omitempty"`
	ImageKey    *string         `json:"-"`
	Reactions   []ReactionGroup `json:"reactions"`
	Thread      *ThreadSummary  `json:"thread,omitempty"`
}

// ThreadSummary describes the replies to a top-level message.
type ThreadSummary struct {
	Count       int       `json:"count"`
	LastImage   *string   `json:"last_image,omitempty"`
	LastName    string    `json:"last_name"`
	LastReplyAt time.Time `json:"last_reply_at"`
}

// Summary reports the thread summary, if the message has one.
func (m *MessageWithAuthor) Summary() (ThreadSummary, bool) {
	if m.Thread == nil || m.Thread.Count == 0 {
		return ThreadSummary{}, false
	}
	return *m.Thread, true
}

// IsReply reports whether the message belongs to a thread.
func (m *Message) IsReply() bool {
	return m.ParentMessageID != nil
}

// Scope reports the channel or conversation holding the message.
func (m *Message) Scope() Scope {
	return Scope{ChannelID: m.ChannelID, ConversationID: m.ConversationID}
}

// MessagePage is one page of a reverse-chronological message listing.
// ContinueCursor is opaque to callers; it is empty once IsDone is true.
type MessagePage struct {
	Page           []MessageWithAuthor `json:"page"`
	ContinueCursor string              `json:"continue_cursor"`
	IsDone         bool                `json:"is_done"`
}

// ReactionGroup aggregates every reaction with the same emoji on a message.
type ReactionGroup struct {
	Emoji     string         `json:"emoji"`
	Count     int            `json:"count"`
	MemberIDs []snowflake.ID `json:"member_ids"`
}

// Has reports whether the member reacted with this emoji.
func (g ReactionGroup) Has(memberID int64) bool {
	for _, id := range g.MemberIDs {
		if id.Int64() == memberID {
			return true
		}
	}
	return false
}

// CreateMessageParams is the payload for creating a message or thread reply
// in a channel or conversation. Image is the storage id returned by a
// completed upload.
type CreateMessageParams struct {
	WorkspaceID     int64   `json:"workspace_id,string"`
	ChannelID       int64   `json:"channel_id,string,omitempty"`
	ConversationID  int64   `json:"conversation_id,string,omitempty"`
	ParentMessageID *int64  `json:"parent_message_id,string,omitempty"`
	Body            string  `json:"body"`
	Image           *string `json:"image,omitempty"`
}

// Scope reports the container the message is posted to.
func (p CreateMessageParams) Scope() Scope {
	return Scope{ChannelID: p.ChannelID, ConversationID: p.ConversationID}
}

// ThreadView is a thread rendered server-side: the root message, then the
// first page of replies grouped by local day, newest day first.
type ThreadView struct {
	Root           *MessageWithAuthor `json:"root"`
	Days           []ThreadDay        `json:"days"`
	ContinueCursor string             `json:"continue_cursor"`
	IsDone         bool               `json:"is_done"`
}

// ThreadDay is one calendar day of a thread, oldest message first.
type ThreadDay struct {
	Date     string        `json:"date"`
	Label    string        `json:"label"`
	Messages []ThreadEntry `json:"messages"`
}

// ThreadEntry is a message with its compact-rendering flag.
type ThreadEntry struct {
	MessageWithAuthor
	Compact bool `json:"compact"`
}
