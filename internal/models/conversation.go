package models

import "time"

// Conversation is a direct-message container between two members of a
// workspace. MemberOneID is never greater than MemberTwoID; a member may
// hold a conversation with itself.
type Conversation struct {
	ID          int64     `json:"id,string"`
	WorkspaceID int64     `json:"workspace_id,string"`
	MemberOneID int64     `json:"member_one_id,string"`
	MemberTwoID int64     `json:"member_two_id,string"`
	UserOneID   int64     `json:"-"`
	UserTwoID   int64     `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Has reports whether the member takes part in the conversation.
func (c *Conversation) Has(memberID int64) bool {
	return c.MemberOneID == memberID || c.MemberTwoID == memberID
}

// UserIDs returns the participants' user ids without duplicates.
func (c *Conversation) UserIDs() []int64 {
	if c.UserOneID == c.UserTwoID {
		return []int64{c.UserOneID}
	}
	return []int64{c.UserOneID, c.UserTwoID}
}

// OrderedPair returns a and b with the smaller id first, the order in which
// a conversation stores its members.
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Scope names the container a message lives in: exactly one of ChannelID or
// ConversationID is set.
type Scope struct {
	ChannelID      int64
	ConversationID int64
}

// ChannelScope and ConversationScope build a Scope for one container.
func ChannelScope(id int64) Scope      { return Scope{ChannelID: id} }
func ConversationScope(id int64) Scope { return Scope{ConversationID: id} }

// IsConversation reports whether the scope is a direct-message conversation.
func (s Scope) IsConversation() bool { return s.ConversationID != 0 }

// Valid reports whether exactly one container is set.
func (s Scope) Valid() bool {
	return (s.ChannelID != 0) != (s.ConversationID != 0)
}
