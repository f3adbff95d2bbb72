package models

import "time"

type Reaction struct {
	MessageID   int64     `json:"message_id,string"`
	MemberID    int64     `json:"member_id,string"`
	WorkspaceID int64     `json:"workspace_id,string"`
	Emoji       string    `json:"emoji"`
	CreatedAt   time.Time `json:"created_at"`
}
