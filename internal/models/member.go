package models

import "time"

type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Member is a user's membership in a workspace. Messages and reactions are
// authored by members, not users.
type Member struct {
	ID          int64      `json:"id,string"`
	WorkspaceID int64      `json:"workspace_id,string"`
	UserID      int64      `json:"user_id,string"`
	Role        MemberRole `json:"role"`
	JoinedAt    time.Time  `json:"joined_at"`
}

func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
