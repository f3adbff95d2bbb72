package database

import (
	"context"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *models.Workspace) error
	GetByID(ctx context.Context, id int64) (*models.Workspace, error)
	Delete(ctx context.Context, id int64) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	GetByName(ctx context.Context, workspaceID int64, name string) (*models.Channel, error)
	Delete(ctx context.Context, id int64) error
}

type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	GetByWorkspaceAndUser(ctx context.Context, workspaceID, userID int64) (*models.Member, error)
	GetWorkspaceIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	Delete(ctx context.Context, id int64) error
}

type ConversationRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Conversation, error)
	GetOrCreate(ctx context.Context, workspaceID, memberA, memberB, newID int64) (*models.Conversation, error)
	ListByMember(ctx context.Context, memberID int64) ([]models.Conversation, error)
}

// MessageQuery selects one page of a channel or conversation listing; set
// exactly one of ChannelID and ConversationID. A nil ParentID lists
// top-level messages, otherwise the replies to that message. Before is an
// exclusive upper bound on message id.
type MessageQuery struct {
	ChannelID      int64
	ConversationID int64
	ParentID       *int64
	Before         *int64
	Limit          int
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.MessageWithAuthor, error)
	List(ctx context.Context, q MessageQuery) ([]models.MessageWithAuthor, error)
	Update(ctx context.Context, msg *models.Message) error
	Delete(ctx context.Context, id int64) error
}

type ReactionRepository interface {
	Add(ctx context.Context, reaction *models.Reaction) error
	Remove(ctx context.Context, messageID, memberID int64, emoji string) error
	Exists(ctx context.Context, messageID, memberID int64, emoji string) (bool, error)
	GroupsByMessages(ctx context.Context, messageIDs []int64) (map[int64][]models.ReactionGroup, error)
}

type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
	GetByStorageID(ctx context.Context, storageID string) (*models.Upload, error)
}
