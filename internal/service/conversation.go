package service

import (
	"context"
	"errors"

	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/gateway"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/snowflake"
)

// ConversationService handles direct-message conversations between members
// of a workspace.
type ConversationService struct {
	access
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
}

// NewConversationService creates a ConversationService.
func NewConversationService(
	conversations database.ConversationRepository,
	members database.MemberRepository,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
) *ConversationService {
	return &ConversationService{
		access:    access{conversations: conversations, members: members},
		snowflake: sf,
		gateway:   gw,
	}
}

// Open returns the caller's conversation with memberID, creating it on first
// use. Both participants are notified when it is created.
func (s *ConversationService) Open(ctx context.Context, userID, workspaceID, memberID int64) (*models.Conversation, error) {
	caller, err := s.workspaceMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}

	other, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, internalError(err)
	}
	if other == nil || other.WorkspaceID != workspaceID {
		return nil, NotFound("UNKNOWN_MEMBER", "member not found")
	}

	newID := s.snowflake.Generate().Int64()
	conv, err := s.conversations.GetOrCreate(ctx, workspaceID, caller.ID, other.ID, newID)
	if err != nil {
		return nil, internalError(err)
	}
	if conv == nil {
		return nil, internalError(errors.New("conversation missing after insert"))
	}

	if conv.ID == newID {
		container{workspaceID: workspaceID, conversation: conv}.dispatch(s.gateway, gateway.EventConversationCreate, conv)
	}
	return conv, nil
}

// Get returns a conversation the caller takes part in.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID int64) (*models.Conversation, error) {
	conv, _, err := s.conversationMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns the caller's conversations in a workspace, newest first.
func (s *ConversationService) List(ctx context.Context, userID, workspaceID int64) ([]models.Conversation, error) {
	member, err := s.workspaceMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversations.ListByMember(ctx, member.ID)
	if err != nil {
		return nil, internalError(err)
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	return conversations, nil
}
