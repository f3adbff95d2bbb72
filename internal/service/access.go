package service

import (
	"context"

	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/gateway"
	"github.com/cristhian-fs/slack-clone/internal/models"
)

// access resolves channels, conversations and workspace memberships for a
// caller.
type access struct {
	channels      database.ChannelRepository
	conversations database.ConversationRepository
	members       database.MemberRepository
}

// container is a resolved channel or conversation.
type container struct {
	workspaceID  int64
	channel      *models.Channel
	conversation *models.Conversation
}

// dispatch sends a message event to everyone who can read the container:
// the whole workspace for a channel, the two participants for a
// conversation.
func (c container) dispatch(gw gateway.Dispatcher, event string, data any) {
	if c.conversation == nil {
		gw.DispatchToWorkspace(c.workspaceID, event, data)
		return
	}
	for _, userID := range c.conversation.UserIDs() {
		gw.DispatchToUser(userID, event, data)
	}
}

// resolve returns the container named by scope and the caller's membership
// in its workspace.
func (a access) resolve(ctx context.Context, scope models.Scope, userID int64) (container, *models.Member, error) {
	if !scope.Valid() {
		return container{}, nil, BadRequest("INVALID_SCOPE", "exactly one of channel and conversation is required")
	}
	if scope.IsConversation() {
		conv, member, err := a.conversationMember(ctx, scope.ConversationID, userID)
		if err != nil {
			return container{}, nil, err
		}
		return container{workspaceID: conv.WorkspaceID, conversation: conv}, member, nil
	}
	channel, member, err := a.channelMember(ctx, scope.ChannelID, userID)
	if err != nil {
		return container{}, nil, err
	}
	return container{workspaceID: channel.WorkspaceID, channel: channel}, member, nil
}

// channelMember returns the channel and the caller's membership in its
// workspace.
func (a access) channelMember(ctx context.Context, channelID, userID int64) (*models.Channel, *models.Member, error) {
	channel, err := a.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, nil, internalError(err)
	}
	if channel == nil {
		return nil, nil, NotFound("UNKNOWN_CHANNEL", "channel not found")
	}

	member, err := a.workspaceMember(ctx, channel.WorkspaceID, userID)
	if err != nil {
		return nil, nil, err
	}
	return channel, member, nil
}

// conversationMember returns the conversation and the caller's membership.
// Conversations the caller does not take part in are reported as not found.
func (a access) conversationMember(ctx context.Context, conversationID, userID int64) (*models.Conversation, *models.Member, error) {
	conv, err := a.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, internalError(err)
	}
	if conv == nil {
		return nil, nil, NotFound("UNKNOWN_CONVERSATION", "conversation not found")
	}

	member, err := a.members.GetByWorkspaceAndUser(ctx, conv.WorkspaceID, userID)
	if err != nil {
		return nil, nil, internalError(err)
	}
	if member == nil || !conv.Has(member.ID) {
		return nil, nil, NotFound("UNKNOWN_CONVERSATION", "conversation not found")
	}
	return conv, member, nil
}

// workspaceMember returns the caller's membership, or a forbidden error.
func (a access) workspaceMember(ctx context.Context, workspaceID, userID int64) (*models.Member, error) {
	member, err := a.members.GetByWorkspaceAndUser(ctx, workspaceID, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if member == nil {
		return nil, Forbidden("NOT_MEMBER", "you are not a member of this workspace")
	}
	return member, nil
}
