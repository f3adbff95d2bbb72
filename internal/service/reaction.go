package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/gateway"
	"github.com/cristhian-fs/slack-clone/internal/metrics"
	"github.com/cristhian-fs/slack-clone/internal/models"
)

const maxEmojiLength = 32

// ReactionService handles reaction business logic.
type ReactionService struct {
	access
	reactions database.ReactionRepository
	messages  database.MessageRepository
	gateway   gateway.Dispatcher
}

// NewReactionService creates a ReactionService.
func NewReactionService(
	reactions database.ReactionRepository,
	messages database.MessageRepository,
	channels database.ChannelRepository,
	conversations database.ConversationRepository,
	members database.MemberRepository,
	gw gateway.Dispatcher,
) *ReactionService {
	return &ReactionService{
		access:    access{channels: channels, conversations: conversations, members: members},
		reactions: reactions,
		messages:  messages,
		gateway:   gw,
	}
}

// Toggle adds the caller's reaction if absent and removes it if present,
// returning the message's reactions afterwards.
func (s *ReactionService) Toggle(ctx context.Context, userID int64, scope models.Scope, messageID int64, emoji string) ([]models.ReactionGroup, error) {
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		return nil, BadRequest("INVALID_EMOJI", "emoji must be 1-32 characters")
	}

	c, member, err := s.resolve(ctx, scope, userID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, internalError(err)
	}
	if msg == nil || msg.Scope() != scope {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}

	exists, err := s.reactions.Exists(ctx, messageID, member.ID, emoji)
	if err != nil {
		return nil, internalError(err)
	}
	action := "added"
	if exists {
		action = "removed"
		err = s.reactions.Remove(ctx, messageID, member.ID, emoji)
	} else {
		err = s.reactions.Add(ctx, &models.Reaction{
			MessageID:   messageID,
			MemberID:    member.ID,
			WorkspaceID: msg.WorkspaceID,
			Emoji:       emoji,
			CreatedAt:   time.Now(),
		})
	}
	if err != nil {
		return nil, internalError(err)
	}
	metrics.ReactionsToggled.WithLabelValues(action).Inc()

	groups, err := s.reactions.GroupsByMessages(ctx, []int64{messageID})
	if err != nil {
		return nil, internalError(err)
	}
	result := groups[messageID]
	if result == nil {
		result = []models.ReactionGroup{}
	}

	c.dispatch(s.gateway, gateway.EventMessageReaction, gateway.MessageReactionData{
		MessageID:       messageID,
		ChannelID:       msg.ChannelID,
		ConversationID:  msg.ConversationID,
		ParentMessageID: msg.ParentMessageID,
		Reactions:       result,
	})
	return result, nil
}
