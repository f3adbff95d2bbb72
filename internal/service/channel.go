package service

import (
	"context"

	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/models"
)

// ChannelService looks channels up for their members.
type ChannelService struct {
	access
}

// NewChannelService creates a ChannelService.
func NewChannelService(channels database.ChannelRepository, members database.MemberRepository) *ChannelService {
	return &ChannelService{access: access{channels: channels, members: members}}
}

// Get returns a channel of one of the caller's workspaces.
func (s *ChannelService) Get(ctx context.Context, userID, channelID int64) (*models.Channel, error) {
	channel, _, err := s.channelMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	return channel, nil
}
