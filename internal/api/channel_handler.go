package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/service"
)

type ChannelHandler struct {
	channels *service.ChannelService
}

func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: svc}
}

// GetChannel handles GET /api/v1/channels/:id.
func (h *ChannelHandler) GetChannel(c echo.Context) error {
	channelID, ok := pathID(c, "id", "channel")
	if !ok {
		return nil
	}

	channel, err := h.channels.Get(c.Request().Context(), auth.GetUserID(c), channelID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, channel)
}
