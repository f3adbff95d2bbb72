package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/service"
)

type ReactionHandler struct {
	reactions *service.ReactionService
}

func NewReactionHandler(svc *service.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: svc}
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

type reactionsResponse struct {
	Reactions []models.ReactionGroup `json:"reactions"`
}

// Toggle handles POST /api/v1/channels/:id/messages/:message_id/reactions.
// Reacting with an emoji the caller already used removes it.
func (h *ReactionHandler) Toggle(c echo.Context) error {
	scope, msgID, ok := scopeAndMessageID(c)
	if !ok {
		return nil
	}

	var req toggleReactionRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	groups, err := h.reactions.Toggle(c.Request().Context(), auth.GetUserID(c), scope, msgID, req.Emoji)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, reactionsResponse{Reactions: groups})
}
