package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/service"
)

// ConversationHandler serves direct-message conversations.
type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(svc *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: svc}
}

type openConversationRequest struct {
	MemberID string `json:"member_id"`
}

// OpenConversation handles POST /api/v1/workspaces/:workspace_id/conversations.
// It returns the existing conversation with member_id or creates one.
func (h *ConversationHandler) OpenConversation(c echo.Context) error {
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return nil
	}

	var req openConversationRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	memberID, err := strconv.ParseInt(req.MemberID, 10, 64)
	if err != nil || memberID <= 0 {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid member ID")
	}

	conv, err := h.conversations.Open(c.Request().Context(), auth.GetUserID(c), workspaceID, memberID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// ListConversations handles GET /api/v1/workspaces/:workspace_id/conversations.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	workspaceID, ok := pathID(c, "workspace_id", "workspace")
	if !ok {
		return nil
	}

	conversations, err := h.conversations.List(c.Request().Context(), auth.GetUserID(c), workspaceID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, conversations)
}

// GetConversation handles GET /api/v1/conversations/:conversation_id.
func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conversationID, ok := pathID(c, "conversation_id", "conversation")
	if !ok {
		return nil
	}

	conv, err := h.conversations.Get(c.Request().Context(), auth.GetUserID(c), conversationID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}
