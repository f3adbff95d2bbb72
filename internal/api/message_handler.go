package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/service"
)

// MessageHandler serves messages, replies and thread views.
type MessageHandler struct {
	messages *service.MessageService
}

func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: svc}
}

type updateMessageRequest struct {
	Body string `json:"body"`
}

// CreateMessage handles POST /api/v1/channels/:id/messages and
// POST /api/v1/conversations/:conversation_id/messages. Setting
// parent_message_id posts a reply.
func (h *MessageHandler) CreateMessage(c echo.Context) error {
	scope, ok := pathScope(c)
	if !ok {
		return nil
	}

	var req models.CreateMessageParams
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	req.ChannelID, req.ConversationID = scope.ChannelID, scope.ConversationID

	msg, err := h.messages.CreateMessage(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// GetMessages handles GET /api/v1/channels/:id/messages and its
// conversation counterpart. Pages run newest first; parent_message_id lists
// a thread's replies instead.
func (h *MessageHandler) GetMessages(c echo.Context) error {
	scope, ok := pathScope(c)
	if !ok {
		return nil
	}
	limit, ok := queryLimit(c)
	if !ok {
		return nil
	}

	params := service.ListParams{Scope: scope, Cursor: c.QueryParam("cursor"), Limit: limit}
	if p := c.QueryParam("parent_message_id"); p != "" {
		parent, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid parent message ID")
		}
		params.ParentMessageID = &parent
	}

	page, err := h.messages.GetMessages(c.Request().Context(), auth.GetUserID(c), params)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetMessage handles GET /api/v1/messages/:message_id.
func (h *MessageHandler) GetMessage(c echo.Context) error {
	msgID, ok := pathID(c, "message_id", "message")
	if !ok {
		return nil
	}

	msg, err := h.messages.GetMessage(c.Request().Context(), auth.GetUserID(c), msgID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, msg)
}

// UpdateMessage handles PATCH /api/v1/channels/:id/messages/:message_id.
func (h *MessageHandler) UpdateMessage(c echo.Context) error {
	scope, msgID, ok := scopeAndMessageID(c)
	if !ok {
		return nil
	}

	var req updateMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	msg, err := h.messages.UpdateMessage(c.Request().Context(), auth.GetUserID(c), scope, msgID, req.Body)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, msg)
}

// DeleteMessage handles DELETE /api/v1/channels/:id/messages/:message_id.
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	scope, msgID, ok := scopeAndMessageID(c)
	if !ok {
		return nil
	}

	if err := h.messages.DeleteMessage(c.Request().Context(), auth.GetUserID(c), scope, msgID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetThread handles GET /api/v1/channels/:id/messages/:message_id/thread.
// The optional tz query parameter is an IANA zone name used for day grouping.
func (h *MessageHandler) GetThread(c echo.Context) error {
	scope, msgID, ok := scopeAndMessageID(c)
	if !ok {
		return nil
	}
	limit, ok := queryLimit(c)
	if !ok {
		return nil
	}

	params := service.ThreadParams{Scope: scope, MessageID: msgID, Location: time.UTC, Limit: limit}
	if tz := c.QueryParam("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_TZ", "unknown time zone")
		}
		params.Location = loc
	}

	view, err := h.messages.GetThread(c.Request().Context(), auth.GetUserID(c), params)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// pathID parses the int64 path parameter name. When it is malformed the 400
// response has been written and ok is false.
func pathID(c echo.Context, name, what string) (id int64, ok bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		_ = Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

// pathScope reads the container from a channel route's :id or a
// conversation route's :conversation_id.
func pathScope(c echo.Context) (models.Scope, bool) {
	if c.Param("conversation_id") != "" {
		id, ok := pathID(c, "conversation_id", "conversation")
		return models.ConversationScope(id), ok
	}
	id, ok := pathID(c, "id", "channel")
	return models.ChannelScope(id), ok
}

func scopeAndMessageID(c echo.Context) (scope models.Scope, msgID int64, ok bool) {
	if scope, ok = pathScope(c); !ok {
		return models.Scope{}, 0, false
	}
	if msgID, ok = pathID(c, "message_id", "message"); !ok {
		return models.Scope{}, 0, false
	}
	return scope, msgID, true
}

// queryLimit reads the optional limit parameter; zero means the service
// default.
func queryLimit(c echo.Context) (int, bool) {
	l := c.QueryParam("limit")
	if l == "" {
		return 0, true
	}
	n, err := strconv.Atoi(l)
	if err != nil || n < 1 || n > service.MaxPageSize {
		_ = Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be 1-"+strconv.Itoa(service.MaxPageSize))
		return 0, false
	}
	return n, true
}
