package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/gateway"
	"github.com/cristhian-fs/slack-clone/internal/metrics"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/snowflake"
	"github.com/cristhian-fs/slack-clone/internal/thread"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
	MaxBodyBytes    = 64 << 10
)

// MessageService handles message and thread business logic.
type MessageService struct {
	access
	messages  database.MessageRepository
	reactions database.ReactionRepository
	uploads   database.UploadRepository
	storage   FileStorage
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	now       func() time.Time
}

// NewMessageService creates a MessageService. storage may be nil, in which
// case attachments are not resolved to URLs.
func NewMessageService(
	messages database.MessageRepository,
	reactions database.ReactionRepository,
	channels database.ChannelRepository,
	conversations database.ConversationRepository,
	members database.MemberRepository,
	uploads database.UploadRepository,
	storage FileStorage,
	sf *snowflake.Generator,
	gw gateway.Dispatcher,
) *MessageService {
	return &MessageService{
		access:    access{channels: channels, conversations: conversations, members: members},
		messages:  messages,
		reactions: reactions,
		uploads:   uploads,
		storage:   storage,
		snowflake: sf,
		gateway:   gw,
		now:       time.Now,
	}
}

// ListParams selects a page of top-level messages or thread replies in a
// channel or conversation.
type ListParams struct {
	Scope           models.Scope
	ParentMessageID *int64
	Cursor          string
	Limit           int
}

// GetMessages returns one page of top-level messages or thread replies,
// newest first.
func (s *MessageService) GetMessages(ctx context.Context, userID int64, p ListParams) (*models.MessagePage, error) {
	if _, _, err := s.resolve(ctx, p.Scope, userID); err != nil {
		return nil, err
	}
	if p.ParentMessageID != nil {
		if _, err := s.threadRoot(ctx, p.Scope, *p.ParentMessageID); err != nil {
			return nil, err
		}
	}

	before, err := decodeCursor(p.Cursor)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, database.MessageQuery{
		ChannelID:      p.Scope.ChannelID,
		ConversationID: p.Scope.ConversationID,
		ParentID:       p.ParentMessageID,
		Before:         before,
		Limit:          clampLimit(p.Limit),
	})
}

// page runs q fetching one extra row to learn whether more remain.
func (s *MessageService) page(ctx context.Context, q database.MessageQuery) (*models.MessagePage, error) {
	limit := q.Limit
	q.Limit = limit + 1
	messages, err := s.messages.List(ctx, q)
	if err != nil {
		return nil, internalError(err)
	}

	page := &models.MessagePage{IsDone: len(messages) <= limit}
	if !page.IsDone {
		messages = messages[:limit]
		page.ContinueCursor = encodeCursor(messages[len(messages)-1].ID)
	}
	if messages == nil {
		messages = []models.MessageWithAuthor{}
	}
	if err := s.hydrate(ctx, messages); err != nil {
		return nil, err
	}
	page.Page = messages
	return page, nil
}

// GetMessage returns a single message. Messages outside the caller's
// workspaces and conversations are reported as not found.
func (s *MessageService) GetMessage(ctx context.Context, userID, messageID int64) (*models.MessageWithAuthor, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, internalError(err)
	}
	if msg == nil {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}
	if msg.ConversationID != 0 {
		_, _, err = s.conversationMember(ctx, msg.ConversationID, userID)
	} else {
		_, err = s.workspaceMember(ctx, msg.WorkspaceID, userID)
	}
	if err != nil {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}
	return s.single(ctx, msg)
}

// CreateMessage posts a message to a channel or conversation or, with
// ParentMessageID, a thread reply.
func (s *MessageService) CreateMessage(ctx context.Context, userID int64, p models.CreateMessageParams) (*models.MessageWithAuthor, error) {
	if err := validateBody(p.Body); err != nil {
		return nil, err
	}

	scope := p.Scope()
	c, member, err := s.resolve(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	if p.WorkspaceID != 0 && p.WorkspaceID != c.workspaceID {
		return nil, BadRequest("WORKSPACE_MISMATCH", "channel or conversation does not belong to this workspace")
	}

	var parent *models.MessageWithAuthor
	if p.ParentMessageID != nil {
		parent, err = s.threadRoot(ctx, scope, *p.ParentMessageID)
		if err != nil {
			return nil, err
		}
	}

	if p.Image != nil {
		upload, err := s.uploads.GetByStorageID(ctx, *p.Image)
		if err != nil {
			return nil, internalError(err)
		}
		if upload == nil || upload.UploaderID != userID {
			return nil, BadRequest("UNKNOWN_UPLOAD", "image was not uploaded by you")
		}
	}

	id := s.snowflake.Generate()
	msg := &models.Message{
		ID:              id.Int64(),
		WorkspaceID:     c.workspaceID,
		ChannelID:       scope.ChannelID,
		ConversationID:  scope.ConversationID,
		ParentMessageID: p.ParentMessageID,
		MemberID:        member.ID,
		Body:            p.Body,
		ImageID:         p.Image,
		CreatedAt:       id.Time(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, internalError(err)
	}

	kind := "message"
	if msg.IsReply() {
		kind = "reply"
	}
	metrics.MessagesCreated.WithLabelValues(kind).Inc()

	full, err := s.reload(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	c.dispatch(s.gateway, gateway.EventMessageCreate, full)
	if parent != nil {
		s.refreshParent(ctx, c, parent.ID)
	}
	return full, nil
}

// UpdateMessage replaces a message body. Only the author can edit.
func (s *MessageService) UpdateMessage(ctx context.Context, userID int64, scope models.Scope, messageID int64, body string) (*models.MessageWithAuthor, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}

	c, member, err := s.resolve(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	msg, err := s.inScope(ctx, scope, messageID)
	if err != nil {
		return nil, err
	}
	if msg.MemberID != member.ID {
		return nil, Forbidden("FORBIDDEN", "you can only edit your own messages")
	}

	now := s.now()
	if err := s.messages.Update(ctx, &models.Message{ID: messageID, Body: body, UpdatedAt: &now}); err != nil {
		return nil, internalError(err)
	}

	full, err := s.reload(ctx, messageID)
	if err != nil {
		return nil, err
	}
	c.dispatch(s.gateway, gateway.EventMessageUpdate, full)
	return full, nil
}

// DeleteMessage removes a message and, through the schema, its replies. The
// author and workspace admins may delete.
func (s *MessageService) DeleteMessage(ctx context.Context, userID int64, scope models.Scope, messageID int64) error {
	c, member, err := s.resolve(ctx, scope, userID)
	if err != nil {
		return err
	}
	msg, err := s.inScope(ctx, scope, messageID)
	if err != nil {
		return err
	}
	if msg.MemberID != member.ID && !member.IsAdmin() {
		return Forbidden("FORBIDDEN", "you can only delete your own messages")
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return internalError(err)
	}

	c.dispatch(s.gateway, gateway.EventMessageDelete, gateway.MessageDeleteData{
		ID:              msg.ID,
		ChannelID:       msg.ChannelID,
		ConversationID:  msg.ConversationID,
		ParentMessageID: msg.ParentMessageID,
	})
	if msg.ParentMessageID != nil {
		s.refreshParent(ctx, c, *msg.ParentMessageID)
	}
	return nil
}

// ThreadParams selects a server-rendered thread.
type ThreadParams struct {
	Scope     models.Scope
	MessageID int64
	Location  *time.Location
	Limit     int
}

// GetThread loads a root message and the newest page of its replies
// concurrently, then groups the replies by day in the requested zone.
func (s *MessageService) GetThread(ctx context.Context, userID int64, p ThreadParams) (*models.ThreadView, error) {
	if _, _, err := s.resolve(ctx, p.Scope, userID); err != nil {
		return nil, err
	}

	var (
		root *models.MessageWithAuthor
		page *models.MessagePage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		root, err = s.threadRoot(gctx, p.Scope, p.MessageID)
		return err
	})
	g.Go(func() error {
		var err error
		page, err = s.page(gctx, database.MessageQuery{
			ChannelID:      p.Scope.ChannelID,
			ConversationID: p.Scope.ConversationID,
			ParentID:       &p.MessageID,
			Limit:          clampLimit(p.Limit),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	root, err := s.single(ctx, root)
	if err != nil {
		return nil, err
	}

	status := thread.StatusCanLoadMore
	if page.IsDone {
		status = thread.StatusExhausted
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	view := thread.Build(thread.Input{
		Threaded: true,
		Root:     root,
		Snapshot: thread.Snapshot{Results: page.Page, Status: status},
		Location: loc,
	})

	out := &models.ThreadView{
		Root:           view.Root,
		Days:           make([]models.ThreadDay, 0, len(view.Groups)),
		ContinueCursor: page.ContinueCursor,
		IsDone:         page.IsDone,
	}
	for _, day := range view.Labeled(s.now()) {
		entries := make([]models.ThreadEntry, len(day.Entries))
		for i, e := range day.Entries {
			entries[i] = models.ThreadEntry{MessageWithAuthor: e.Message, Compact: e.Compact}
		}
		out.Days = append(out.Days, models.ThreadDay{Date: day.Key, Label: day.Label, Messages: entries})
	}
	return out, nil
}

// threadRoot returns a top-level message of the channel or conversation.
func (s *MessageService) threadRoot(ctx context.Context, scope models.Scope, messageID int64) (*models.MessageWithAuthor, error) {
	msg, err := s.inScope(ctx, scope, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsReply() {
		return nil, BadRequest("INVALID_PARENT", "replies cannot have threads")
	}
	return msg, nil
}

func (s *MessageService) inScope(ctx context.Context, scope models.Scope, messageID int64) (*models.MessageWithAuthor, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, internalError(err)
	}
	if msg == nil || msg.Scope() != scope {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}
	return msg, nil
}

// reload fetches a message after a write, with reactions and image URL. A
// concurrent delete can remove it first.
func (s *MessageService) reload(ctx context.Context, messageID int64) (*models.MessageWithAuthor, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, internalError(err)
	}
	if msg == nil {
		return nil, NotFound("UNKNOWN_MESSAGE", "message not found")
	}
	return s.single(ctx, msg)
}

func (s *MessageService) single(ctx context.Context, msg *models.MessageWithAuthor) (*models.MessageWithAuthor, error) {
	one := []models.MessageWithAuthor{*msg}
	if err := s.hydrate(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// refreshParent republishes a thread root whose summary changed.
func (s *MessageService) refreshParent(ctx context.Context, c container, parentID int64) {
	parent, err := s.reload(ctx, parentID)
	if err != nil {
		return
	}
	c.dispatch(s.gateway, gateway.EventMessageUpdate, parent)
}

// hydrate attaches reaction aggregates and attachment URLs in place.
func (s *MessageService) hydrate(ctx context.Context, messages []models.MessageWithAuthor) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]int64, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}
	groups, err := s.reactions.GroupsByMessages(ctx, ids)
	if err != nil {
		return internalError(err)
	}
	for i := range messages {
		m := &messages[i]
		m.Reactions = groups[m.ID]
		if m.Reactions == nil {
			m.Reactions = []models.ReactionGroup{}
		}
		if m.ImageKey != nil && s.storage != nil {
			url := s.storage.URL(*m.ImageKey)
			m.Image = &url
		}
	}
	return nil
}

// validateBody requires a non-empty serialized rich-text document.
func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return BadRequest("INVALID_BODY", "message body must not be empty")
	}
	if len(body) > MaxBodyBytes {
		return BadRequest("INVALID_BODY", "message body exceeds 64 KiB")
	}
	if !json.Valid([]byte(body)) {
		return BadRequest("INVALID_BODY", "message body must be a JSON document")
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Cursors are the last returned message id, base64url encoded so callers
// treat them as opaque.
func encodeCursor(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func decodeCursor(cursor string) (*int64, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, BadRequest("INVALID_CURSOR", "invalid continuation cursor")
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return nil, BadRequest("INVALID_CURSOR", "invalid continuation cursor")
	}
	return &id, nil
}
