package thread

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

// SendFailedMessage is the notification shown when a reply cannot be sent.
const SendFailedMessage = "Failed to send message"

var (
	// ErrPending is returned when a submission is attempted while another
	// one is still in flight; the editor is disabled during that time.
	ErrPending = errors.New("thread: submission already in flight")

	// ErrNoUploadURL is returned when the backend hands out an empty upload URL.
	ErrNoUploadURL = errors.New("thread: upload url not found")
)

// Backend is the subset of the message backend a Composer talks to.
type Backend interface {
	GenerateUploadURL(ctx context.Context) (string, error)
	// Upload posts body to a one-time upload URL and returns the storage id.
	Upload(ctx context.Context, url, contentType string, body io.Reader) (string, error)
	CreateMessage(ctx context.Context, params models.CreateMessageParams) (int64, error)
}

// Notifier surfaces transient, user-visible errors.
type Notifier interface {
	Error(message string)
}

// Image is an attachment waiting to be sent with a draft.
type Image struct {
	ContentType string
	Data        []byte
}

// Draft is the content of the reply editor.
type Draft struct {
	Body  string
	Image *Image
}

// Target identifies where replies are posted: a channel or a conversation.
type Target struct {
	WorkspaceID     int64
	ChannelID       int64
	ConversationID  int64
	ParentMessageID *int64
}

// Composer submits drafts from a reply editor. While a submission is in
// flight the editor is disabled. A failed submission keeps the draft and is
// not retried.
type Composer struct {
	backend Backend
	notify  Notifier
	target  Target

	mu        sync.Mutex
	pending   bool
	draft     Draft
	editorKey int
}

func NewComposer(backend Backend, notify Notifier, target Target) *Composer {
	return &Composer{backend: backend, notify: notify, target: target}
}

// Disabled reports whether the editor should refuse input.
func (c *Composer) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Draft returns the draft the editor should show.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// EditorKey changes every time a submission succeeds, signalling the editor
// to reset.
func (c *Composer) EditorKey() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editorKey
}

// Submit sends draft as a reply. An attached image is uploaded first; if the
// upload fails no message is created. Failures are reported through the
// notifier and returned.
func (c *Composer) Submit(ctx context.Context, draft Draft) (int64, error) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return 0, ErrPending
	}
	c.pending = true
	c.draft = draft
	c.mu.Unlock()

	id, err := c.send(ctx, draft)

	c.mu.Lock()
	c.pending = false
	if err == nil {
		c.draft = Draft{}
		c.editorKey++
	}
	c.mu.Unlock()

	if err != nil {
		slog.Warn("reply submission failed", "channelID", c.target.ChannelID, "error", err)
		c.notify.Error(SendFailedMessage)
		return 0, err
	}
	return id, nil
}

func (c *Composer) send(ctx context.Context, draft Draft) (int64, error) {
	params := models.CreateMessageParams{
		WorkspaceID:     c.target.WorkspaceID,
		ChannelID:       c.target.ChannelID,
		ConversationID:  c.target.ConversationID,
		ParentMessageID: c.target.ParentMessageID,
		Body:            draft.Body,
	}

	if draft.Image != nil {
		url, err := c.backend.GenerateUploadURL(ctx)
		if err != nil {
			return 0, fmt.Errorf("generating upload url: %w", err)
		}
		if url == "" {
			return 0, ErrNoUploadURL
		}
		storageID, err := c.backend.Upload(ctx, url, draft.Image.ContentType, bytes.NewReader(draft.Image.Data))
		if err != nil {
			return 0, fmt.Errorf("uploading image: %w", err)
		}
		params.Image = &storageID
	}

	id, err := c.backend.CreateMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("creating message: %w", err)
	}
	return id, nil
}
