// Package client talks to the chat server: HTTP calls for messages, uploads
// and reactions, and a gateway stream for live updates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/thread"
)

// ErrNotFound matches any *APIError with status 404.
var ErrNotFound = errors.New("client: not found")

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client is an authenticated API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ thread.Backend = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL using a bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MessagesQuery selects one page of a channel, a conversation, or a thread
// in either. Set exactly one of ChannelID and ConversationID.
type MessagesQuery struct {
	ChannelID       int64
	ConversationID  int64
	ParentMessageID *int64
	Cursor          string
	Limit           int
}

// scopePath is the API path of a channel or conversation.
func scopePath(scope models.Scope) string {
	if scope.IsConversation() {
		return fmt.Sprintf("/api/v1/conversations/%d", scope.ConversationID)
	}
	return fmt.Sprintf("/api/v1/channels/%d", scope.ChannelID)
}

// GetMessages fetches one page, newest first.
func (c *Client) GetMessages(ctx context.Context, q MessagesQuery) (*models.MessagePage, error) {
	params := url.Values{}
	if q.ParentMessageID != nil {
		params.Set("parent_message_id", strconv.FormatInt(*q.ParentMessageID, 10))
	}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var page models.MessagePage
	path := scopePath(models.Scope{ChannelID: q.ChannelID, ConversationID: q.ConversationID}) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMessage returns the message, or nil if it does not exist or is not
// visible to the caller.
func (c *Client) GetMessage(ctx context.Context, id int64) (*models.MessageWithAuthor, error) {
	var msg models.MessageWithAuthor
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d", id), nil, nil, &msg)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetChannel returns the channel, or nil if it does not exist.
func (c *Client) GetChannel(ctx context.Context, id int64) (*models.Channel, error) {
	var ch models.Channel
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/channels/%d", id), nil, nil, &ch)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetConversation returns the conversation, or nil if it does not exist or
// the caller does not take part in it.
func (c *Client) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", id), nil, nil, &conv)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// OpenConversation returns the caller's conversation with a member of the
// workspace, creating it on first use.
func (c *Client) OpenConversation(ctx context.Context, workspaceID, memberID int64) (*models.Conversation, error) {
	var conv models.Conversation
	path := fmt.Sprintf("/api/v1/workspaces/%d/conversations", workspaceID)
	body := map[string]string{"member_id": strconv.FormatInt(memberID, 10)}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetThread fetches a server-rendered thread grouped by day in tz, an IANA
// zone name. An empty tz groups in UTC.
func (c *Client) GetThread(ctx context.Context, scope models.Scope, messageID int64, tz string) (*models.ThreadView, error) {
	params := url.Values{}
	if tz != "" {
		params.Set("tz", tz)
	}
	var view models.ThreadView
	path := fmt.Sprintf("%s/messages/%d/thread", scopePath(scope), messageID)
	if err := c.do(ctx, http.MethodGet, path, params, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateMessage posts a message or thread reply and returns its id.
func (c *Client) CreateMessage(ctx context.Context, params models.CreateMessageParams) (int64, error) {
	var msg models.MessageWithAuthor
	path := scopePath(params.Scope()) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, nil, params, &msg); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// ToggleReaction adds or removes the caller's emoji reaction and returns the
// message's reactions afterwards.
func (c *Client) ToggleReaction(ctx context.Context, scope models.Scope, messageID int64, emoji string) ([]models.ReactionGroup, error) {
	var resp struct {
		Reactions []models.ReactionGroup `json:"reactions"`
	}
	path := fmt.Sprintf("%s/messages/%d/reactions", scopePath(scope), messageID)
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"emoji": emoji}, &resp); err != nil {
		return nil, err
	}
	return resp.Reactions, nil
}

// GenerateUploadURL returns a one-time URL for a single attachment upload.
func (c *Client) GenerateUploadURL(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/upload-url", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Upload posts body to a one-time upload URL and returns the storage id.
// The URL itself authorizes the request.
func (c *Client) Upload(ctx context.Context, uploadURL, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeAPIError(resp)
	}
	var out struct {
		StorageID string `json:"storage_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if out.StorageID == "" {
		return "", errors.New("client: upload response has no storage id")
	}
	return out.StorageID, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// GatewayURL is the WebSocket endpoint for live events.
func (c *Client) GatewayURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/gateway"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: http.StatusText(resp.StatusCode)}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
