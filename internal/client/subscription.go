package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/cristhian-fs/slack-clone/internal/gateway"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/thread"
)

// DefaultPageSize is the number of messages requested per page.
const DefaultPageSize = 50

// Query selects the messages a Subscription follows: the top-level messages
// of a channel or conversation, or the replies to ParentMessageID. Set
// exactly one of ChannelID and ConversationID.
type Query struct {
	ChannelID       int64
	ConversationID  int64
	ParentMessageID *int64
	PageSize        int
}

func (q Query) scope() models.Scope {
	return models.Scope{ChannelID: q.ChannelID, ConversationID: q.ConversationID}
}

// Subscription is a live, paginated message query. Pages are fetched on
// demand through LoadMore; gateway events keep loaded messages current. Each
// change is published as a new Snapshot. Only the latest snapshot is kept
// for a slow reader.
type Subscription struct {
	client *Client
	query  Query
	live   <-chan gateway.Event
	out    chan thread.Snapshot
	loads  chan struct{}

	mu      sync.Mutex
	results []models.MessageWithAuthor
	cursor  string
	status  thread.Status
	missing bool
	closed  bool
}

var _ thread.Feed = (*Subscription)(nil)

type SubscribeOption func(*Subscription)

// WithEvents applies gateway dispatches from events to the loaded messages.
func WithEvents(events <-chan gateway.Event) SubscribeOption {
	return func(s *Subscription) { s.live = events }
}

// Subscribe starts fetching the first page of q. The subscription ends, and
// its snapshot channel is closed, when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, q Query, opts ...SubscribeOption) *Subscription {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	s := &Subscription{
		client: c,
		query:  q,
		out:    make(chan thread.Snapshot, 1),
		loads:  make(chan struct{}, 1),
		status: thread.StatusLoadingFirstPage,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	s.publishLocked()
	s.mu.Unlock()

	go s.run(ctx)
	return s
}

// Snapshots delivers the latest state after every change.
func (s *Subscription) Snapshots() <-chan thread.Snapshot { return s.out }

// LoadMore requests the next page. It does nothing unless the status is
// CanLoadMore, so repeated calls while a page is in flight are ignored.
func (s *Subscription) LoadMore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != thread.StatusCanLoadMore {
		return
	}
	s.status = thread.StatusLoadingMore
	s.publishLocked()

	select {
	case s.loads <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer s.close()

	s.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.loads:
			s.fetch(ctx)
		case ev, ok := <-s.live:
			if !ok {
				s.live = nil
				continue
			}
			s.apply(ev)
		}
	}
}

func (s *Subscription) fetch(ctx context.Context) {
	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.client.GetMessages(ctx, MessagesQuery{
		ChannelID:       s.query.ChannelID,
		ConversationID:  s.query.ConversationID,
		ParentMessageID: s.query.ParentMessageID,
		Cursor:          cursor,
		Limit:           s.query.PageSize,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		return
	}
	if errors.Is(err, ErrNotFound) {
		slog.Info("message query not found", "scope", s.query.scope(), "error", err)
		s.missing = true
		s.status = thread.StatusExhausted
		s.publishLocked()
		return
	}
	if err != nil {
		// The same cursor is retried on the next LoadMore.
		slog.Warn("loading messages failed", "scope", s.query.scope(), "error", err)
		s.status = thread.StatusCanLoadMore
		s.publishLocked()
		return
	}

	next := slices.Clone(s.results)
	for _, m := range page.Page {
		if indexOf(next, m.ID) < 0 {
			next = append(next, m)
		}
	}
	s.results = next
	s.cursor = page.ContinueCursor
	s.status = thread.StatusCanLoadMore
	if page.IsDone {
		s.status = thread.StatusExhausted
	}
	s.publishLocked()
}

// apply folds a gateway event into the loaded messages. Events for other
// containers or threads are ignored.
func (s *Subscription) apply(ev gateway.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.missing || s.status == thread.StatusLoadingFirstPage {
		return
	}

	var changed bool
	switch ev.Name {
	case gateway.EventMessageCreate:
		var m models.MessageWithAuthor
		if json.Unmarshal(ev.Data, &m) != nil || !s.matches(m.Scope(), m.ParentMessageID) {
			return
		}
		if indexOf(s.results, m.ID) < 0 {
			s.results = append([]models.MessageWithAuthor{m}, s.results...)
			changed = true
		}

	case gateway.EventMessageUpdate:
		var m models.MessageWithAuthor
		if json.Unmarshal(ev.Data, &m) != nil || !s.matches(m.Scope(), m.ParentMessageID) {
			return
		}
		if i := indexOf(s.results, m.ID); i >= 0 {
			s.results = slices.Clone(s.results)
			s.results[i] = m
			changed = true
		}

	case gateway.EventMessageDelete:
		var d gateway.MessageDeleteData
		if json.Unmarshal(ev.Data, &d) != nil || !s.matches(models.Scope{ChannelID: d.ChannelID, ConversationID: d.ConversationID}, d.ParentMessageID) {
			return
		}
		if i := indexOf(s.results, d.ID); i >= 0 {
			s.results = slices.Delete(slices.Clone(s.results), i, i+1)
			changed = true
		}

	case gateway.EventMessageReaction:
		var d gateway.MessageReactionData
		if json.Unmarshal(ev.Data, &d) != nil || !s.matches(models.Scope{ChannelID: d.ChannelID, ConversationID: d.ConversationID}, d.ParentMessageID) {
			return
		}
		if i := indexOf(s.results, d.MessageID); i >= 0 {
			s.results = slices.Clone(s.results)
			s.results[i].Reactions = d.Reactions
			changed = true
		}
	}

	if changed {
		s.publishLocked()
	}
}

func (s *Subscription) matches(scope models.Scope, parentID *int64) bool {
	if scope != s.query.scope() {
		return false
	}
	want := s.query.ParentMessageID
	if want == nil || parentID == nil {
		return want == nil && parentID == nil
	}
	return *want == *parentID
}

// publishLocked replaces any unread snapshot with the current state. Results
// slices are never modified after publication; every change builds a new one.
func (s *Subscription) publishLocked() {
	snap := thread.Snapshot{Results: s.results, Status: s.status, Missing: s.missing}
	select {
	case <-s.out:
	default:
	}
	s.out <- snap
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	close(s.out)
}

func indexOf(messages []models.MessageWithAuthor, id int64) int {
	return slices.IndexFunc(messages, func(m models.MessageWithAuthor) bool { return m.ID == id })
}
