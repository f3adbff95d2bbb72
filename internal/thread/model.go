package thread

import (
	"context"
	"sync"
	"time"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

// Feed is a live, paginated message query. Each delivery on Snapshots
// replaces the previous one.
type Feed interface {
	Pager
	Snapshots() <-chan Snapshot
}

// Model keeps the latest snapshot of a feed and rebuilds the view on every
// delivery. It never writes to the feed; the only request it issues is
// LoadMore through its sentinel.
type Model struct {
	feed     Feed
	sentinel *Sentinel
	loc      *time.Location
	threaded bool
	roots    <-chan *models.MessageWithAuthor
	anchored bool
	anchors  <-chan bool

	mu            sync.Mutex
	snapshot      Snapshot
	root          *models.MessageWithAuthor
	rootLoading   bool
	anchorFound   bool
	anchorLoading bool
	view          View
}

type Option func(*Model)

// WithLocation sets the zone day groups are computed in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(m *Model) { m.loc = loc }
}

// WithRoot anchors the model on a thread root. The model stays loading until
// roots delivers; a nil delivery, or closing roots without one, means the
// root does not exist.
func WithRoot(roots <-chan *models.MessageWithAuthor) Option {
	return func(m *Model) {
		m.threaded = true
		m.roots = roots
		m.rootLoading = true
	}
}

// WithAnchor anchors the model on the channel or conversation it lists. The
// model stays loading until found delivers; false, or closing found without
// a delivery, means the container does not exist.
func WithAnchor(found <-chan bool) Option {
	return func(m *Model) {
		m.anchored = true
		m.anchors = found
		m.anchorLoading = true
	}
}

func NewModel(feed Feed, opts ...Option) *Model {
	m := &Model{
		feed:     feed,
		sentinel: NewSentinel(feed),
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.view = m.rebuild()
	return m
}

// Run applies deliveries until ctx is cancelled or the feed closes, calling
// render with the rebuilt view after each one.
func (m *Model) Run(ctx context.Context, render func(View)) error {
	snapshots := m.feed.Snapshots()
	roots := m.roots
	anchors := m.anchors
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			m.mu.Lock()
			m.snapshot = snap
			m.view = m.rebuild()
			v := m.view
			m.mu.Unlock()
			render(v)

		case root, ok := <-roots:
			if !ok {
				roots = nil
			}
			m.mu.Lock()
			if ok {
				m.root = root
			}
			m.rootLoading = false
			m.view = m.rebuild()
			v := m.view
			m.mu.Unlock()
			render(v)

		case found, ok := <-anchors:
			if !ok {
				anchors = nil
			}
			m.mu.Lock()
			if ok {
				m.anchorFound = found
			}
			m.anchorLoading = false
			m.view = m.rebuild()
			v := m.view
			m.mu.Unlock()
			render(v)
		}
	}
}

// View returns the most recently built view.
func (m *Model) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Intersect forwards a sentinel intersection event. The sentinel is only
// part of the rendered list, so nothing is requested unless the view is ready.
func (m *Model) Intersect(visible bool) bool {
	m.mu.Lock()
	status := m.snapshot.Status
	ready := m.view.State == StateReady
	m.mu.Unlock()

	if !ready {
		return false
	}
	return m.sentinel.Intersect(visible, status)
}

func (m *Model) rebuild() View {
	return Build(Input{
		Threaded:      m.threaded,
		Root:          m.root,
		RootLoading:   m.rootLoading,
		Anchored:      m.anchored,
		AnchorLoading: m.anchorLoading,
		AnchorFound:   m.anchorFound,
		Snapshot:      m.snapshot,
		Location:      m.loc,
	})
}
