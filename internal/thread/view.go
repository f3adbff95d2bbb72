package thread

import (
	"time"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

// State is what a view renders in place of, or alongside, its list.
type State int

const (
	StateLoading State = iota
	StateNotFound
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNotFound:
		return "not_found"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// View is the render-ready output for a message list. Groups and Root are
// only populated when State is StateReady.
type View struct {
	State       State
	Root        *models.MessageWithAuthor
	Groups      []DayGroup
	LoadingMore bool
	CanLoadMore bool
}

// Labeled pairs each group with its date label relative to now.
func (v View) Labeled(now time.Time) []LabeledGroup {
	out := make([]LabeledGroup, len(v.Groups))
	for i, g := range v.Groups {
		out[i] = LabeledGroup{Label: DateLabel(g.Date, now), DayGroup: g}
	}
	return out
}

// LabeledGroup is a day group with its display label.
type LabeledGroup struct {
	Label string
	DayGroup
}

// Input is everything Build needs to compute a view.
type Input struct {
	// Threaded views are anchored on a root message shown outside the list.
	Threaded    bool
	Root        *models.MessageWithAuthor
	RootLoading bool

	// Anchored views list a channel or conversation that is looked up
	// separately from its messages.
	Anchored      bool
	AnchorLoading bool
	AnchorFound   bool

	Snapshot Snapshot
	Location *time.Location
}

// Build derives a view from a snapshot. A loading anchor, root or first page
// yields StateLoading. A missing anchor or root yields StateNotFound, as does
// a snapshot reporting its query missing. Neither renders a partial list.
func Build(in Input) View {
	if (in.Threaded && in.RootLoading) || (in.Anchored && in.AnchorLoading) ||
		in.Snapshot.Status == StatusLoadingFirstPage {
		return View{State: StateLoading}
	}
	if (in.Threaded && in.Root == nil) || (in.Anchored && !in.AnchorFound) || in.Snapshot.Missing {
		return View{State: StateNotFound}
	}

	v := View{
		State:       StateReady,
		Groups:      GroupByDay(in.Snapshot.Results, in.Location),
		LoadingMore: in.Snapshot.Status == StatusLoadingMore,
		CanLoadMore: in.Snapshot.Status == StatusCanLoadMore,
	}
	if in.Root != nil {
		root := *in.Root
		v.Root = &root
	}
	return v
}
