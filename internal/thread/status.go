package thread

import "github.com/cristhian-fs/slack-clone/internal/models"

// Status is the pagination state of a message query.
type Status int

const (
	StatusLoadingFirstPage Status = iota
	StatusCanLoadMore
	StatusLoadingMore
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusLoadingFirstPage:
		return "LoadingFirstPage"
	case StatusCanLoadMore:
		return "CanLoadMore"
	case StatusLoadingMore:
		return "LoadingMore"
	case StatusExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Snapshot is one immutable delivery from a message subscription. Results
// are in delivery order (newest page first). Producers must not modify
// Results after publishing a snapshot.
//
// Missing is set when the queried container or thread does not exist. It
// is terminal: Status is StatusExhausted and no page is requested again.
type Snapshot struct {
	Results []models.MessageWithAuthor
	Status  Status
	Missing bool
}
