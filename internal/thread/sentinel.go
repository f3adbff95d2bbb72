package thread

import "sync/atomic"

// Pager requests the next, older page of a message query.
type Pager interface {
	LoadMore()
}

// Sentinel sits at the oldest loaded edge of a list and turns viewport
// intersection events into page requests.
type Sentinel struct {
	pager    Pager
	requests atomic.Int64
}

func NewSentinel(pager Pager) *Sentinel {
	return &Sentinel{pager: pager}
}

// Intersect handles one intersection event. It requests the next page only
// when the sentinel is visible and status is StatusCanLoadMore, at most once
// per call, and reports whether it did.
func (s *Sentinel) Intersect(visible bool, status Status) bool {
	if !visible || status != StatusCanLoadMore {
		return false
	}
	s.requests.Add(1)
	s.pager.LoadMore()
	return true
}

// Requests returns how many page requests the sentinel has issued.
func (s *Sentinel) Requests() int64 {
	return s.requests.Load()
}
