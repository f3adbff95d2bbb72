// Package thread turns snapshots of a paginated message query into a
// render-ready view: messages grouped by local calendar day, consecutive
// messages from the same author compacted, and backward pagination driven by
// a sentinel at the oldest loaded edge.
//
// Everything derived here is recomputed from the latest snapshot. Nothing is
// patched incrementally.
package thread

import (
	"cmp"
	"slices"
	"time"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

// CompactThreshold is the largest gap (exclusive) between two messages from
// the same author for the later one to drop its author header.
const CompactThreshold = 5 * time.Minute

const dayKeyLayout = "2006-01-02"

// Entry is a message positioned in a day group.
type Entry struct {
	Message models.MessageWithAuthor
	Compact bool
}

// DayGroup holds the messages of one local calendar day, oldest first.
type DayGroup struct {
	Key     string
	Date    time.Time
	Entries []Entry
}

// DayKey returns the yyyy-mm-dd key of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyLayout)
}

// GroupByDay partitions messages by the local date of their creation time.
// Groups come out newest date first; entries within a group oldest first,
// with compaction already decided.
func GroupByDay(messages []models.MessageWithAuthor, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []DayGroup
	index := make(map[string]int)
	for _, msg := range newestFirst(messages) {
		key := DayKey(msg.CreatedAt, loc)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			y, m, d := msg.CreatedAt.In(loc).Date()
			groups = append(groups, DayGroup{Key: key, Date: time.Date(y, m, d, 0, 0, 0, 0, loc)})
		}
		groups[i].Entries = append(groups[i].Entries, Entry{Message: msg})
	}

	for i := range groups {
		entries := groups[i].Entries
		slices.Reverse(entries)
		for j := range entries {
			if j == 0 {
				continue
			}
			entries[j].Compact = IsCompact(&entries[j-1].Message, &entries[j].Message)
		}
	}
	return groups
}

// IsCompact reports whether cur should be rendered without its author header
// given the message displayed immediately before it.
func IsCompact(prev, cur *models.MessageWithAuthor) bool {
	if prev == nil || cur == nil {
		return false
	}
	if prev.MemberID != cur.MemberID {
		return false
	}
	return cur.CreatedAt.Sub(prev.CreatedAt) < CompactThreshold
}

// DateLabel names a day group relative to now: "Today", "Yesterday", or the
// full weekday, month and day ("Monday, October 19"). day's location is used
// to decide which calendar day now falls on.
func DateLabel(day, now time.Time) string {
	now = now.In(day.Location())
	switch {
	case sameDate(day, now):
		return "Today"
	case sameDate(day, now.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Monday, January 2")
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// newestFirst returns a copy of messages ordered by creation time descending.
// Pages may arrive in either order; ids break ties since they are issued in
// creation order.
func newestFirst(messages []models.MessageWithAuthor) []models.MessageWithAuthor {
	out := slices.Clone(messages)
	slices.SortStableFunc(out, func(a, b models.MessageWithAuthor) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
